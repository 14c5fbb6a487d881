package shipping

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Shipping classes and their cost multipliers.
const (
	ClassStandard  = "standard"
	ClassExpress   = "express"
	ClassOvernight = "overnight"
	ClassFragile   = "fragile"
	ClassBulk      = "bulk"
)

var classMultipliers = map[string]float64{
	ClassStandard:  1.0,
	ClassExpress:   1.5,
	ClassOvernight: 2.5,
	ClassFragile:   1.3,
	ClassBulk:      0.8,
}

const (
	internationalSurcharge = 0.20
	volumetricDivisor      = 5000.0
	minInsuranceCost       = 2.00
	insuranceRate          = 0.01
	freeShippingExtraDays  = 2
)

type Dimensions struct {
	LengthCm float64 `json:"length"`
	WidthCm  float64 `json:"width"`
	HeightCm float64 `json:"height"`
}

type QuoteRequest struct {
	FromCountry string
	FromCity    string
	ToCountry   string
	ToCity      string

	WeightKg   float64
	Dimensions *Dimensions
	Class      string

	// InsuranceValue is the declared value to insure; zero means no insurance.
	InsuranceValue float64

	// FreeShipping mirrors the product's configuration (free shipping with a
	// zero listed cost); it injects the synthetic free option.
	FreeShipping bool
}

// Option is ephemeral: computed per request, never persisted.
type Option struct {
	CarrierID         string    `json:"carrierId"`
	Code              string    `json:"code"`
	Name              string    `json:"name"`
	BaseCost          float64   `json:"baseCost"`
	InsuranceCost     float64   `json:"insuranceCost"`
	TotalCost         float64   `json:"totalCost"`
	EstimatedDays     int       `json:"estimatedDays"`
	EstimatedDelivery time.Time `json:"estimatedDelivery"`
	IncludesTracking  bool      `json:"includesTracking"`
	Express           bool      `json:"express"`
	International     bool      `json:"international"`
}

type Summary struct {
	Cheapest    *Option `json:"cheapest"`
	Fastest     *Option `json:"fastest"`
	Recommended *Option `json:"recommended"`
}

type Result struct {
	Options []Option `json:"options"`
	Summary Summary  `json:"summary"`
}

// Quote is a pure function of (catalog, request): no I/O, no side effects.
// Callers must tolerate zero options (over-limit parcels, restricted lanes);
// the summary pointers stay nil in that case.
func Quote(carriers []Carrier, req QuoteRequest, now time.Time) Result {
	international := !sameCountry(req.FromCountry, req.ToCountry)

	mult, ok := classMultipliers[strings.ToLower(strings.TrimSpace(req.Class))]
	if !ok {
		mult = classMultipliers[ClassStandard]
	}

	options := make([]Option, 0, len(carriers))
	for _, c := range carriers {
		if !c.Active {
			continue
		}
		if c.MaxWeightKg < req.WeightKg {
			continue
		}
		if international && !c.SupportsInternational {
			continue
		}
		if international && c.Code == CodeLocalPost {
			continue
		}

		cost := c.BaseRate + req.WeightKg*c.RatePerKg
		cost *= mult
		if international {
			cost *= 1 + internationalSurcharge
		}

		// Dimensional-weight pricing: the volumetric excess over the declared
		// weight is billed at half the per-kg rate.
		if d := req.Dimensions; d != nil {
			volumetric := d.LengthCm * d.WidthCm * d.HeightCm / volumetricDivisor
			if volumetric > req.WeightKg {
				cost += (volumetric - req.WeightKg) * c.RatePerKg * 0.5
			}
		}

		insurance := 0.0
		if req.InsuranceValue > 0 {
			insurance = math.Max(minInsuranceCost, req.InsuranceValue*insuranceRate)
		}

		options = append(options, Option{
			CarrierID:         c.ID,
			Code:              c.Code,
			Name:              c.Name,
			BaseCost:          round2(cost),
			InsuranceCost:     round2(insurance),
			TotalCost:         round2(cost + insurance),
			EstimatedDays:     c.EstimatedDays,
			EstimatedDelivery: now.AddDate(0, 0, c.EstimatedDays),
			IncludesTracking:  c.IncludesTracking,
			Express:           c.EstimatedDays <= 2,
			International:     international,
		})
	}

	sort.SliceStable(options, func(i, j int) bool {
		if options[i].TotalCost != options[j].TotalCost {
			return options[i].TotalCost < options[j].TotalCost
		}
		return options[i].EstimatedDays < options[j].EstimatedDays
	})

	if req.FreeShipping && len(options) > 0 {
		free := options[0]
		free.Code = "free_shipping"
		free.Name = "Free Shipping"
		free.BaseCost = 0
		free.InsuranceCost = 0
		free.TotalCost = 0
		free.IncludesTracking = false
		free.Express = false
		free.EstimatedDays += freeShippingExtraDays
		free.EstimatedDelivery = now.AddDate(0, 0, free.EstimatedDays)
		options = append([]Option{free}, options...)
	}

	return Result{Options: options, Summary: summarize(options)}
}

func summarize(options []Option) Summary {
	if len(options) == 0 {
		return Summary{}
	}

	cheapest := &options[0]

	fastest := &options[0]
	for i := range options {
		if options[i].EstimatedDays < fastest.EstimatedDays {
			fastest = &options[i]
		}
	}

	// Recommended: tracked, reasonably fast, and not wildly more expensive
	// than the cheapest. Falls back to cheapest.
	recommended := cheapest
	for i := range options {
		o := &options[i]
		if o.IncludesTracking && o.EstimatedDays <= 5 && o.TotalCost <= cheapest.TotalCost*1.5 {
			recommended = o
			break
		}
	}

	return Summary{Cheapest: cheapest, Fastest: fastest, Recommended: recommended}
}

func sameCountry(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

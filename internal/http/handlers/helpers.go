package handlers

import (
	"github.com/gin-gonic/gin"

	"tradecove.com/app/internal/http/middleware"
	"tradecove.com/app/internal/http/validation"
	"tradecove.com/app/internal/shared/apperr"
)

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Request validation failed.", validation.FromBindError(err, dst)))
		return false
	}
	return true
}

// requireUser resolves the acting user from the auth proxy header.
func requireUser(c *gin.Context) (string, bool) {
	uid := middleware.CurrentUserID(c)
	if uid == "" {
		middleware.Fail(c, apperr.UnauthorizedErr("Authentication required."))
		return "", false
	}
	return uid, true
}

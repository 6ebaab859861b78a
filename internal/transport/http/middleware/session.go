package middleware

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"staffqa/internal/app"
	"staffqa/internal/model"
	"staffqa/internal/transport/http/response"
)

type SessionCookie struct {
	Name   string
	Secure bool
}

func (s SessionCookie) Set(c *gin.Context, token string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.Name, token, int(ttl.Seconds()), "/", "", s.Secure, true)
}

func (s SessionCookie) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.Name, "", -1, "/", "", s.Secure, true)
}

// LoadSession attaches the authenticated user, if any. It never rejects a
// request; guards do that.
func LoadSession(auth *app.AuthService, cookie SessionCookie, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookie.Name)
		if err != nil || token == "" {
			c.Next()
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), token)
		switch {
		case err == nil:
			c.Set(response.UserKey, user)
		case errors.Is(err, app.ErrUnauthenticated):
			cookie.Clear(c)
		default:
			logger.Error("load session failed", zap.Error(err))
		}
		c.Next()
	}
}

func RequireLogin() gin.HandlerFunc {
	return RequireRole(model.RoleEmployee)
}

// RequireRole answers JSON for /api routes and redirects or renders an error
// page for everything else.
func RequireRole(role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := app.Require(response.CurrentUser(c), role)
		if err == nil {
			c.Next()
			return
		}

		if IsAPI(c) {
			response.FromError(c, err)
			c.Abort()
			return
		}
		if errors.Is(err, app.ErrUnauthenticated) {
			c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		response.ErrorPage(c, http.StatusForbidden)
		c.Abort()
	}
}

func IsAPI(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, "/api/")
}

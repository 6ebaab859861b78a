package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"staffqa/internal/app"
	"staffqa/internal/transport/http/middleware"
	"staffqa/internal/transport/http/response"
)

type AuthHandler struct {
	authService *app.AuthService
	cookie      middleware.SessionCookie
	logger      *zap.Logger
}

type LoginForm struct {
	Email    string `form:"email"`
	Password string `form:"password"`
	Next     string `form:"next"`
}

type RegisterForm struct {
	Email           string `form:"email"`
	FirstName       string `form:"first_name"`
	LastName        string `form:"last_name"`
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirm_password"`
}

func NewAuthHandler(authService *app.AuthService, cookie middleware.SessionCookie, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, cookie: cookie, logger: logger}
}

func (h *AuthHandler) LoginPage(c *gin.Context) {
	if response.CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, "/chat")
		return
	}
	response.HTML(c, http.StatusOK, "login.html", gin.H{
		"Title":         "Sign in",
		"Next":          c.Query("next"),
		"OAuthEnabled":  h.authService.OAuthEnabled(),
		"PasswordLogin": h.authService.PasswordLoginEnabled(),
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		response.AddFlash(c, response.FlashError, "invalid request payload")
		c.Redirect(http.StatusFound, "/login")
		return
	}

	result, err := h.authService.PasswordLogin(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		target := "/login"
		if form.Next != "" {
			target += "?next=" + url.QueryEscape(form.Next)
		}
		flashAndRedirect(c, h.logger, err, target)
		return
	}

	h.cookie.Set(c, result.Token, h.authService.SessionTTL())
	c.Redirect(http.StatusFound, safeNext(form.Next))
}

func (h *AuthHandler) RegisterPage(c *gin.Context) {
	if response.CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, "/chat")
		return
	}
	if !h.authService.PasswordLoginEnabled() {
		response.ErrorPage(c, http.StatusNotFound)
		return
	}
	response.HTML(c, http.StatusOK, "register.html", gin.H{"Title": "Create account"})
}

func (h *AuthHandler) Register(c *gin.Context) {
	var form RegisterForm
	if err := c.ShouldBind(&form); err != nil {
		response.AddFlash(c, response.FlashError, "invalid request payload")
		c.Redirect(http.StatusFound, "/register")
		return
	}

	result, err := h.authService.Register(c.Request.Context(), app.RegisterInput{
		Email:     form.Email,
		Password:  form.Password,
		Confirm:   form.ConfirmPassword,
		FirstName: form.FirstName,
		LastName:  form.LastName,
	})
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			err = fmt.Errorf("%w: enter a valid email and a password of at least 8 characters", app.ErrInvalidInput)
		}
		flashAndRedirect(c, h.logger, err, "/register")
		return
	}

	h.cookie.Set(c, result.Token, h.authService.SessionTTL())
	response.AddFlash(c, response.FlashSuccess, "Welcome, "+result.User.DisplayName()+"!")
	c.Redirect(http.StatusFound, "/chat")
}

// OAuthStart sends the browser to the identity provider.
func (h *AuthHandler) OAuthStart(c *gin.Context) {
	target, err := h.authService.LoginURL(c.Request.Context())
	if err != nil {
		flashAndRedirect(c, h.logger, err, "/login")
		return
	}
	c.Redirect(http.StatusFound, target)
}

func (h *AuthHandler) OAuthCallback(c *gin.Context) {
	if c.Query("error") != "" {
		response.AddFlash(c, response.FlashError, "Sign-in was cancelled.")
		c.Redirect(http.StatusFound, "/login")
		return
	}

	result, err := h.authService.Callback(c.Request.Context(), c.Query("state"), c.Query("code"))
	if err != nil {
		if errors.Is(err, app.ErrUnauthenticated) {
			h.logger.Warn("oauth callback rejected", zap.Error(err))
			response.AddFlash(c, response.FlashError, "Authentication failed. Please try again.")
			c.Redirect(http.StatusFound, "/login")
			return
		}
		flashAndRedirect(c, h.logger, err, "/login")
		return
	}

	h.cookie.Set(c, result.Token, h.authService.SessionTTL())
	response.AddFlash(c, response.FlashSuccess, "Welcome, "+result.User.DisplayName()+"!")
	c.Redirect(http.StatusFound, "/chat")
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(h.cookie.Name); err == nil {
		if err := h.authService.Logout(c.Request.Context(), token); err != nil {
			h.logger.Warn("logout failed", zap.Error(err))
		}
	}
	h.cookie.Clear(c)
	response.AddFlash(c, response.FlashInfo, "You have been logged out.")
	c.Redirect(http.StatusFound, "/")
}

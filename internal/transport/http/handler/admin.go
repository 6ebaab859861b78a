package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"staffqa/internal/app"
	"staffqa/internal/model"
	"staffqa/internal/transport/http/response"
)

type AdminHandler struct {
	analyticsService *app.AnalyticsService
	docService       *app.DocumentService
	userService      *app.UserService
	logger           *zap.Logger
}

func NewAdminHandler(
	analyticsService *app.AnalyticsService,
	docService *app.DocumentService,
	userService *app.UserService,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		analyticsService: analyticsService,
		docService:       docService,
		userService:      userService,
		logger:           logger,
	}
}

func (h *AdminHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	summary, err := h.analyticsService.Summary(ctx, response.CurrentUser(c))
	if err != nil {
		renderPageError(c, h.logger, err)
		return
	}
	docs, err := h.docService.List(ctx)
	if err != nil {
		renderPageError(c, h.logger, err)
		return
	}
	response.HTML(c, http.StatusOK, "admin.html", gin.H{
		"Title":     "Admin dashboard",
		"Summary":   summary,
		"Documents": docs,
	})
}

func (h *AdminHandler) Users(c *gin.Context) {
	users, err := h.userService.ListUsers(c.Request.Context(), response.CurrentUser(c))
	if err != nil {
		renderPageError(c, h.logger, err)
		return
	}
	response.HTML(c, http.StatusOK, "users.html", gin.H{
		"Title": "Users",
		"Users": users,
	})
}

func (h *AdminHandler) ToggleAdmin(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		response.ErrorPage(c, http.StatusNotFound)
		return
	}
	user, err := h.userService.ToggleAdmin(c.Request.Context(), response.CurrentUser(c), id)
	if err != nil {
		status, _, _ := response.Classify(err)
		if status == http.StatusBadRequest {
			flashAndRedirect(c, h.logger, err, "/users")
			return
		}
		renderPageError(c, h.logger, err)
		return
	}

	verb := "revoked from"
	if user.Role == model.RoleAdmin {
		verb = "granted to"
	}
	response.AddFlash(c, response.FlashSuccess, fmt.Sprintf("Admin access %s %s.", verb, user.Email))
	c.Redirect(http.StatusFound, "/users")
}

func (h *AdminHandler) Profile(c *gin.Context) {
	profile, err := h.userService.Profile(c.Request.Context(), response.CurrentUser(c))
	if err != nil {
		renderPageError(c, h.logger, err)
		return
	}
	response.HTML(c, http.StatusOK, "profile.html", gin.H{
		"Title":   "Profile",
		"Profile": profile,
	})
}

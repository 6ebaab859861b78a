package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"staffqa/internal/app"
	"staffqa/internal/transport/http/response"
)

// renderPageError turns a service error into the matching page response.
func renderPageError(c *gin.Context, logger *zap.Logger, err error) {
	status, _, _ := response.Classify(err)
	switch {
	case status == http.StatusUnauthorized:
		c.Redirect(http.StatusFound, "/login")
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		_ = c.Error(err)
		response.ErrorPage(c, http.StatusInternalServerError)
	default:
		response.ErrorPage(c, status)
	}
}

// flashAndRedirect reports a recoverable failure on the page the user came
// from. Server errors still get the 500 page.
func flashAndRedirect(c *gin.Context, logger *zap.Logger, err error, target string) {
	status, _, message := response.Classify(err)
	if status >= http.StatusInternalServerError && !isUserFacing(err) {
		renderPageError(c, logger, err)
		return
	}
	response.AddFlash(c, response.FlashError, message)
	c.Redirect(http.StatusFound, target)
}

func isUserFacing(err error) bool {
	return errors.Is(err, app.ErrExtraction)
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// safeNext only follows local redirects.
func safeNext(next string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") && !strings.HasPrefix(next, `/\`) {
		return next
	}
	return "/chat"
}

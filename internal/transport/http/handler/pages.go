package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"staffqa/internal/transport/http/middleware"
	"staffqa/internal/transport/http/response"
)

func Landing(c *gin.Context) {
	if response.CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, "/chat")
		return
	}
	response.HTML(c, http.StatusOK, "landing.html", gin.H{"Title": "Welcome"})
}

func NotFound(c *gin.Context) {
	if middleware.IsAPI(c) {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "not found")
		return
	}
	response.ErrorPage(c, http.StatusNotFound)
}

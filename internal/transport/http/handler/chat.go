package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"staffqa/internal/app"
	"staffqa/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
	logger      *zap.Logger
}

type AskRequest struct {
	Question string `json:"question"`
}

func NewChatHandler(chatService *app.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chatService: chatService, logger: logger}
}

func (h *ChatHandler) Page(c *gin.Context) {
	history, err := h.chatService.History(c.Request.Context(), response.CurrentUser(c), app.DefaultHistoryLimit)
	if err != nil {
		renderPageError(c, h.logger, err)
		return
	}
	response.HTML(c, http.StatusOK, "chat.html", gin.H{
		"Title":   "Ask a question",
		"History": history,
	})
}

func (h *ChatHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.chatService.Ask(c.Request.Context(), response.CurrentUser(c), req.Question)
	if err != nil {
		status, _, _ := response.Classify(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("ask failed", zap.Error(err))
			_ = c.Error(err)
		}
		response.FromError(c, err)
		return
	}
	response.OK(c, result)
}

package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"staffqa/internal/app"
	"staffqa/internal/transport/http/response"
)

// multipartOverhead leaves room for the form framing around the file.
const multipartOverhead = 1 << 20

type DocumentHandler struct {
	docService *app.DocumentService
	logger     *zap.Logger
}

func NewDocumentHandler(docService *app.DocumentService, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{docService: docService, logger: logger}
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.docService.List(c.Request.Context())
	if err != nil {
		renderPageError(c, h.logger, err)
		return
	}
	response.HTML(c, http.StatusOK, "documents.html", gin.H{
		"Title":     "Documents",
		"Documents": docs,
	})
}

func (h *DocumentHandler) UploadPage(c *gin.Context) {
	response.HTML(c, http.StatusOK, "upload.html", gin.H{
		"Title": "Upload document",
		"MaxMB": h.docService.MaxBytes() >> 20,
	})
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.docService.MaxBytes()+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			flashAndRedirect(c, h.logger, app.ErrFileTooLarge, "/upload")
			return
		}
		flashAndRedirect(c, h.logger, fmt.Errorf("%w: no file selected", app.ErrInvalidInput), "/upload")
		return
	}
	file, err := header.Open()
	if err != nil {
		renderPageError(c, h.logger, fmt.Errorf("open upload failed: %w", err))
		return
	}
	defer file.Close()

	doc, err := h.docService.Upload(c.Request.Context(), response.CurrentUser(c), app.UploadInput{
		Filename: header.Filename,
		Size:     header.Size,
		Body:     file,
	})
	if err != nil {
		if errors.Is(err, app.ErrForbidden) || errors.Is(err, app.ErrUnauthenticated) {
			renderPageError(c, h.logger, err)
			return
		}
		flashAndRedirect(c, h.logger, err, "/upload")
		return
	}

	response.AddFlash(c, response.FlashSuccess, fmt.Sprintf("Document %q uploaded successfully!", doc.OriginalFilename))
	c.Redirect(http.StatusFound, "/documents")
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		response.ErrorPage(c, http.StatusNotFound)
		return
	}
	if err := h.docService.Delete(c.Request.Context(), response.CurrentUser(c), id); err != nil {
		renderPageError(c, h.logger, err)
		return
	}
	response.AddFlash(c, response.FlashSuccess, "Document deleted.")
	c.Redirect(http.StatusFound, "/admin")
}

package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"staffqa/internal/app"
)

const (
	CodeBadRequest         = 40000
	CodeUnsupportedFormat  = 40001
	CodeEmailExists        = 40002
	CodePasswordMismatch   = 40003
	CodeUnauthorized       = 40100
	CodeInvalidCredentials = 40101
	CodeForbidden          = 40300
	CodeNotFound           = 40400
	CodeFileTooLarge       = 41300
	CodeInternalServer     = 50000
	CodeGenerationFailed   = 50001
	CodeExtractionFailed   = 50002
)

type ErrorBody struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, ErrorBody{
		Error: message,
		Code:  code,
	})
}

// Classify maps a service error to its HTTP status, error code and the
// message safe to show a user. Unknown errors become a generic 500.
func Classify(err error) (status, code int, message string) {
	switch {
	case errors.Is(err, app.ErrUnauthenticated):
		return http.StatusUnauthorized, CodeUnauthorized, app.ErrUnauthenticated.Error()
	case errors.Is(err, app.ErrInvalidCredential):
		return http.StatusUnauthorized, CodeInvalidCredentials, app.ErrInvalidCredential.Error()
	case errors.Is(err, app.ErrForbidden):
		return http.StatusForbidden, CodeForbidden, app.ErrForbidden.Error()
	case errors.Is(err, app.ErrNotFound):
		return http.StatusNotFound, CodeNotFound, app.ErrNotFound.Error()
	case errors.Is(err, app.ErrUnsupportedFormat):
		return http.StatusBadRequest, CodeUnsupportedFormat, "unsupported file format; upload a PDF, TXT or DOCX file"
	case errors.Is(err, app.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, CodeFileTooLarge, app.ErrFileTooLarge.Error()
	case errors.Is(err, app.ErrEmailExists):
		return http.StatusBadRequest, CodeEmailExists, app.ErrEmailExists.Error()
	case errors.Is(err, app.ErrPasswordMismatch):
		return http.StatusBadRequest, CodePasswordMismatch, app.ErrPasswordMismatch.Error()
	case errors.Is(err, app.ErrInvalidInput):
		return http.StatusBadRequest, CodeBadRequest, err.Error()
	case errors.Is(err, app.ErrOAuthDisabled), errors.Is(err, app.ErrPasswordLoginDisabled):
		return http.StatusNotFound, CodeNotFound, err.Error()
	case errors.Is(err, app.ErrExtraction):
		return http.StatusInternalServerError, CodeExtractionFailed, app.ErrExtraction.Error()
	case errors.Is(err, app.ErrGeneration):
		return http.StatusInternalServerError, CodeGenerationFailed, "failed to generate an answer, please try again"
	default:
		return http.StatusInternalServerError, CodeInternalServer, "internal server error"
	}
}

// FromError writes the JSON error for err.
func FromError(c *gin.Context, err error) {
	status, code, message := Classify(err)
	Error(c, status, code, message)
}

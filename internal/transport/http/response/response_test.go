package response

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffqa/internal/app"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   int
	}{
		{app.ErrUnauthenticated, http.StatusUnauthorized, CodeUnauthorized},
		{fmt.Errorf("%w: bad state", app.ErrUnauthenticated), http.StatusUnauthorized, CodeUnauthorized},
		{app.ErrForbidden, http.StatusForbidden, CodeForbidden},
		{app.ErrNotFound, http.StatusNotFound, CodeNotFound},
		{fmt.Errorf("%w: x.exe", app.ErrUnsupportedFormat), http.StatusBadRequest, CodeUnsupportedFormat},
		{app.ErrFileTooLarge, http.StatusRequestEntityTooLarge, CodeFileTooLarge},
		{app.ErrInvalidCredential, http.StatusUnauthorized, CodeInvalidCredentials},
		{fmt.Errorf("%w: timeout", app.ErrGeneration), http.StatusInternalServerError, CodeGenerationFailed},
		{errors.New("db down"), http.StatusInternalServerError, CodeInternalServer},
	}
	for _, tc := range cases {
		status, code, message := Classify(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, code, tc.err.Error())
		assert.NotEmpty(t, message)
	}

	_, _, message := Classify(fmt.Errorf("%w: upstream said 503", app.ErrGeneration))
	assert.NotContains(t, message, "503")
	_, _, message = Classify(errors.New("dial tcp 10.0.0.1:3306"))
	assert.NotContains(t, message, "10.0.0.1")
}

func TestFlashesSurviveRedirect(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/upload", nil)
	AddFlash(c, FlashSuccess, "Uploaded policy.pdf")
	AddFlash(c, FlashInfo, "Second")

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	last := cookies[len(cookies)-1]
	assert.Equal(t, flashCookie, last.Name)

	w2 := httptest.NewRecorder()
	c2, _ := gin.CreateTestContext(w2)
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(last)
	c2.Request = req

	flashes := takeFlashes(c2)
	require.Len(t, flashes, 2)
	assert.Equal(t, Flash{Category: FlashSuccess, Message: "Uploaded policy.pdf"}, flashes[0])
	assert.Empty(t, takeFlashes(c2))

	cleared := w2.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.True(t, cleared[0].MaxAge < 0)
}

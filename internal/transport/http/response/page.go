package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"staffqa/internal/model"
)

const UserKey = "current_user"

// CurrentUser returns the authenticated user attached by the session
// middleware, or nil.
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*model.User)
	return user
}

// HTML renders a full page. Every page receives the current user and any
// pending flash messages.
func HTML(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["CurrentUser"] = CurrentUser(c)
	data["Flashes"] = takeFlashes(c)
	c.HTML(status, name, data)
}

var statusMessages = map[int]string{
	http.StatusForbidden:           "You do not have permission to view this page.",
	http.StatusNotFound:            "The page you are looking for does not exist.",
	http.StatusInternalServerError: "Something went wrong on our side. Please try again.",
}

func ErrorPage(c *gin.Context, status int) {
	message, ok := statusMessages[status]
	if !ok {
		message = http.StatusText(status)
	}
	HTML(c, status, "error.html", gin.H{
		"Title":   http.StatusText(status),
		"Status":  status,
		"Message": message,
	})
}

package response

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

const flashCookie = "staffqa_flash"

const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

type Flash struct {
	Category string `json:"c"`
	Message  string `json:"m"`
}

// AddFlash queues a message for the next rendered page.
func AddFlash(c *gin.Context, category, message string) {
	flashes := append(pendingFlashes(c), Flash{Category: category, Message: message})
	c.Set(flashCookie, flashes)
	payload, err := json.Marshal(flashes)
	if err != nil {
		return
	}
	setFlashCookie(c, string(payload), 60)
}

func pendingFlashes(c *gin.Context) []Flash {
	if v, ok := c.Get(flashCookie); ok {
		if flashes, ok := v.([]Flash); ok {
			return flashes
		}
	}
	raw, err := c.Cookie(flashCookie)
	if err != nil || raw == "" {
		return nil
	}
	var flashes []Flash
	if err := json.Unmarshal([]byte(raw), &flashes); err != nil {
		return nil
	}
	return flashes
}

func takeFlashes(c *gin.Context) []Flash {
	flashes := pendingFlashes(c)
	if len(flashes) > 0 {
		c.Set(flashCookie, []Flash{})
		setFlashCookie(c, "", -1)
	}
	return flashes
}

func setFlashCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, value, maxAge, "/", "", false, true)
}

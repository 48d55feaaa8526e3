package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// transparent 1x1 GIF served for open tracking
var trackingPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// TrackOpen records an open event and serves the pixel. Recording failures
// never surface to the mail client; the pixel is always returned.
func (h *Handlers) TrackOpen(c *gin.Context) {
	tid := c.Param("tid")
	if tid != "" {
		if err := h.tracker.RecordOpen(tid, c.ClientIP(), c.Request.UserAgent()); err == nil {
			h.metrics.TrackingEvents.Inc()
		}
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/gif", trackingPixel)
}

// TrackClick records a click event and redirects to the original URL
func (h *Handlers) TrackClick(c *gin.Context) {
	tid := c.Param("tid")
	target := c.Query("url")
	if target == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	if tid != "" {
		if err := h.tracker.RecordClick(tid, target, c.ClientIP(), c.Request.UserAgent()); err == nil {
			h.metrics.TrackingEvents.Inc()
		}
	}

	c.Redirect(http.StatusFound, target)
}

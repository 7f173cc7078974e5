package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mailspool/mailspool/internal/tracking"
	"github.com/mailspool/mailspool/pkg/logx"
	"github.com/mailspool/mailspool/pkg/metrics"
)

// transparent 1x1 GIF
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

type eventRecorder interface {
	Record(ctx context.Context, ev tracking.Event) error
}

type TrackingHandlers struct {
	Sink eventRecorder
}

func NewTrackingHandlers(sink *tracking.Sink) *TrackingHandlers {
	return &TrackingHandlers{Sink: sink}
}

// TrackOpen serves the beacon pixel. The pixel is returned no matter what:
// a bad token must not break image rendering in the recipient's client.
func (h *TrackingHandlers) TrackOpen(c *gin.Context) {
	defer func() {
		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, "image/gif", pixelGIF)
	}()

	tok, err := tracking.DecodeToken(c.Query("token"))
	if err != nil {
		logx.L().Debugw("open_token_invalid", "error", err)
		return
	}
	h.record(c, tok, tracking.EventOpen, "")
}

// TrackClick records the click and redirects to the original target. The url
// parameter arrives percent-decoded from the query parser; decoding it again
// would corrupt targets that contain a literal + or %xx sequence.
func (h *TrackingHandlers) TrackClick(c *gin.Context) {
	target := c.Query("url")
	if target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing url"})
		return
	}

	if tok, err := tracking.DecodeToken(c.Query("token")); err != nil {
		logx.L().Debugw("click_token_invalid", "error", err)
	} else {
		h.record(c, tok, tracking.EventClick, target)
	}

	c.Redirect(http.StatusFound, target)
}

func (h *TrackingHandlers) record(c *gin.Context, tok tracking.Token, typ tracking.EventType, target string) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	ev := tracking.Event{
		CampaignID: tok.CampaignID,
		ContactID:  tok.ContactID,
		SenderID:   tok.SenderID,
		Type:       typ,
		URL:        target,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	}
	if err := h.Sink.Record(ctx, ev); err != nil {
		logx.L().Warnw("tracking_record_error", "type", typ, "error", err)
		return
	}
	metrics.TrackingEventsTotal.WithLabelValues(string(typ)).Inc()
}

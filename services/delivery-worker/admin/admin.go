package admin

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mailspool/mailspool/internal/campaign"
	"github.com/mailspool/mailspool/internal/mailqueue"
	"github.com/mailspool/mailspool/pkg/logx"
	"github.com/mailspool/mailspool/pkg/metrics"
)

type queueService interface {
	EnqueueCampaign(ctx context.Context, campaignID int64, recipients []campaign.Recipient, subject, body string, priority int) (int, error)
	Start(ctx context.Context)
	Stop()
	Running() bool
	GetStats(ctx context.Context) (mailqueue.Stats, error)
	RetryAllFailed(ctx context.Context) (int64, error)
	ClearFailed(ctx context.Context) (int64, error)
	ClearSent(ctx context.Context) (int64, error)
}

// Handlers is the worker's small operator surface: inspect the queue,
// pause/resume delivery, push extra recipients into a campaign, run the
// maintenance operations.
type Handlers struct {
	Svc queueService
}

func NewHandlers(svc *mailqueue.Service) *Handlers {
	return &Handlers{Svc: svc}
}

func NewHTTPServer(addr string, h *Handlers) *http.Server {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/stats", h.Stats)
	r.POST("/pause", h.Pause)
	r.POST("/resume", h.Resume)
	r.POST("/campaigns/:id/enqueue", h.Enqueue)
	r.POST("/queue/retry-failed", h.RetryFailed)
	r.POST("/queue/clear-failed", h.ClearFailed)
	r.POST("/queue/clear-sent", h.ClearSent)

	return &http.Server{Addr: addr, Handler: r}
}

func (h *Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"running": h.Svc.Running()})
}

func (h *Handlers) Stats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	st, err := h.Svc.GetStats(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"running": h.Svc.Running(), "queue": st})
}

func (h *Handlers) Pause(c *gin.Context) {
	h.Svc.Stop()
	logx.L().Infow("queue_paused_by_operator")
	c.JSON(http.StatusOK, gin.H{"running": false})
}

func (h *Handlers) Resume(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	h.Svc.Start(ctx)
	logx.L().Infow("queue_resumed_by_operator")
	c.JSON(http.StatusOK, gin.H{"running": true})
}

type enqueueReq struct {
	Subject    string               `json:"subject"    binding:"required"`
	Body       string               `json:"body"       binding:"required"`
	Priority   int                  `json:"priority"`
	Recipients []campaign.Recipient `json:"recipients" binding:"required,min=1,dive"`
}

func (h *Handlers) Enqueue(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req enqueueReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	n, err := h.Svc.EnqueueCampaign(ctx, id, req.Recipients, req.Subject, req.Body, req.Priority)
	if err != nil {
		logx.L().Errorw("admin_enqueue_error", "campaign_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "enqueue error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"item_count": n})
}

func (h *Handlers) RetryFailed(c *gin.Context) {
	h.countOp(c, h.Svc.RetryAllFailed, "retried")
}

func (h *Handlers) ClearFailed(c *gin.Context) {
	h.countOp(c, h.Svc.ClearFailed, "cleared")
}

func (h *Handlers) ClearSent(c *gin.Context) {
	h.countOp(c, h.Svc.ClearSent, "cleared")
}

func (h *Handlers) countOp(c *gin.Context, op func(context.Context) (int64, error), key string) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	n, err := op(ctx)
	if err != nil {
		logx.L().Errorw("admin_maintenance_error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "queue error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{key: n})
}

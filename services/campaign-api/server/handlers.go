package server

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mailspool/mailspool/internal/campaign"
	"github.com/mailspool/mailspool/internal/mailqueue"
	"github.com/mailspool/mailspool/pkg/logx"
	"github.com/mailspool/mailspool/pkg/metrics"
	"github.com/mailspool/mailspool/pkg/render"
)

type queueStoreAPI interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
	EnqueueTx(ctx context.Context, tx *sql.Tx, it mailqueue.Item) (int64, error)
	Stats(ctx context.Context) (mailqueue.Stats, error)
	RetryAllFailed(ctx context.Context) (int64, error)
	ClearFailed(ctx context.Context) (int64, error)
	ClearSent(ctx context.Context) (int64, error)
}

type campaignStoreAPI interface {
	InsertCampaign(ctx context.Context, tx *sql.Tx, name, subject, body, status string) (int64, error)
	MarkSending(ctx context.Context, tx *sql.Tx, id int64) error
	GetCampaign(ctx context.Context, id int64) (campaign.Campaign, error)
	ListCampaigns(ctx context.Context, limit, offset int) ([]campaign.Campaign, error)
}

type campaignStatsAPI interface {
	CampaignStats(ctx context.Context, id int64) (mailqueue.Stats, error)
}

type Handlers struct {
	Queue     queueStoreAPI
	Campaigns campaignStoreAPI
	Stats     campaignStatsAPI
}

func NewHandlers(q *mailqueue.Store, c *campaign.Store) *Handlers {
	return &Handlers{Queue: q, Campaigns: c, Stats: &campaignStatsAdapter{q}}
}

func (h *Handlers) Healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// CreateCampaign inserts the campaign and one queue item per recipient in a
// single transaction, pre-rendering the template fields. The delivery worker
// picks the items up on its next tick.
func (h *Handlers) CreateCampaign(c *gin.Context) {
	var req campaign.CreateCampaignReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	var campaignID int64
	count := 0

	err := h.Queue.WithTx(ctx, func(tx *sql.Tx) error {
		id, err := h.Campaigns.InsertCampaign(ctx, tx, req.Name, req.Subject, req.Body, campaign.StatusSending)
		if err != nil {
			return err
		}
		campaignID = id

		for _, rec := range req.Recipients {
			it := mailqueue.Item{
				CampaignID: campaignID,
				ContactID:  rec.ContactID,
				Email:      rec.Email,
				Subject:    render.Fields(req.Subject, rec.Fields),
				Body:       render.Fields(req.Body, rec.Fields),
				Priority:   req.Priority,
			}
			if _, err := h.Queue.EnqueueTx(ctx, tx, it); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		var verr *mailqueue.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}
		logx.L().Errorw("create_campaign_error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create error"})
		return
	}

	metrics.EnqueuedTotal.Add(float64(count))
	c.JSON(http.StatusOK, campaign.CreateCampaignResp{ID: campaignID, ItemCount: count})
}

func (h *Handlers) GetCampaign(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	camp, err := h.Campaigns.GetCampaign(ctx, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
		return
	}
	stats, err := h.Stats.CampaignStats(ctx, id)
	if err != nil {
		logx.L().Errorw("campaign_stats_error", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats error"})
		return
	}

	resp := campaign.CampaignDetails{
		ID:        camp.ID,
		Name:      camp.Name,
		Subject:   camp.Subject,
		Status:    camp.Status,
		SentAt:    camp.SentAt,
		CreatedAt: camp.CreatedAt,
	}
	resp.Stats.Pending = stats.Pending
	resp.Stats.Processing = stats.Processing
	resp.Stats.Sent = stats.Sent
	resp.Stats.Failed = stats.Failed

	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) ListCampaigns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	rows, err := h.Campaigns.ListCampaigns(ctx, limit, offset)
	if err != nil {
		logx.L().Errorw("list_campaigns_error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list error"})
		return
	}

	out := make([]campaign.CampaignListItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, campaign.CampaignListItem{
			ID:        r.ID,
			Name:      r.Name,
			Status:    r.Status,
			SentAt:    r.SentAt,
			CreatedAt: r.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) QueueStats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	st, err := h.Queue.Stats(ctx)
	if err != nil {
		logx.L().Errorw("queue_stats_error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats error"})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handlers) RetryFailed(c *gin.Context) {
	h.countOp(c, h.Queue.RetryAllFailed, "retried")
}

func (h *Handlers) ClearFailed(c *gin.Context) {
	h.countOp(c, h.Queue.ClearFailed, "cleared")
}

func (h *Handlers) ClearSent(c *gin.Context) {
	h.countOp(c, h.Queue.ClearSent, "cleared")
}

func (h *Handlers) countOp(c *gin.Context, op func(context.Context) (int64, error), key string) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	n, err := op(ctx)
	if err != nil {
		logx.L().Errorw("queue_maintenance_error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "queue error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{key: n})
}

type campaignStatsAdapter struct{ store *mailqueue.Store }

func (a *campaignStatsAdapter) CampaignStats(ctx context.Context, id int64) (mailqueue.Stats, error) {
	return a.store.CampaignStats(ctx, id)
}

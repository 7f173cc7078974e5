package mailqueue

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mailspool/mailspool/pkg/logx"
)

type campaignScanner interface {
	HasUnfinished(ctx context.Context, campaignID int64) (bool, error)
}

type campaignPromoter interface {
	UpdateStatusFromSending(ctx context.Context, id int64, status string, sentAt time.Time) (bool, error)
}

// CompletionMonitor promotes a campaign to "sent" once every one of its items
// has reached a terminal state.
type CompletionMonitor struct {
	items     campaignScanner
	campaigns campaignPromoter
	log       *zap.SugaredLogger
}

func NewCompletionMonitor(items campaignScanner, campaigns campaignPromoter) *CompletionMonitor {
	return &CompletionMonitor{
		items:     items,
		campaigns: campaigns,
		log:       logx.Named("completion"),
	}
}

// OnItemTerminal re-scans the campaign after one of its items went terminal.
// Errors are logged, never propagated: the next terminal item triggers the
// scan again.
func (m *CompletionMonitor) OnItemTerminal(ctx context.Context, campaignID int64) {
	unfinished, err := m.items.HasUnfinished(ctx, campaignID)
	if err != nil {
		m.log.Warnw("completion_scan_error", "campaign_id", campaignID, "error", err)
		return
	}
	if unfinished {
		return
	}

	promoted, err := m.campaigns.UpdateStatusFromSending(ctx, campaignID, "sent", time.Now())
	if err != nil {
		m.log.Warnw("campaign_promote_error", "campaign_id", campaignID, "error", err)
		return
	}
	if promoted {
		m.log.Infow("campaign_completed", "campaign_id", campaignID)
	}
}

package mailqueue

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/mailspool/mailspool/internal/campaign"
	"github.com/mailspool/mailspool/pkg/logx"
	"github.com/mailspool/mailspool/pkg/metrics"
	"github.com/mailspool/mailspool/pkg/render"
)

// Service is the queue's public surface: enqueue, lifecycle, progress,
// stats and the operator maintenance operations.
type Service struct {
	store      *Store
	campaigns  *campaign.Store
	settings   *campaign.SettingsStore
	limiter    *RateLimiter
	bus        *ProgressBus
	dispatcher *Dispatcher
	log        *zap.SugaredLogger
}

func NewService(store *Store, campaigns *campaign.Store, settings *campaign.SettingsStore,
	limiter *RateLimiter, bus *ProgressBus, dispatcher *Dispatcher) *Service {
	return &Service{
		store:      store,
		campaigns:  campaigns,
		settings:   settings,
		limiter:    limiter,
		bus:        bus,
		dispatcher: dispatcher,
		log:        logx.Named("mailqueue"),
	}
}

// EnqueueCampaign renders the template per recipient and inserts one pending
// item each, then moves the campaign into 'sending'. All or nothing.
func (s *Service) EnqueueCampaign(ctx context.Context, campaignID int64, recipients []campaign.Recipient, subject, body string, priority int) (int, error) {
	count := 0
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		for _, rec := range recipients {
			it := Item{
				CampaignID: campaignID,
				ContactID:  rec.ContactID,
				Email:      rec.Email,
				Subject:    render.Fields(subject, rec.Fields),
				Body:       render.Fields(body, rec.Fields),
				Priority:   priority,
			}
			if _, err := s.store.EnqueueTx(ctx, tx, it); err != nil {
				return err
			}
			count++
		}
		return s.campaigns.MarkSending(ctx, tx, campaignID)
	})
	if err != nil {
		return 0, err
	}
	metrics.EnqueuedTotal.Add(float64(count))
	s.log.Infow("campaign_enqueued", "campaign_id", campaignID, "items", count)
	return count, nil
}

// Start reads the operator settings and launches the dispatcher. Idempotent.
func (s *Service) Start(ctx context.Context) {
	maxPerHour := s.settings.GetInt(ctx, campaign.SettingMaxEmailsPerHour, campaign.DefaultMaxEmailsPerHour)
	maxRetries := s.settings.GetInt(ctx, campaign.SettingEmailRetryAttempts, campaign.DefaultEmailRetryAttempts)

	s.limiter.SetMaxPerHour(maxPerHour)
	s.dispatcher.SetRetryPolicy(NewRetryPolicy(maxRetries))
	s.dispatcher.Start()
}

// Stop halts the dispatcher at the next tick boundary. Idempotent.
func (s *Service) Stop() { s.dispatcher.Stop() }

func (s *Service) Running() bool { return s.dispatcher.Running() }

// SubscribeProgress registers cb for dispatch progress; the returned function
// unsubscribes it.
func (s *Service) SubscribeProgress(cb func(ProgressSnapshot)) func() {
	return s.bus.Subscribe(cb)
}

func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	return s.store.Stats(ctx)
}

func (s *Service) RetryAllFailed(ctx context.Context) (int64, error) {
	n, err := s.store.RetryAllFailed(ctx)
	if err == nil && n > 0 {
		s.log.Infow("failed_items_requeued", "count", n)
	}
	return n, err
}

func (s *Service) ClearFailed(ctx context.Context) (int64, error) {
	return s.store.ClearFailed(ctx)
}

func (s *Service) ClearSent(ctx context.Context) (int64, error) {
	return s.store.ClearSent(ctx)
}

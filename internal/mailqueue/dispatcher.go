package mailqueue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mailspool/mailspool/internal/transport"
	"github.com/mailspool/mailspool/pkg/logx"
	"github.com/mailspool/mailspool/pkg/metrics"
)

// itemStore is the slice of Store the dispatcher needs.
type itemStore interface {
	FetchPendingBatch(ctx context.Context, limit int) ([]Item, error)
	MarkSent(ctx context.Context, id int64, sentAt time.Time) error
	MarkFailed(ctx context.Context, id int64, lastErr string, retryCount int) error
	MarkPending(ctx context.Context, id int64, lastErr string, retryCount int) error
	ReclaimStuck(ctx context.Context, olderThan time.Duration) (int64, error)
	Stats(ctx context.Context) (Stats, error)
}

type bodyInjector interface {
	Inject(body string, campaignID, contactID int64, senderID string) string
}

type Config struct {
	Interval    time.Duration
	BatchSize   int
	Concurrency int
	StuckAfter  time.Duration
	SendTimeout time.Duration
	SenderID    string
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 3
	}
	if c.StuckAfter <= 0 {
		c.StuckAfter = 5 * time.Minute
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 30 * time.Second
	}
	if c.SenderID == "" {
		c.SenderID = "system"
	}
	return c
}

// Dispatcher runs the scheduling loop: one tick at a time claims a
// rate-limited batch of pending items and sends them in bounded sub-groups.
type Dispatcher struct {
	store      itemStore
	transport  transport.MailTransport
	injector   bodyInjector
	limiter    *RateLimiter
	bus        *ProgressBus
	completion *CompletionMonitor
	cfg        Config
	log        *zap.SugaredLogger

	mu      sync.Mutex
	policy  RetryPolicy
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewDispatcher(store itemStore, tr transport.MailTransport, inj bodyInjector,
	limiter *RateLimiter, policy RetryPolicy, bus *ProgressBus,
	completion *CompletionMonitor, cfg Config) *Dispatcher {
	return &Dispatcher{
		store:      store,
		transport:  tr,
		injector:   inj,
		limiter:    limiter,
		policy:     policy,
		bus:        bus,
		completion: completion,
		cfg:        cfg.withDefaults(),
		log:        logx.Named("dispatcher"),
	}
}

// SetRetryPolicy applies an updated operator setting. Takes effect from the
// next tick.
func (d *Dispatcher) SetRetryPolicy(p RetryPolicy) {
	d.mu.Lock()
	d.policy = p
	d.mu.Unlock()
}

func (d *Dispatcher) retryPolicy() RetryPolicy {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.policy
}

// Start launches the loop. Calling Start on a running dispatcher is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.done = make(chan struct{})
	d.running = true

	go d.run(ctx)
	d.log.Infow("dispatcher_started",
		"interval", d.cfg.Interval.String(),
		"batch_size", d.cfg.BatchSize,
		"concurrency", d.cfg.Concurrency)
}

// Stop halts scheduling at the next tick boundary; an in-flight tick finishes
// and no item is abandoned mid-send. Stopping a stopped dispatcher is a no-op.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	cancel, done := d.cancel, d.done
	d.mu.Unlock()

	cancel()
	<-done
	d.log.Infow("dispatcher_stopped")
}

func (d *Dispatcher) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// run executes ticks from a single goroutine, so a slow tick can never
// overlap the next one; ticker fires that land mid-tick are dropped.
func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)

	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	d.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

// tick is one bounded unit of work. Store failures abort it; the next tick
// retries naturally since no item state changed.
func (d *Dispatcher) tick(ctx context.Context) {
	start := time.Now()
	defer func() {
		metrics.TickDuration.Observe(time.Since(start).Seconds())
	}()

	reclaimed, err := d.store.ReclaimStuck(ctx, d.cfg.StuckAfter)
	if err != nil {
		d.log.Errorw("reclaim_stuck_error", "error", err)
		return
	}
	if reclaimed > 0 {
		metrics.ReclaimedTotal.Add(float64(reclaimed))
		d.log.Warnw("stuck_items_reclaimed", "count", reclaimed)
	}

	admitted := d.limiter.Admit(d.cfg.BatchSize)
	if admitted == 0 {
		metrics.RateLimitedTotal.Inc()
		d.log.Debugw("tick_skipped_rate_limited")
		return
	}

	items, err := d.store.FetchPendingBatch(ctx, admitted)
	if err != nil {
		d.log.Errorw("fetch_pending_error", "error", err)
		return
	}
	if len(items) == 0 {
		d.refreshDepthGauges(ctx)
		return
	}

	d.log.Infow("tick_batch_claimed", "count", len(items), "admitted", admitted)

	run := newProgressRun(len(items))
	for lo := 0; lo < len(items); lo += d.cfg.Concurrency {
		hi := lo + d.cfg.Concurrency
		if hi > len(items) {
			hi = len(items)
		}
		var wg sync.WaitGroup
		for _, it := range items[lo:hi] {
			wg.Add(1)
			go func(it Item) {
				defer wg.Done()
				d.sendItem(ctx, it, run)
			}(it)
		}
		wg.Wait()
	}

	d.refreshDepthGauges(ctx)
}

// sendItem delivers one claimed item. Send errors never escape: they are
// folded into the item's status via the retry policy.
func (d *Dispatcher) sendItem(ctx context.Context, it Item, run *progressRun) {
	d.bus.Publish(run.snapshot(ProgressSending, it.Email, ""))

	body := d.injector.Inject(it.Body, it.CampaignID, it.ContactID, d.cfg.SenderID)

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()

	sendStart := time.Now()
	err := d.transport.SendOne(sendCtx, transport.Message{
		To:      it.Email,
		Subject: it.Subject,
		HTML:    body,
	})
	metrics.SendDuration.Observe(time.Since(sendStart).Seconds())
	d.limiter.RecordSent(1)

	if err == nil {
		if err := d.store.MarkSent(ctx, it.ID, time.Now()); err != nil {
			d.log.Errorw("mark_sent_error", "item_id", it.ID, "error", err)
			return
		}
		metrics.SentTotal.Inc()
		run.complete(true)
		d.bus.Publish(run.snapshot(ProgressSuccess, it.Email, ""))
		d.completion.OnItemTerminal(ctx, it.CampaignID)
		d.log.Infow("item_sent",
			"item_id", it.ID, "campaign_id", it.CampaignID, "email", it.Email,
			"retry_count", it.RetryCount)
		return
	}

	dec := d.retryPolicy().Decide(it, err)
	run.complete(false)

	if dec.Status == StatusFailed {
		if err := d.store.MarkFailed(ctx, it.ID, dec.Error, dec.RetryCount); err != nil {
			d.log.Errorw("mark_failed_error", "item_id", it.ID, "error", err)
			return
		}
		metrics.FailedTotal.Inc()
		d.bus.Publish(run.snapshot(ProgressError, it.Email, dec.Error))
		d.completion.OnItemTerminal(ctx, it.CampaignID)
		d.log.Warnw("item_failed_permanently",
			"item_id", it.ID, "campaign_id", it.CampaignID, "email", it.Email,
			"retry_count", dec.RetryCount, "error", dec.Error)
		return
	}

	if err := d.store.MarkPending(ctx, it.ID, dec.Error, dec.RetryCount); err != nil {
		d.log.Errorw("mark_pending_error", "item_id", it.ID, "error", err)
		return
	}
	metrics.RetriedTotal.Inc()
	d.bus.Publish(run.snapshot(ProgressError, it.Email, dec.Error))
	d.log.Infow("item_requeued",
		"item_id", it.ID, "campaign_id", it.CampaignID, "email", it.Email,
		"retry_count", dec.RetryCount, "error", dec.Error)
}

func (d *Dispatcher) refreshDepthGauges(ctx context.Context) {
	st, err := d.store.Stats(ctx)
	if err != nil {
		d.log.Debugw("stats_refresh_error", "error", err)
		return
	}
	metrics.QueueDepth.WithLabelValues(string(StatusPending)).Set(float64(st.Pending))
	metrics.QueueDepth.WithLabelValues(string(StatusProcessing)).Set(float64(st.Processing))
	metrics.QueueDepth.WithLabelValues(string(StatusSent)).Set(float64(st.Sent))
	metrics.QueueDepth.WithLabelValues(string(StatusFailed)).Set(float64(st.Failed))
}

// progressRun tracks aggregate counters for the current scheduling run.
type progressRun struct {
	mu        sync.Mutex
	total     int
	completed int
	sent      int
}

func newProgressRun(total int) *progressRun {
	return &progressRun{total: total}
}

func (r *progressRun) complete(success bool) {
	r.mu.Lock()
	r.completed++
	if success {
		r.sent++
	}
	r.mu.Unlock()
}

func (r *progressRun) snapshot(status ProgressStatus, email, errMsg string) ProgressSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	pct := 0.0
	if r.total > 0 {
		pct = float64(r.completed) / float64(r.total) * 100
	}
	return ProgressSnapshot{
		Status:       status,
		CurrentEmail: email,
		TotalEmails:  r.total,
		SentEmails:   r.sent,
		Percentage:   pct,
		Error:        errMsg,
	}
}

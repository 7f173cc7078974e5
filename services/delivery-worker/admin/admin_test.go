package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mailspool/mailspool/internal/campaign"
	"github.com/mailspool/mailspool/internal/mailqueue"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeService struct {
	running   bool
	stats     mailqueue.Stats
	enqueued  int
	retried   int64
	cleared   int64
	opErr     error
	lastPrio  int
	lastSubj  string
	lastRecip []campaign.Recipient
}

func (f *fakeService) EnqueueCampaign(ctx context.Context, campaignID int64, recipients []campaign.Recipient, subject, body string, priority int) (int, error) {
	f.lastRecip = recipients
	f.lastSubj = subject
	f.lastPrio = priority
	f.enqueued += len(recipients)
	return len(recipients), nil
}

func (f *fakeService) Start(ctx context.Context) { f.running = true }
func (f *fakeService) Stop()                     { f.running = false }
func (f *fakeService) Running() bool             { return f.running }

func (f *fakeService) GetStats(ctx context.Context) (mailqueue.Stats, error) {
	return f.stats, nil
}

func (f *fakeService) RetryAllFailed(ctx context.Context) (int64, error) {
	return f.retried, f.opErr
}

func (f *fakeService) ClearFailed(ctx context.Context) (int64, error) {
	return f.cleared, f.opErr
}

func (f *fakeService) ClearSent(ctx context.Context) (int64, error) {
	return f.cleared, f.opErr
}

func adminRouter(svc *fakeService) *gin.Engine {
	h := &Handlers{Svc: svc}
	r := gin.New()
	r.GET("/healthz", h.Healthz)
	r.GET("/stats", h.Stats)
	r.POST("/pause", h.Pause)
	r.POST("/resume", h.Resume)
	r.POST("/campaigns/:id/enqueue", h.Enqueue)
	r.POST("/queue/retry-failed", h.RetryFailed)
	r.POST("/queue/clear-failed", h.ClearFailed)
	r.POST("/queue/clear-sent", h.ClearSent)
	return r
}

func TestPauseResume(t *testing.T) {
	svc := &fakeService{running: true}
	r := adminRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/pause", nil))
	if w.Code != http.StatusOK || svc.running {
		t.Fatalf("pause failed: %d running=%v", w.Code, svc.running)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/resume", nil))
	if w.Code != http.StatusOK || !svc.running {
		t.Fatalf("resume failed: %d running=%v", w.Code, svc.running)
	}
}

func TestStatsReportsQueueAndState(t *testing.T) {
	svc := &fakeService{running: true, stats: mailqueue.Stats{Pending: 4, Failed: 1}}
	r := adminRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var resp struct {
		Running bool            `json:"running"`
		Queue   mailqueue.Stats `json:"queue"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Running || resp.Queue.Pending != 4 || resp.Queue.Failed != 1 {
		t.Fatalf("unexpected stats: %+v", resp)
	}
}

func TestEnqueue(t *testing.T) {
	svc := &fakeService{}
	r := adminRouter(svc)

	body := `{
		"subject": "Hi {{name}}", "body": "<p>offer</p>", "priority": 2,
		"recipients": [{"contact_id": 1, "email": "a@x.com"}]
	}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/campaigns/42/enqueue", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if svc.enqueued != 1 || svc.lastPrio != 2 || svc.lastSubj != "Hi {{name}}" {
		t.Fatalf("enqueue not delegated: %+v", svc)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/campaigns/abc/enqueue", strings.NewReader(body)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400 for non-numeric id, got %d", w.Code)
	}
}

func TestMaintenanceOpsDelegateToService(t *testing.T) {
	svc := &fakeService{retried: 3, cleared: 7}
	r := adminRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/queue/retry-failed", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"retried":3`) {
		t.Fatalf("retry response wrong: %d %s", w.Code, w.Body.String())
	}

	for _, path := range []string{"/queue/clear-failed", "/queue/clear-sent"} {
		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"cleared":7`) {
			t.Fatalf("%s response wrong: %d %s", path, w.Code, w.Body.String())
		}
	}

	svc.opErr = errors.New("db down")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/queue/retry-failed", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("want 500 on store error, got %d", w.Code)
	}
}

package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"career-progress-service/models"
	"career-progress-service/services"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CatalogSyncWorker mirrors the badge catalog published by the content service.
type CatalogSyncWorker struct {
	URL        string
	Token      string
	Interval   time.Duration
	HTTPClient *http.Client
	DB         *gorm.DB
	Log        *zap.Logger
}

func NewCatalogSyncWorker(db *gorm.DB, log *zap.Logger, url, token string, interval time.Duration) *CatalogSyncWorker {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &CatalogSyncWorker{
		URL:      url,
		Token:    token,
		Interval: interval,
		DB:       db,
		Log:      log,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// FetchCatalog downloads the remote catalog. The response is either a bare
// JSON array of badges or {"badges": [...]}.
func (w *CatalogSyncWorker) FetchCatalog(ctx context.Context) ([]models.Badge, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if w.Token != "" {
		req.Header.Set("X-Service-Token", w.Token)
	}

	resp, err := w.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call catalog service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("catalog service returned status %d: %s", resp.StatusCode, string(body))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog response: %w", err)
	}

	var badges []models.Badge
	if err := json.Unmarshal(raw, &badges); err == nil {
		return badges, nil
	}
	var wrapped struct {
		Badges []models.Badge `json:"badges"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}
	return wrapped.Badges, nil
}

// SyncOnce fetches the catalog and upserts it, returning how many entries were written.
func (w *CatalogSyncWorker) SyncOnce(ctx context.Context) (int, error) {
	badges, err := w.FetchCatalog(ctx)
	if err != nil {
		return 0, err
	}
	if len(badges) == 0 {
		return 0, nil
	}
	n, err := services.UpsertCatalog(ctx, w.DB, badges)
	if err != nil {
		return 0, err
	}
	if skipped := len(badges) - n; skipped > 0 {
		w.Log.Warn("[CATALOG] skipped invalid catalog entries", zap.Int("skipped", skipped))
	}
	return n, nil
}

// Run syncs immediately and then on every tick until ctx is done. A failed
// sync is logged and retried on the next tick.
func (w *CatalogSyncWorker) Run(ctx context.Context) {
	w.Log.Info("🔁 [CATALOG] sync worker started", zap.String("url", w.URL), zap.Duration("interval", w.Interval))

	w.syncAndLog(ctx)

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Log.Info("⏹️ [CATALOG] sync worker stopped")
			return
		case <-ticker.C:
			w.syncAndLog(ctx)
		}
	}
}

func (w *CatalogSyncWorker) syncAndLog(ctx context.Context) {
	n, err := w.SyncOnce(ctx)
	if err != nil {
		w.Log.Error("❌ [CATALOG] sync failed", zap.Error(err))
		return
	}
	w.Log.Info("✅ [CATALOG] catalog synced", zap.Int("badges", n))
}

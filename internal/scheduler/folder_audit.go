package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/clip/internal/cache"
	"github.com/MrSnakeDoc/clip/internal/logger"
	"github.com/MrSnakeDoc/clip/internal/metrics"
	"github.com/MrSnakeDoc/clip/internal/outline"
)

// Prober looks up a document. A nil document means the lookup was not OK.
type Prober interface {
	GetDocument(ctx context.Context, id string) (*outline.Document, error)
}

// ProberFunc returns the prober for the current settings.
type ProberFunc func(ctx context.Context) (Prober, error)

// FolderAuditor periodically probes every cached domain folder and forgets the
// ones Outline reports as deleted or archived, so the next clip recreates them.
type FolderAuditor struct {
	cache    *cache.Service
	prober   ProberFunc
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// AuditResult summarizes one pass.
type AuditResult struct {
	Checked   int `json:"checked"`
	Forgotten int `json:"forgotten"`
	Failed    int `json:"failed"`
}

// NewFolderAuditor creates a new folder auditor
func NewFolderAuditor(c *cache.Service, prober ProberFunc, log logger.Logger, interval time.Duration) *FolderAuditor {
	return &FolderAuditor{
		cache:    c,
		prober:   prober,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs one audit immediately, then every interval until Stop or ctx is done.
func (a *FolderAuditor) Start(ctx context.Context) error {
	if _, err := a.Audit(ctx); err != nil {
		a.logger.Warn("initial folder audit failed", logger.Error(err))
	}

	ticker := time.NewTicker(a.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := a.Audit(ctx); err != nil {
					a.logger.Error("folder audit failed", logger.Error(err))
				}
			case <-a.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the auditor
func (a *FolderAuditor) Stop() {
	close(a.stopCh)
}

// Audit probes each cached folder once. Only a document confirmed deleted or
// archived is forgotten; failed probes leave the mapping for the clip path to judge.
func (a *FolderAuditor) Audit(ctx context.Context) (AuditResult, error) {
	var res AuditResult

	entries, err := a.cache.Entries(ctx)
	if err != nil {
		return res, err
	}
	if len(entries) == 0 {
		metrics.SetCachedFolders(0)
		a.logger.Debug("no cached folders to audit")
		return res, nil
	}

	prober, err := a.prober(ctx)
	if err != nil {
		return res, err
	}

	for _, e := range entries {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Checked++

		doc, err := prober.GetDocument(ctx, e.FolderID)
		if err != nil {
			res.Failed++
			a.logger.Warn("folder probe failed",
				logger.String("domain", e.Domain),
				logger.String("folder_id", e.FolderID),
				logger.Error(err))
			continue
		}
		if doc == nil || !doc.Gone() {
			continue
		}

		removed, err := a.cache.ForgetIf(ctx, e.Domain, e.FolderID)
		if err != nil {
			return res, err
		}
		if removed {
			res.Forgotten++
			a.logger.Info("forgot deleted domain folder",
				logger.String("domain", e.Domain),
				logger.String("folder_id", e.FolderID))
		}
	}

	metrics.SetCachedFolders(res.Checked - res.Forgotten)
	if res.Forgotten > 0 || res.Failed > 0 {
		a.logger.Info("folder audit completed",
			logger.Int("checked", res.Checked),
			logger.Int("forgotten", res.Forgotten),
			logger.Int("failed", res.Failed))
	}
	return res, nil
}

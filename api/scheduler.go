/*
scheduler.go - Periodic dashboard cross-check

PURPOSE:
  Recomputes the configured dashboard on a timer and logs any KPI that no
  longer matches the table total it is declared to reconcile with. A
  mismatch means a record landed outside every group of a table, which is
  exactly what the schema's required group fields exist to prevent.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Checks once immediately on Start
  - Keeps the result of the last run for the health endpoint and tests

CONFIGURATION:
  - CheckInterval: How often to check (default: 5 minutes)
  - Enabled: Whether the auditor is active (default: true)

USAGE:
  auditor := NewAuditor(ec, dashboard, logger)
  auditor.Start()
  // ... later
  auditor.Stop()

SEE ALSO:
  - engine/dashboard.go: Snapshot.CrossCheck
  - handlers.go: GetDashboard reports the same mismatches per request
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/warp/tally/engine"
	"go.uber.org/zap"
)

// DefaultAuditInterval is used when no interval is configured.
const DefaultAuditInterval = 5 * time.Minute

// AuditResult is the outcome of one cross-check run.
type AuditResult struct {
	CheckedAt  time.Time
	Records    int
	Mismatches []string
}

// Auditor periodically cross-checks a dashboard.
type Auditor struct {
	Engine        *engine.EngineContext
	Dashboard     engine.DashboardSpec
	CheckInterval time.Duration
	Enabled       bool

	logger *zap.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	last   AuditResult
}

// NewAuditor creates an auditor for the given dashboard.
func NewAuditor(ec *engine.EngineContext, dashboard engine.DashboardSpec, logger *zap.Logger) *Auditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Auditor{
		Engine:        ec,
		Dashboard:     dashboard,
		CheckInterval: DefaultAuditInterval,
		Enabled:       true,
		logger:        logger.Named("auditor"),
	}
}

// Start begins periodic checks.
func (a *Auditor) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.Enabled || a.CheckInterval <= 0 {
		a.logger.Info("disabled, not starting")
		return
	}
	if a.ticker != nil {
		return
	}

	a.ticker = time.NewTicker(a.CheckInterval)
	a.stop = make(chan struct{})
	a.wg.Add(1)
	go a.run(a.ticker, a.stop)

	a.logger.Info("started", zap.Duration("interval", a.CheckInterval))
}

// Stop stops the auditor and waits for a running check to finish.
func (a *Auditor) Stop() {
	a.mu.Lock()
	if a.ticker == nil {
		a.mu.Unlock()
		return
	}
	a.ticker.Stop()
	close(a.stop)
	a.ticker = nil
	a.mu.Unlock()

	a.wg.Wait()
	a.logger.Info("stopped")
}

func (a *Auditor) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer a.wg.Done()

	a.RunOnce(context.Background())

	for {
		select {
		case <-ticker.C:
			a.RunOnce(context.Background())
		case <-stop:
			return
		}
	}
}

// RunOnce computes the dashboard and records its cross-check mismatches.
func (a *Auditor) RunOnce(ctx context.Context) (AuditResult, error) {
	snap, err := a.Engine.Dashboard(ctx, a.Dashboard, engine.DateRange{})
	if err != nil {
		a.logger.Error("dashboard failed", zap.Error(err))
		return AuditResult{}, err
	}

	res := AuditResult{CheckedAt: snap.GeneratedAt, Records: snap.RecordCount}
	for _, mismatch := range snap.CrossCheck() {
		res.Mismatches = append(res.Mismatches, mismatch.Error())
	}

	if len(res.Mismatches) > 0 {
		a.logger.Warn("cross-check failed",
			zap.String("dashboard", snap.Name),
			zap.Int("records", res.Records),
			zap.Strings("mismatches", res.Mismatches),
		)
	} else {
		a.logger.Debug("cross-check passed",
			zap.String("dashboard", snap.Name),
			zap.Int("records", res.Records),
		)
	}

	a.mu.Lock()
	a.last = res
	a.mu.Unlock()
	return res, nil
}

// Last returns the result of the most recent run.
func (a *Auditor) Last() AuditResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

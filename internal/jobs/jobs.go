package jobs

import (
	"log/slog"
	"time"

	"github.com/echowrite/echowrite/internal/services"
	"gorm.io/gorm"
)

// Runner owns the periodic maintenance jobs: monthly free-quota
// resets, expired session sweeps and subscription auto-renewals.
// Each job is also directly callable for one-off runs.
type Runner struct {
	db            *gorm.DB
	subscriptions *services.SubscriptionService
	sessions      *services.SessionService
	done          chan struct{}
}

func NewRunner(db *gorm.DB, subscriptions *services.SubscriptionService, sessions *services.SessionService) *Runner {
	return &Runner{
		db:            db,
		subscriptions: subscriptions,
		sessions:      sessions,
		done:          make(chan struct{}),
	}
}

// Start launches the job tickers. Intervals are deliberately shorter
// than the periods they enforce; every job is idempotent so overlap
// with other instances is harmless.
func (r *Runner) Start() {
	go r.loop(1*time.Hour, "quota reset", r.runQuotaReset)
	go r.loop(1*time.Hour, "session sweep", r.runSessionSweep)
	go r.loop(6*time.Hour, "subscription renewal", r.runRenewals)
	slog.Info("background jobs started")
}

func (r *Runner) Stop() {
	close(r.done)
}

func (r *Runner) loop(interval time.Duration, name string, job func()) {
	job()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			job()
		case <-r.done:
			return
		}
	}
}

func (r *Runner) runQuotaReset() {
	n, err := r.ResetMonthlyQuotas()
	if err != nil {
		slog.Error("quota reset job failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("monthly free quotas reset", "users", n)
	}
}

func (r *Runner) runSessionSweep() {
	n, err := r.sessions.CleanupExpiredSessions()
	if err != nil {
		slog.Error("session sweep job failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("expired anonymous sessions removed", "sessions", n)
	}
}

func (r *Runner) runRenewals() {
	report, err := r.subscriptions.ProcessAutoRenewals()
	if err != nil {
		slog.Error("renewal job failed", "error", err)
		return
	}
	if report.Renewed > 0 || report.Failed > 0 {
		slog.Info("subscription renewals processed", "renewed", report.Renewed, "failed", report.Failed)
	}
}

// ResetMonthlyQuotas zeroes the free counter for every user whose last
// reset predates the current calendar month. The guard in the WHERE
// clause makes the statement idempotent, so concurrent runs and the
// lazy per-request reset cannot double-reset anyone.
func (r *Runner) ResetMonthlyQuotas() (int64, error) {
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	result := r.db.Exec(
		"UPDATE users SET free_quota_used = 0, last_quota_reset = ? WHERE last_quota_reset < ?",
		now, monthStart,
	)
	return result.RowsAffected, result.Error
}

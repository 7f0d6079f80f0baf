// Package health runs integrity probes over the referral graph, the
// commission ledger and the error log, and aggregates them into a
// scored report.
package health

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/refstore/referral-engine/internal/metrics"
	"github.com/refstore/referral-engine/internal/model"
)

// Penalty per failing check. The score starts at 100 and floors at 0.
const (
	penaltyReferralIntegrity = 20
	penaltyStalePending      = 15
	penaltyErrorVolume       = 10
	penaltySlowStorage       = 15
	penaltyStorageFailure    = 50
)

// Probe thresholds.
const (
	stalePendingAge   = 7 * 24 * time.Hour
	errorWindow       = time.Hour
	errorVolumeLimit  = 5
	slowProbeDuration = time.Second
)

// Check names, also used as recommendation keys.
const (
	checkReferralIntegrity = "referral_integrity"
	checkLedgerIntegrity   = "ledger_integrity"
	checkErrorVolume       = "error_volume"
	checkStorageLatency    = "storage_latency"
)

// recommendations maps each failing check onto its fixed advice.
var recommendations = map[string]string{
	checkReferralIntegrity: "repair broken referral references before the next network rebuild",
	checkLedgerIntegrity:   "process stale pending bonuses",
	checkErrorVolume:       "investigate the recent error spike in the error log",
	checkStorageLatency:    "check database connectivity and query performance",
}

const stableRecommendation = "referral system is stable"

// Collaborator slices the monitor reads through. The concrete types are
// the repositories; tests use in-memory fakes.
type (
	userLister interface {
		ListAll(ctx context.Context) ([]model.User, error)
	}
	ledgerProbe interface {
		CountStalePending(ctx context.Context, cutoff time.Time) (int, error)
	}
	errorCounter interface {
		CountSince(ctx context.Context, since time.Time) (int, error)
	}
	storageProbe interface {
		Count(ctx context.Context) (int, error)
	}
)

// Monitor produces health reports on demand. It holds no state between
// runs.
type Monitor struct {
	users   userLister
	ledger  ledgerProbe
	errors  errorCounter
	storage storageProbe
	log     *zap.Logger
	now     func() time.Time
}

// NewMonitor wires a Monitor over its storage collaborators.
func NewMonitor(users userLister, ledger ledgerProbe, errors errorCounter, storage storageProbe, log *zap.Logger) *Monitor {
	return &Monitor{
		users:   users,
		ledger:  ledger,
		errors:  errors,
		storage: storage,
		log:     log,
		now:     time.Now,
	}
}

// Report runs every probe and aggregates the results. Probe errors
// degrade the score instead of failing the report; a report is always
// produced.
func (m *Monitor) Report(ctx context.Context) model.HealthReport {
	now := m.now().UTC()
	checks := []model.HealthCheckResult{
		m.checkReferralIntegrity(ctx),
		m.checkLedgerIntegrity(ctx, now),
		m.checkErrorVolume(ctx, now),
		m.checkStorageLatency(ctx),
	}

	score := 100
	recs := make([]string, 0, len(checks))
	for _, c := range checks {
		score -= c.Score
		if !c.Passed {
			recs = append(recs, recommendations[c.Name])
		}
	}
	if score < 0 {
		score = 0
	}
	if len(recs) == 0 {
		recs = append(recs, stableRecommendation)
	}

	metrics.HealthScore.Set(float64(score))
	m.log.Info("health report generated",
		zap.Int("score", score),
		zap.String("status", model.HealthStatus(score)))

	return model.HealthReport{
		Score:           score,
		Status:          model.HealthStatus(score),
		Checks:          checks,
		Recommendations: recs,
		GeneratedAt:     now,
	}
}

// checkReferralIntegrity scans the whole directory for referrer ids
// that point at missing users and applied codes that resolve to no one.
func (m *Monitor) checkReferralIntegrity(ctx context.Context) model.HealthCheckResult {
	res := model.HealthCheckResult{Name: checkReferralIntegrity, Passed: true, Issues: []string{}}
	users, err := m.users.ListAll(ctx)
	if err != nil {
		res.Passed = false
		res.Score = penaltyReferralIntegrity
		res.Issues = append(res.Issues, fmt.Sprintf("user scan failed: %v", err))
		return res
	}

	byID := make(map[uint64]bool, len(users))
	byCode := make(map[string]bool, len(users))
	for _, u := range users {
		byID[u.ID] = true
		if u.ReferralCode != "" {
			byCode[u.ReferralCode] = true
		}
	}
	for _, u := range users {
		if u.ReferrerID != nil && !byID[*u.ReferrerID] {
			res.Issues = append(res.Issues,
				fmt.Sprintf("user %d references missing referrer %d", u.ID, *u.ReferrerID))
		}
		if u.ReferrerID == nil && u.AppliedReferralCode != nil && *u.AppliedReferralCode != "" && !byCode[*u.AppliedReferralCode] {
			res.Issues = append(res.Issues,
				fmt.Sprintf("user %d applied unknown code %s", u.ID, *u.AppliedReferralCode))
		}
	}
	if len(res.Issues) > 0 {
		res.Passed = false
		res.Score = penaltyReferralIntegrity
	}
	return res
}

// checkLedgerIntegrity fails when pending entries have sat unprocessed
// past the stale cutoff.
func (m *Monitor) checkLedgerIntegrity(ctx context.Context, now time.Time) model.HealthCheckResult {
	res := model.HealthCheckResult{Name: checkLedgerIntegrity, Passed: true, Issues: []string{}}
	stale, err := m.ledger.CountStalePending(ctx, now.Add(-stalePendingAge))
	if err != nil {
		res.Passed = false
		res.Score = penaltyStalePending
		res.Issues = append(res.Issues, fmt.Sprintf("ledger scan failed: %v", err))
		return res
	}
	if stale > 0 {
		res.Passed = false
		res.Score = penaltyStalePending
		res.Issues = append(res.Issues,
			fmt.Sprintf("%d pending entries older than 7 days", stale))
	}
	return res
}

// checkErrorVolume fails when the recent window holds more errors than
// the limit.
func (m *Monitor) checkErrorVolume(ctx context.Context, now time.Time) model.HealthCheckResult {
	res := model.HealthCheckResult{Name: checkErrorVolume, Passed: true, Issues: []string{}}
	n, err := m.errors.CountSince(ctx, now.Add(-errorWindow))
	if err != nil {
		res.Passed = false
		res.Score = penaltyErrorVolume
		res.Issues = append(res.Issues, fmt.Sprintf("error log scan failed: %v", err))
		return res
	}
	if n > errorVolumeLimit {
		res.Passed = false
		res.Score = penaltyErrorVolume
		res.Issues = append(res.Issues,
			fmt.Sprintf("%d errors in the last hour (limit %d)", n, errorVolumeLimit))
	}
	return res
}

// checkStorageLatency times a trivial snapshot read. A failed read is
// weighted much heavier than a slow one.
func (m *Monitor) checkStorageLatency(ctx context.Context) model.HealthCheckResult {
	res := model.HealthCheckResult{Name: checkStorageLatency, Passed: true, Issues: []string{}}
	start := time.Now()
	_, err := m.storage.Count(ctx)
	elapsed := time.Since(start)
	if err != nil {
		res.Passed = false
		res.Score = penaltyStorageFailure
		res.Issues = append(res.Issues, fmt.Sprintf("read probe failed: %v", err))
		return res
	}
	if elapsed > slowProbeDuration {
		res.Passed = false
		res.Score = penaltySlowStorage
		res.Issues = append(res.Issues,
			fmt.Sprintf("read probe took %s (limit %s)", elapsed.Round(time.Millisecond), slowProbeDuration))
	}
	return res
}

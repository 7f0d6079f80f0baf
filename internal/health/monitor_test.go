package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/refstore/referral-engine/internal/model"
)

type fakeUsers struct {
	users []model.User
	err   error
}

func (f *fakeUsers) ListAll(context.Context) ([]model.User, error) { return f.users, f.err }

type fakeLedger struct {
	stale int
	err   error
}

func (f *fakeLedger) CountStalePending(context.Context, time.Time) (int, error) {
	return f.stale, f.err
}

type fakeErrors struct {
	recent int
	err    error
}

func (f *fakeErrors) CountSince(context.Context, time.Time) (int, error) {
	return f.recent, f.err
}

type fakeStorage struct {
	delay time.Duration
	err   error
}

func (f *fakeStorage) Count(context.Context) (int, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return 0, f.err
}

func uptr(v uint64) *uint64 { return &v }
func sptr(v string) *string { return &v }

func newTestMonitor(users *fakeUsers, ledger *fakeLedger, errs *fakeErrors, storage *fakeStorage) *Monitor {
	return NewMonitor(users, ledger, errs, storage, zap.NewNop())
}

func healthyFixtures() (*fakeUsers, *fakeLedger, *fakeErrors, *fakeStorage) {
	return &fakeUsers{users: []model.User{
			{ID: 1, ReferralCode: "AAAA0001"},
			{ID: 2, ReferralCode: "AAAA0002", ReferrerID: uptr(1)},
		}},
		&fakeLedger{},
		&fakeErrors{},
		&fakeStorage{}
}

func findCheck(t *testing.T, report model.HealthReport, name string) model.HealthCheckResult {
	t.Helper()
	for _, c := range report.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %q missing from report", name)
	return model.HealthCheckResult{}
}

func TestReportAllHealthy(t *testing.T) {
	m := newTestMonitor(healthyFixtures())
	report := m.Report(context.Background())

	if report.Score != 100 {
		t.Errorf("score = %d, want 100", report.Score)
	}
	if report.Status != model.HealthExcellent {
		t.Errorf("status = %q, want excellent", report.Status)
	}
	if len(report.Recommendations) != 1 || report.Recommendations[0] != stableRecommendation {
		t.Errorf("recommendations = %v, want only the stable message", report.Recommendations)
	}
	for _, c := range report.Checks {
		if !c.Passed || c.Score != 0 {
			t.Errorf("check %q = %+v, want passing with zero penalty", c.Name, c)
		}
	}
}

func TestReportPenalties(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*fakeUsers, *fakeLedger, *fakeErrors, *fakeStorage)
		failedCheck string
		wantScore   int
		wantStatus  string
	}{
		{
			name: "broken referrer reference",
			mutate: func(u *fakeUsers, _ *fakeLedger, _ *fakeErrors, _ *fakeStorage) {
				u.users = append(u.users, model.User{ID: 9, ReferralCode: "AAAA0009", ReferrerID: uptr(777)})
			},
			failedCheck: checkReferralIntegrity,
			wantScore:   80,
			wantStatus:  model.HealthExcellent,
		},
		{
			name: "dangling applied code",
			mutate: func(u *fakeUsers, _ *fakeLedger, _ *fakeErrors, _ *fakeStorage) {
				u.users = append(u.users, model.User{ID: 9, ReferralCode: "AAAA0009", AppliedReferralCode: sptr("NOPE0000")})
			},
			failedCheck: checkReferralIntegrity,
			wantScore:   80,
			wantStatus:  model.HealthExcellent,
		},
		{
			name: "stale pending entries",
			mutate: func(_ *fakeUsers, l *fakeLedger, _ *fakeErrors, _ *fakeStorage) {
				l.stale = 2
			},
			failedCheck: checkLedgerIntegrity,
			wantScore:   85,
			wantStatus:  model.HealthExcellent,
		},
		{
			name: "error volume over limit",
			mutate: func(_ *fakeUsers, _ *fakeLedger, e *fakeErrors, _ *fakeStorage) {
				e.recent = 6
			},
			failedCheck: checkErrorVolume,
			wantScore:   90,
			wantStatus:  model.HealthExcellent,
		},
		{
			name: "error volume at limit passes",
			mutate: func(_ *fakeUsers, _ *fakeLedger, e *fakeErrors, _ *fakeStorage) {
				e.recent = 5
			},
			failedCheck: "",
			wantScore:   100,
			wantStatus:  model.HealthExcellent,
		},
		{
			name: "storage read failure",
			mutate: func(_ *fakeUsers, _ *fakeLedger, _ *fakeErrors, s *fakeStorage) {
				s.err = errors.New("connection refused")
			},
			failedCheck: checkStorageLatency,
			wantScore:   50,
			wantStatus:  model.HealthWarning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, ledger, errs, storage := healthyFixtures()
			tt.mutate(users, ledger, errs, storage)
			report := newTestMonitor(users, ledger, errs, storage).Report(context.Background())

			if report.Score != tt.wantScore {
				t.Errorf("score = %d, want %d", report.Score, tt.wantScore)
			}
			if report.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", report.Status, tt.wantStatus)
			}
			if tt.failedCheck == "" {
				return
			}
			c := findCheck(t, report, tt.failedCheck)
			if c.Passed {
				t.Errorf("check %q passed, want failure", tt.failedCheck)
			}
			if len(c.Issues) == 0 {
				t.Errorf("check %q has no issues listed", tt.failedCheck)
			}
			want := recommendations[tt.failedCheck]
			found := false
			for _, r := range report.Recommendations {
				if r == want {
					found = true
				}
			}
			if !found {
				t.Errorf("recommendations %v missing %q", report.Recommendations, want)
			}
		})
	}
}

func TestReportStalePendingRecommendation(t *testing.T) {
	users, ledger, errs, storage := healthyFixtures()
	ledger.stale = 1
	report := newTestMonitor(users, ledger, errs, storage).Report(context.Background())

	if report.Score != 85 {
		t.Errorf("score = %d, want 85", report.Score)
	}
	found := false
	for _, r := range report.Recommendations {
		if r == "process stale pending bonuses" {
			found = true
		}
	}
	if !found {
		t.Errorf("recommendations %v missing stale pending advice", report.Recommendations)
	}
}

func TestReportEveryCheckFailing(t *testing.T) {
	users := &fakeUsers{err: errors.New("db down")}
	ledger := &fakeLedger{err: errors.New("db down")}
	errs := &fakeErrors{err: errors.New("db down")}
	storage := &fakeStorage{err: errors.New("db down")}

	report := newTestMonitor(users, ledger, errs, storage).Report(context.Background())

	// Worst case across every check: 100 - 20 - 15 - 10 - 50 = 5.
	if report.Score != 5 {
		t.Errorf("score = %d, want 5", report.Score)
	}
	if report.Status != model.HealthCritical {
		t.Errorf("status = %q, want critical", report.Status)
	}
}

func TestReportSlowStorageProbe(t *testing.T) {
	if testing.Short() {
		t.Skip("sleeps past the probe threshold")
	}
	users, ledger, errs, storage := healthyFixtures()
	storage.delay = slowProbeDuration + 100*time.Millisecond
	report := newTestMonitor(users, ledger, errs, storage).Report(context.Background())

	if report.Score != 85 {
		t.Errorf("score = %d, want 85", report.Score)
	}
	c := findCheck(t, report, checkStorageLatency)
	if c.Passed || c.Score != penaltySlowStorage {
		t.Errorf("latency check = %+v, want slow-probe failure", c)
	}
}

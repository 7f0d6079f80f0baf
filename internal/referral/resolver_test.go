package referral

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/refstore/referral-engine/internal/model"
	"github.com/refstore/referral-engine/internal/repository"
)

// fakeDirectory serves users from memory, mimicking UserRepo lookups.
type fakeDirectory struct {
	users map[uint64]model.User
}

func (f *fakeDirectory) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeDirectory) GetByReferralCode(_ context.Context, code string) (model.User, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, u := range f.users {
		if strings.ToUpper(u.ReferralCode) == code {
			return u, nil
		}
	}
	return model.User{}, repository.ErrCodeNotFound
}

func uptr(v uint64) *uint64 { return &v }
func sptr(v string) *string { return &v }

func newTestResolver(users ...model.User) *Resolver {
	dir := &fakeDirectory{users: make(map[uint64]model.User)}
	for _, u := range users {
		dir.users[u.ID] = u
	}
	return NewResolver(dir, zap.NewNop())
}

func TestResolveChain(t *testing.T) {
	// 1 <- 2 <- 3 <- 4 <- 5, five generations deep.
	deep := []model.User{
		{ID: 1, ReferralCode: "AAAA0001"},
		{ID: 2, ReferralCode: "AAAA0002", ReferrerID: uptr(1)},
		{ID: 3, ReferralCode: "AAAA0003", ReferrerID: uptr(2)},
		{ID: 4, ReferralCode: "AAAA0004", ReferrerID: uptr(3)},
		{ID: 5, ReferralCode: "AAAA0005", ReferrerID: uptr(4)},
	}

	tests := []struct {
		name    string
		users   []model.User
		buyer   uint64
		wantIDs []uint64
	}{
		{
			name:    "full chain capped at three levels",
			users:   deep,
			buyer:   5,
			wantIDs: []uint64{4, 3, 2},
		},
		{
			name:    "root buyer has empty chain",
			users:   deep,
			buyer:   1,
			wantIDs: nil,
		},
		{
			name: "chain shorter than cap",
			users: []model.User{
				{ID: 1, ReferralCode: "AAAA0001"},
				{ID: 2, ReferralCode: "AAAA0002", ReferrerID: uptr(1)},
			},
			buyer:   2,
			wantIDs: []uint64{1},
		},
		{
			name: "fallback through applied code",
			users: []model.User{
				{ID: 1, ReferralCode: "ROOT1234"},
				{ID: 2, ReferralCode: "AAAA0002", AppliedReferralCode: sptr("root1234")},
			},
			buyer:   2,
			wantIDs: []uint64{1},
		},
		{
			name: "dangling applied code truncates",
			users: []model.User{
				{ID: 2, ReferralCode: "AAAA0002", AppliedReferralCode: sptr("NOSUCH00")},
			},
			buyer:   2,
			wantIDs: nil,
		},
		{
			name: "missing referrer truncates",
			users: []model.User{
				{ID: 2, ReferralCode: "AAAA0002", ReferrerID: uptr(99)},
			},
			buyer:   2,
			wantIDs: nil,
		},
		{
			name: "cycle stops the walk",
			users: []model.User{
				{ID: 1, ReferralCode: "AAAA0001", ReferrerID: uptr(2)},
				{ID: 2, ReferralCode: "AAAA0002", ReferrerID: uptr(1)},
			},
			buyer:   2,
			wantIDs: []uint64{1},
		},
		{
			name: "self referral code ignored",
			users: []model.User{
				{ID: 1, ReferralCode: "AAAA0001", AppliedReferralCode: sptr("AAAA0001")},
			},
			buyer:   1,
			wantIDs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(tt.users...)
			buyer, err := r.users.GetByID(context.Background(), tt.buyer)
			if err != nil {
				t.Fatalf("buyer lookup: %v", err)
			}
			chain, err := r.ResolveChain(context.Background(), buyer)
			if err != nil {
				t.Fatalf("ResolveChain: %v", err)
			}
			if len(chain) != len(tt.wantIDs) {
				t.Fatalf("chain length = %d, want %d", len(chain), len(tt.wantIDs))
			}
			for i, link := range chain {
				if link.Referrer.ID != tt.wantIDs[i] {
					t.Errorf("chain[%d].Referrer.ID = %d, want %d", i, link.Referrer.ID, tt.wantIDs[i])
				}
				if link.Level != i+1 {
					t.Errorf("chain[%d].Level = %d, want %d", i, link.Level, i+1)
				}
			}
		})
	}
}

func TestResolveForest(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	users := []model.User{
		{ID: 1, ReferralCode: "ROOT0001"},
		{ID: 5, ReferralCode: "AAAA0005", ReferrerID: uptr(1)},
		{ID: 9, ReferralCode: "AAAA0009", AppliedReferralCode: sptr("AAAA0005")},
		{ID: 12, ReferralCode: "AAAA0012", ReferrerID: uptr(9)},
		{ID: 20, ReferralCode: "AAAA0020", ReferrerID: uptr(12)}, // depth 4, no edge
		{ID: 30, ReferralCode: "LONE0030"},                      // second root, no children
	}

	r := newTestResolver(users...)
	roots, edges := r.ResolveForest(users, now)

	if len(roots) != 2 {
		t.Fatalf("roots = %d, want 2", len(roots))
	}
	if roots[0].User.ID != 1 || roots[1].User.ID != 30 {
		t.Fatalf("root ids = %d, %d, want 1, 30", roots[0].User.ID, roots[1].User.ID)
	}
	if got := roots[0].NetworkSize(); got != 4 {
		t.Errorf("NetworkSize(root 1) = %d, want 4", got)
	}

	want := map[uint64]model.ReferralEdge{
		5:  {UserID: 5, ReferrerID: 1, Level: 1, Path: "1->5"},
		9:  {UserID: 9, ReferrerID: 5, Level: 2, Path: "1->5->9"},
		12: {UserID: 12, ReferrerID: 9, Level: 3, Path: "1->5->9->12"},
	}
	if len(edges) != len(want) {
		t.Fatalf("edges = %d, want %d", len(edges), len(want))
	}
	for _, e := range edges {
		w, ok := want[e.UserID]
		if !ok {
			t.Errorf("unexpected edge for user %d", e.UserID)
			continue
		}
		if e.ReferrerID != w.ReferrerID || e.Level != w.Level || e.Path != w.Path {
			t.Errorf("edge for user %d = {referrer %d level %d path %q}, want {referrer %d level %d path %q}",
				e.UserID, e.ReferrerID, e.Level, e.Path, w.ReferrerID, w.Level, w.Path)
		}
		if !e.IsActive {
			t.Errorf("edge for user %d not active", e.UserID)
		}
		if !e.VerifiedAt.Equal(now) {
			t.Errorf("edge for user %d VerifiedAt = %v, want %v", e.UserID, e.VerifiedAt, now)
		}
	}
}

func TestResolveForestCycleWithoutRoot(t *testing.T) {
	users := []model.User{
		{ID: 1, ReferralCode: "AAAA0001", ReferrerID: uptr(2)},
		{ID: 2, ReferralCode: "AAAA0002", ReferrerID: uptr(1)},
	}
	r := newTestResolver(users...)
	roots, edges := r.ResolveForest(users, time.Now())
	if len(roots) != 0 {
		t.Fatalf("roots = %d, want 0", len(roots))
	}
	if len(edges) != 0 {
		t.Fatalf("edges = %d, want 0", len(edges))
	}
}

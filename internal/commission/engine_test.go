package commission

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/refstore/referral-engine/internal/model"
	"github.com/refstore/referral-engine/internal/queue"
	"github.com/refstore/referral-engine/internal/referral"
	"github.com/refstore/referral-engine/internal/repository"
)

type fakeUsers struct{ users map[uint64]model.User }

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByReferralCode(_ context.Context, code string) (model.User, error) {
	for _, u := range f.users {
		if u.ReferralCode == code {
			return u, nil
		}
	}
	return model.User{}, repository.ErrCodeNotFound
}

type fakeOrders struct{ orders map[uint64]model.Order }

func (f *fakeOrders) GetByID(_ context.Context, id uint64) (model.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return model.Order{}, repository.ErrOrderNotFound
	}
	return o, nil
}

// fakeLedger stores entries in memory and enforces the unique
// (order, referrer, level) triple the way the SQL repository does.
type fakeLedger struct {
	entries []model.LedgerEntry
	nextID  uint64
}

func (f *fakeLedger) CreateForOrder(_ context.Context, entries []model.LedgerEntry) ([]model.LedgerEntry, error) {
	written := make([]model.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		exists := false
		for _, have := range f.entries {
			if have.SourceOrderID == e.SourceOrderID && have.ReferrerID == e.ReferrerID && have.Level == e.Level {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		f.nextID++
		e.ID = f.nextID
		f.entries = append(f.entries, e)
		written = append(written, e)
	}
	return written, nil
}

func uptr(v uint64) *uint64 { return &v }
func sptr(v string) *string { return &v }

func newTestEngine(users []model.User, orders []model.Order, ledger *fakeLedger, publish PublishFunc) *Engine {
	dir := &fakeUsers{users: make(map[uint64]model.User)}
	for _, u := range users {
		dir.users[u.ID] = u
	}
	ord := &fakeOrders{orders: make(map[uint64]model.Order)}
	for _, o := range orders {
		ord.orders[o.ID] = o
	}
	resolver := referral.NewResolver(dir, zap.NewNop())
	return NewEngine(dir, ord, ledger, resolver, publish, zap.NewNop())
}

func TestDistributeThreeLevelChain(t *testing.T) {
	// Buyer 4 is referred by 3, who is referred by 2, who is referred by 1.
	users := []model.User{
		{ID: 1, Name: "Ava", ReferralCode: "AAAA0001"},
		{ID: 2, Name: "Ben", ReferralCode: "AAAA0002", ReferrerID: uptr(1)},
		{ID: 3, Name: "Cal", ReferralCode: "AAAA0003", ReferrerID: uptr(2)},
		{ID: 4, Name: "Dee", ReferralCode: "AAAA0004", ReferrerID: uptr(3)},
	}
	orders := []model.Order{{ID: 100, BuyerID: 4, Total: decimal.NewFromInt(1000)}}
	ledger := &fakeLedger{}

	var published []queue.CommissionCreditedEvent
	eng := newTestEngine(users, orders, ledger, func(_ context.Context, ev queue.CommissionCreditedEvent) error {
		published = append(published, ev)
		return nil
	})

	res, err := eng.Distribute(context.Background(), 100)
	if err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	if res.EntriesCreated != 3 {
		t.Fatalf("EntriesCreated = %d, want 3", res.EntriesCreated)
	}
	if got := res.TotalAmount.StringFixed(2); got != "260.00" {
		t.Errorf("TotalAmount = %s, want 260.00", got)
	}
	if res.TransactionID == "" {
		t.Error("TransactionID is empty")
	}

	wantAmounts := map[uint64]string{3: "200.00", 2: "50.00", 1: "10.00"}
	for _, e := range res.Entries {
		if want := wantAmounts[e.ReferrerID]; e.Amount.StringFixed(2) != want {
			t.Errorf("referrer %d amount = %s, want %s", e.ReferrerID, e.Amount.StringFixed(2), want)
		}
		if e.Status != model.StatusPending {
			t.Errorf("referrer %d status = %q, want pending", e.ReferrerID, e.Status)
		}
		if e.Kind != model.KindReferralBonus {
			t.Errorf("referrer %d kind = %q, want referral_bonus", e.ReferrerID, e.Kind)
		}
		if e.SourceUserID != 4 {
			t.Errorf("referrer %d source user = %d, want 4", e.ReferrerID, e.SourceUserID)
		}
	}

	if len(published) != 3 {
		t.Fatalf("published events = %d, want 3", len(published))
	}
	for _, ev := range published {
		if ev.OrderID != 100 || ev.BuyerName != "Dee" || ev.TransactionID != res.TransactionID {
			t.Errorf("event %+v carries wrong order, buyer or transaction", ev)
		}
	}
}

func TestDistributeNoReferrer(t *testing.T) {
	users := []model.User{{ID: 1, Name: "Solo", ReferralCode: "AAAA0001"}}
	orders := []model.Order{{ID: 7, BuyerID: 1, Total: decimal.NewFromInt(500)}}
	ledger := &fakeLedger{}
	eng := newTestEngine(users, orders, ledger, nil)

	res, err := eng.Distribute(context.Background(), 7)
	if err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	if res.EntriesCreated != 0 {
		t.Errorf("EntriesCreated = %d, want 0", res.EntriesCreated)
	}
	if len(ledger.entries) != 0 {
		t.Errorf("ledger rows = %d, want 0", len(ledger.entries))
	}
}

func TestDistributeDanglingCode(t *testing.T) {
	users := []model.User{
		{ID: 1, ReferralCode: "AAAA0001", AppliedReferralCode: sptr("GONE0000")},
	}
	orders := []model.Order{{ID: 8, BuyerID: 1, Total: decimal.NewFromInt(500)}}
	eng := newTestEngine(users, orders, &fakeLedger{}, nil)

	res, err := eng.Distribute(context.Background(), 8)
	if err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	if res.EntriesCreated != 0 {
		t.Errorf("EntriesCreated = %d, want 0", res.EntriesCreated)
	}
}

func TestDistributeIdempotent(t *testing.T) {
	users := []model.User{
		{ID: 1, ReferralCode: "AAAA0001"},
		{ID: 2, ReferralCode: "AAAA0002", ReferrerID: uptr(1)},
		{ID: 3, ReferralCode: "AAAA0003", ReferrerID: uptr(2)},
		{ID: 4, ReferralCode: "AAAA0004", ReferrerID: uptr(3)},
	}
	orders := []model.Order{{ID: 100, BuyerID: 4, Total: decimal.NewFromInt(1000)}}
	ledger := &fakeLedger{}
	eng := newTestEngine(users, orders, ledger, nil)

	if _, err := eng.Distribute(context.Background(), 100); err != nil {
		t.Fatalf("first Distribute: %v", err)
	}
	res, err := eng.Distribute(context.Background(), 100)
	if err != nil {
		t.Fatalf("second Distribute: %v", err)
	}
	if res.EntriesCreated != 0 {
		t.Errorf("second run EntriesCreated = %d, want 0", res.EntriesCreated)
	}
	if len(ledger.entries) != 3 {
		t.Errorf("ledger rows after two runs = %d, want 3", len(ledger.entries))
	}
}

func TestDistributeMissingOrder(t *testing.T) {
	eng := newTestEngine(nil, nil, &fakeLedger{}, nil)
	if _, err := eng.Distribute(context.Background(), 404); err == nil {
		t.Fatal("expected error for missing order")
	}
}

func TestAmountRounding(t *testing.T) {
	tests := []struct {
		total string
		level int
		want  string
	}{
		{"1000", 1, "200.00"},
		{"1000", 2, "50.00"},
		{"1000", 3, "10.00"},
		{"33.33", 1, "6.67"},  // 6.666 rounds up
		{"12.30", 2, "0.62"},  // 0.615 rounds half up
		{"50.25", 3, "0.50"},  // 0.5025 rounds down
		{"1000", 4, "0.00"},   // unrewarded level
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_level%d", tt.total, tt.level), func(t *testing.T) {
			total := decimal.RequireFromString(tt.total)
			if got := Amount(total, tt.level).StringFixed(2); got != tt.want {
				t.Errorf("Amount(%s, %d) = %s, want %s", tt.total, tt.level, got, tt.want)
			}
		})
	}
}

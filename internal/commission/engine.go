package commission

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/refstore/referral-engine/internal/metrics"
	"github.com/refstore/referral-engine/internal/model"
	"github.com/refstore/referral-engine/internal/queue"
	"github.com/refstore/referral-engine/internal/referral"
)

// Interfaces over the collaborators the engine needs. Concrete
// implementations are the repositories, the resolver and the queue
// publisher; tests substitute in-memory fakes.
type (
	buyerDirectory interface {
		GetByID(ctx context.Context, id uint64) (model.User, error)
	}
	orderStore interface {
		GetByID(ctx context.Context, id uint64) (model.Order, error)
	}
	ledgerStore interface {
		CreateForOrder(ctx context.Context, entries []model.LedgerEntry) ([]model.LedgerEntry, error)
	}
	chainResolver interface {
		ResolveChain(ctx context.Context, buyer model.User) ([]referral.ChainLink, error)
	}
	// PublishFunc sends one credited event to the broker.
	PublishFunc func(ctx context.Context, event queue.CommissionCreditedEvent) error
)

// Result summarizes one distribution run.
type Result struct {
	TransactionID  string
	EntriesCreated int
	TotalAmount    decimal.Decimal
	Entries        []model.LedgerEntry
}

// Engine distributes commissions for orders. It is constructed once at
// startup with its collaborators injected and is safe for concurrent
// use.
type Engine struct {
	users    buyerDirectory
	orders   orderStore
	ledger   ledgerStore
	resolver chainResolver
	publish  PublishFunc
	log      *zap.Logger
	now      func() time.Time
}

// NewEngine wires an Engine. publish may be nil when no broker is
// configured; credited events are then skipped.
func NewEngine(users buyerDirectory, orders orderStore, ledger ledgerStore, resolver chainResolver, publish PublishFunc, log *zap.Logger) *Engine {
	return &Engine{
		users:    users,
		orders:   orders,
		ledger:   ledger,
		resolver: resolver,
		publish:  publish,
		log:      log,
		now:      time.Now,
	}
}

// Distribute credits the buyer's ancestor referrers for the given
// order. A buyer without a referrer is a successful no-op. Re-running
// for the same order never duplicates entries; already-credited levels
// are skipped by the ledger store.
func (e *Engine) Distribute(ctx context.Context, orderID uint64) (Result, error) {
	res := Result{
		TransactionID: uuid.NewString(),
		TotalAmount:   decimal.Zero,
	}

	order, err := e.orders.GetByID(ctx, orderID)
	if err != nil {
		metrics.DistributionsTotal.WithLabelValues("error").Inc()
		return res, fmt.Errorf("order lookup: %w", err)
	}
	buyer, err := e.users.GetByID(ctx, order.BuyerID)
	if err != nil {
		metrics.DistributionsTotal.WithLabelValues("error").Inc()
		return res, fmt.Errorf("buyer lookup: %w", err)
	}

	if !buyer.HasReferrer() {
		metrics.DistributionsTotal.WithLabelValues("noop").Inc()
		return res, nil
	}

	chain, err := e.resolver.ResolveChain(ctx, buyer)
	if err != nil {
		metrics.DistributionsTotal.WithLabelValues("error").Inc()
		return res, fmt.Errorf("resolve chain: %w", err)
	}
	if len(chain) == 0 {
		// Dangling code or missing referrer record, nothing to credit.
		metrics.DistributionsTotal.WithLabelValues("noop").Inc()
		return res, nil
	}

	now := e.now().UTC()
	entries := make([]model.LedgerEntry, 0, len(chain))
	for _, link := range chain {
		entries = append(entries, model.LedgerEntry{
			ReferrerID:    link.Referrer.ID,
			Kind:          model.KindReferralBonus,
			Amount:        Amount(order.Total, link.Level),
			SourceOrderID: order.ID,
			SourceUserID:  buyer.ID,
			Level:         link.Level,
			Status:        model.StatusPending,
			CreatedAt:     now,
		})
	}

	written, err := e.ledger.CreateForOrder(ctx, entries)
	if err != nil {
		metrics.DistributionsTotal.WithLabelValues("error").Inc()
		return res, fmt.Errorf("ledger write: %w", err)
	}

	res.Entries = written
	res.EntriesCreated = len(written)
	for _, entry := range written {
		res.TotalAmount = res.TotalAmount.Add(entry.Amount)
		level := strconv.Itoa(entry.Level)
		metrics.LedgerEntriesCreated.WithLabelValues(level).Inc()
		metrics.CommissionAmountTotal.WithLabelValues(level).Add(entry.Amount.InexactFloat64())
	}
	metrics.DistributionsTotal.WithLabelValues("credited").Inc()

	e.log.Info("commissions distributed",
		zap.String("transaction_id", res.TransactionID),
		zap.Uint64("order_id", order.ID),
		zap.Int("entries_created", res.EntriesCreated),
		zap.String("total_amount", res.TotalAmount.StringFixed(2)))

	e.publishCredited(ctx, order, buyer, chain, written, res.TransactionID, now)
	return res, nil
}

// publishCredited fires one event per written entry. Publishing runs
// after the ledger transaction committed and is best effort: failures
// are logged, never propagated.
func (e *Engine) publishCredited(ctx context.Context, order model.Order, buyer model.User, chain []referral.ChainLink, written []model.LedgerEntry, txID string, now time.Time) {
	if e.publish == nil {
		return
	}
	chatByID := make(map[uint64]int64, len(chain))
	nameByID := make(map[uint64]string, len(chain))
	for _, link := range chain {
		chatByID[link.Referrer.ID] = link.Referrer.TelegramChatID
		nameByID[link.Referrer.ID] = link.Referrer.Name
	}
	for _, entry := range written {
		ev := queue.CommissionCreditedEvent{
			TransactionID:  txID,
			EntryID:        entry.ID,
			OrderID:        order.ID,
			ReferrerID:     entry.ReferrerID,
			ReferrerChatID: chatByID[entry.ReferrerID],
			ReferrerName:   nameByID[entry.ReferrerID],
			BuyerName:      buyer.Name,
			Level:          entry.Level,
			Amount:         entry.Amount.StringFixed(2),
			CreditedAt:     now.Format(time.RFC3339),
		}
		if err := e.publish(ctx, ev); err != nil {
			e.log.Warn("credited event publish failed",
				zap.Uint64("entry_id", entry.ID),
				zap.Error(err))
		}
	}
}

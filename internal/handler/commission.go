package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/refstore/referral-engine/internal/commission"
	"github.com/refstore/referral-engine/internal/model"
	"github.com/refstore/referral-engine/internal/repository"
)

// CommissionHandler exposes commission distribution. It is called by
// the checkout webhook after an order is finalized.
type CommissionHandler struct {
	Engine *commission.Engine
	ErrLog *repository.ErrorLogRepo
	Log    *zap.Logger
}

func NewCommissionHandler(engine *commission.Engine, errLog *repository.ErrorLogRepo, log *zap.Logger) *CommissionHandler {
	return &CommissionHandler{Engine: engine, ErrLog: errLog, Log: log}
}

type distributeReq struct {
	OrderID uint64 `json:"order_id"`
}

type ledgerEntryPart struct {
	ID         uint64 `json:"id"`
	ReferrerID uint64 `json:"referrer_id"`
	Level      int    `json:"level"`
	Amount     string `json:"amount"`
	Status     string `json:"status"`
}

type distributeResp struct {
	TransactionID  string            `json:"transaction_id"`
	EntriesCreated int               `json:"entries_created"`
	TotalAmount    string            `json:"total_amount"`
	Entries        []ledgerEntryPart `json:"entries"`
}

// Distribute runs commission distribution for one order. Re-invoking
// with the same order id is safe and reports zero created entries.
func (h *CommissionHandler) Distribute(c echo.Context) error {
	var req distributeReq
	if err := c.Bind(&req); err != nil || req.OrderID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "order_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Engine.Distribute(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "buyer not found"})
		}
		h.reportFailure(ctx, req.OrderID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "distribution failed"})
	}

	out := distributeResp{
		TransactionID:  res.TransactionID,
		EntriesCreated: res.EntriesCreated,
		TotalAmount:    res.TotalAmount.StringFixed(2),
		Entries:        make([]ledgerEntryPart, 0, len(res.Entries)),
	}
	for _, e := range res.Entries {
		out.Entries = append(out.Entries, ledgerEntryPart{
			ID:         e.ID,
			ReferrerID: e.ReferrerID,
			Level:      e.Level,
			Amount:     e.Amount.StringFixed(2),
			Status:     e.Status,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// reportFailure records the failure in the durable error log so it
// counts toward the health monitor's error volume check.
func (h *CommissionHandler) reportFailure(ctx context.Context, orderID uint64, err error) {
	h.Log.Error("distribution failed", zap.Uint64("order_id", orderID), zap.Error(err))
	detail, _ := json.Marshal(map[string]any{"order_id": orderID, "error": err.Error()})
	insErr := h.ErrLog.Insert(ctx, model.ErrorLogEntry{
		Severity: model.SeverityHigh,
		Source:   "commission_engine",
		Message:  fmt.Sprintf("distribution failed for order %d", orderID),
		Context:  string(detail),
	})
	if insErr != nil {
		h.Log.Warn("error log write failed", zap.Error(insErr))
	}
}

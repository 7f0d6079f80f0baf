package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/refstore/referral-engine/internal/model"
	"github.com/refstore/referral-engine/internal/repository"
	"github.com/refstore/referral-engine/internal/utils"
)

// ReferralHandler exposes code redemption, validation and per-referrer
// statistics.
type ReferralHandler struct {
	Users   *repository.UserRepo
	Ledger  *repository.LedgerRepo
	Network *repository.NetworkRepo
}

func NewReferralHandler(users *repository.UserRepo, ledger *repository.LedgerRepo, network *repository.NetworkRepo) *ReferralHandler {
	return &ReferralHandler{Users: users, Ledger: ledger, Network: network}
}

type applyReq struct {
	UserID uint64 `json:"user_id"`
	Code   string `json:"code"`
}

// Apply permanently binds a referral code to a user. The binding cannot
// be changed afterwards.
func (h *ReferralHandler) Apply(c echo.Context) error {
	var req applyReq
	if err := c.Bind(&req); err != nil || req.UserID == 0 || req.Code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and code required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, err := h.Users.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if user.AppliedReferralCode != nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "referral code already applied"})
	}

	referrer, err := h.Users.GetByReferralCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "referral code not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if referrer.ID == user.ID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot use own referral code"})
	}

	if err := h.Users.ApplyReferralCode(ctx, user.ID, referrer.ID, req.Code); err != nil {
		if errors.Is(err, repository.ErrCodeAlreadyApplied) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "referral code already applied"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "apply failed"})
	}

	// Late joiners may not have a public code of their own yet; issue
	// one so they can refer onward. Collisions on the unique key are
	// retried with a fresh draw.
	if user.ReferralCode == "" {
		for attempt := 0; attempt < 3; attempt++ {
			code, err := utils.NewReferralCode()
			if err != nil {
				break
			}
			if err := h.Users.SetReferralCode(ctx, user.ID, code); err == nil {
				break
			}
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user_id":     user.ID,
		"referrer_id": referrer.ID,
		"code":        referrer.ReferralCode,
	})
}

type validateReq struct {
	UserID uint64 `json:"user_id"`
	Code   string `json:"code"`
}

// Validate checks a referral code without binding it. When user_id is
// given, self-referral is reported as invalid.
func (h *ReferralHandler) Validate(c echo.Context) error {
	var req validateReq
	if err := c.Bind(&req); err != nil || req.Code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	referrer, err := h.Users.GetByReferralCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			return c.JSON(http.StatusOK, echo.Map{"valid": false, "reason": "code not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if req.UserID != 0 && referrer.ID == req.UserID {
		return c.JSON(http.StatusOK, echo.Map{"valid": false, "reason": "own code"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"valid": true,
		"referrer": echo.Map{
			"id":   referrer.ID,
			"name": referrer.Name,
		},
	})
}

// downlineCounts walks the snapshot paths and counts the descendants
// of userID at distances 1..3. Each edge's path ends at its own user,
// so the distance is the gap between userID's position and the end.
func downlineCounts(edges []model.ReferralEdge, userID uint64) map[string]int {
	counts := map[string]int{"level_1": 0, "level_2": 0, "level_3": 0, "total": 0}
	id := strconv.FormatUint(userID, 10)
	for _, e := range edges {
		parts := strings.Split(e.Path, "->")
		for i, p := range parts {
			if p != id {
				continue
			}
			dist := (len(parts) - 1) - i
			if dist >= 1 && dist <= 3 {
				counts["level_"+strconv.Itoa(dist)]++
				counts["total"]++
			}
			break
		}
	}
	return counts
}

type statsResp struct {
	UserID       uint64         `json:"user_id"`
	ReferralCode string         `json:"referral_code"`
	Network      map[string]int `json:"network"`
	Earnings     earningsPart   `json:"earnings"`
}

type earningsPart struct {
	Total   string            `json:"total"`
	Pending string            `json:"pending"`
	ByLevel map[string]string `json:"by_level"`
	Entries int               `json:"entries"`
}

// Stats reports a referrer's snapshotted network sizes per level and
// their lifetime ledger earnings.
func (h *ReferralHandler) Stats(c echo.Context) error {
	userID, err := strconv.ParseUint(c.QueryParam("user_id"), 10, 64)
	if err != nil || userID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	edges, err := h.Network.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "network query failed"})
	}
	network := downlineCounts(edges, userID)

	stats, err := h.Ledger.StatsForReferrer(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "ledger query failed"})
	}
	byLevel := make(map[string]string, len(stats.ByLevel))
	for level, amt := range stats.ByLevel {
		byLevel["level_"+strconv.Itoa(level)] = amt.StringFixed(2)
	}

	return c.JSON(http.StatusOK, statsResp{
		UserID:       user.ID,
		ReferralCode: user.ReferralCode,
		Network:      network,
		Earnings: earningsPart{
			Total:   stats.TotalEarned.StringFixed(2),
			Pending: stats.PendingAmount.StringFixed(2),
			ByLevel: byLevel,
			Entries: stats.EntryCount,
		},
	})
}

package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/refstore/referral-engine/internal/metrics"
	"github.com/refstore/referral-engine/internal/referral"
	"github.com/refstore/referral-engine/internal/repository"
)

// NetworkHandler rebuilds and persists the referral network snapshot.
type NetworkHandler struct {
	Users    *repository.UserRepo
	Network  *repository.NetworkRepo
	Resolver *referral.Resolver
	Log      *zap.Logger
}

func NewNetworkHandler(users *repository.UserRepo, network *repository.NetworkRepo, resolver *referral.Resolver, log *zap.Logger) *NetworkHandler {
	return &NetworkHandler{Users: users, Network: network, Resolver: resolver, Log: log}
}

// Rebuild resolves the full referral forest from the user directory and
// replaces the stored edge snapshot wholesale. Rebuilds are idempotent
// and safe to re-trigger at any time.
func (h *NetworkHandler) Rebuild(c echo.Context) error {
	// The full-directory scan can take a while on large datasets.
	ctx, cancel := context.WithTimeout(c.Request().Context(), 60*time.Second)
	defer cancel()

	started := time.Now()
	users, err := h.Users.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "user scan failed"})
	}

	roots, edges := h.Resolver.ResolveForest(users, started.UTC())
	if err := h.Network.ReplaceAll(ctx, edges); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "snapshot write failed"})
	}

	perLevel := map[string]int{"level_1": 0, "level_2": 0, "level_3": 0}
	for _, e := range edges {
		perLevel["level_"+strconv.Itoa(e.Level)]++
	}

	metrics.NetworkEdges.Set(float64(len(edges)))
	h.Log.Info("network rebuilt",
		zap.Int("users", len(users)),
		zap.Int("roots", len(roots)),
		zap.Int("edges", len(edges)),
		zap.Duration("took", time.Since(started)))

	return c.JSON(http.StatusOK, echo.Map{
		"users":    len(users),
		"roots":    len(roots),
		"edges":    len(edges),
		"by_level": perLevel,
		"took_ms":  time.Since(started).Milliseconds(),
		"built_at": started.UTC(),
	})
}

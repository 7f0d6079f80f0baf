package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/refstore/referral-engine/internal/health"
)

// HealthReportHandler serves the scored health report. The route is
// wrapped by the Redis response cache, so repeated dashboard polls do
// not re-run the probes.
type HealthReportHandler struct {
	Monitor *health.Monitor
}

func NewHealthReportHandler(m *health.Monitor) *HealthReportHandler {
	return &HealthReportHandler{Monitor: m}
}

// Report runs all integrity probes and returns the aggregated report.
func (h *HealthReportHandler) Report(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Monitor.Report(c.Request().Context()))
}

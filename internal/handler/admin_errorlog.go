package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/refstore/referral-engine/internal/model"
	"github.com/refstore/referral-engine/internal/repository"
)

// ErrorLogHandler serves the durable error log to operators.
type ErrorLogHandler struct {
	ErrLog *repository.ErrorLogRepo
}

func NewErrorLogHandler(errLog *repository.ErrorLogRepo) *ErrorLogHandler {
	return &ErrorLogHandler{ErrLog: errLog}
}

const (
	defaultLogLimit = 50
	maxLogLimit     = 500
)

type errorLogPart struct {
	ID        uint64    `json:"id"`
	Severity  string    `json:"severity"`
	Source    string    `json:"source"`
	Message   string    `json:"message"`
	Context   string    `json:"context"`
	CreatedAt time.Time `json:"created_at"`
}

type errorLogResp struct {
	Entries []errorLogPart `json:"entries"`
	Total   int            `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
	Summary map[string]int `json:"summary"`
}

// List returns error log entries, newest first, filtered by severity
// and paged with limit/offset. The summary block always covers the
// whole table, not just the current page.
func (h *ErrorLogHandler) List(c echo.Context) error {
	severity := c.QueryParam("severity")
	switch severity {
	case "", model.SeverityLow, model.SeverityMedium, model.SeverityHigh, model.SeverityCritical:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown severity"})
	}

	limit := defaultLogLimit
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		limit = n
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}
	offset := 0
	if v := c.QueryParam("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid offset"})
		}
		offset = n
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entries, total, err := h.ErrLog.List(ctx, severity, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	summary, err := h.ErrLog.CountsBySeverity(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "summary failed"})
	}

	out := errorLogResp{
		Entries: make([]errorLogPart, 0, len(entries)),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		Summary: summary,
	}
	for _, e := range entries {
		out.Entries = append(out.Entries, errorLogPart{
			ID:        e.ID,
			Severity:  e.Severity,
			Source:    e.Source,
			Message:   e.Message,
			Context:   e.Context,
			CreatedAt: e.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, out)
}

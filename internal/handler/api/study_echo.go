package api

import (
	"time"

	models "TypoTrade/internal/domain/models"
	domrepo "TypoTrade/internal/domain/repository"
	xhttp "TypoTrade/pkg/http"
	xlogger "TypoTrade/pkg/logger"

	"github.com/labstack/echo/v4"
)

// StudyEchoHandler serves stored study results over HTTP.
type StudyEchoHandler struct {
	logger *xlogger.Logger
	store  domrepo.ResultStore
}

func NewStudyEchoHandler(logger *xlogger.Logger, store domrepo.ResultStore) *StudyEchoHandler {
	return &StudyEchoHandler{logger: logger, store: store}
}

func (h *StudyEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/pairs", h.Pairs)
	g.GET("/correlations", h.Correlations)
	g.GET("/backtests", h.Backtests)
	g.GET("/ipo-events", h.IPOEvents)
	g.GET("/health", h.Health)
	e.GET("/health", h.Health)
}

func (h *StudyEchoHandler) Pairs(c echo.Context) error {
	req := &models.PairsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	pairs, err := h.store.QueryPairs(c.Request().Context(), req.Target, req.IncludeExcluded, req.Limit)
	if err != nil {
		h.logger.Error("pairs query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, pairs, int64(len(pairs)))
}

func (h *StudyEchoHandler) Correlations(c echo.Context) error {
	req := &models.CorrelationsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	results, err := h.store.QueryCorrelations(c.Request().Context(), req.Target, req.Candidate, req.Scope, req.Limit)
	if err != nil {
		h.logger.Error("correlations query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, results, int64(len(results)))
}

func (h *StudyEchoHandler) Backtests(c echo.Context) error {
	req := &models.BacktestsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	results, err := h.store.QueryBacktests(c.Request().Context(), req.Target, req.Limit)
	if err != nil {
		h.logger.Error("backtests query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, results, int64(len(results)))
}

func (h *StudyEchoHandler) IPOEvents(c echo.Context) error {
	req := &models.IPOEventsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	events, err := h.store.QueryIPOEvents(c.Request().Context(), req.MinSpikeRatio, req.Limit)
	if err != nil {
		h.logger.Error("ipo events query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	// Optional since filter: RFC3339 or unix seconds.
	if since := xhttp.ParseTimeDefault(c.QueryParam("since"), time.Time{}); !since.IsZero() {
		kept := make([]models.IPOEvent, 0, len(events))
		for _, e := range events {
			if !e.IPODate.Before(since) {
				kept = append(kept, e)
			}
		}
		events = kept
	}
	return xhttp.ListResponse(c, events, int64(len(events)))
}

func (h *StudyEchoHandler) Health(c echo.Context) error {
	if err := h.store.Health(c.Request().Context()); err != nil {
		h.logger.Error("health check failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("backend unavailable"))
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

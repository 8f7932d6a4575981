package api

import (
	"time"

	models "Tradia/internal/domain/models"
	"Tradia/internal/service/ratelimit"
	"Tradia/internal/usecase"
	xhttp "Tradia/pkg/http"
	xlogger "Tradia/pkg/logger"

	"github.com/labstack/echo/v4"
)

const (
	rateCapacity  = 30 // burst per client IP
	rateRefillSec = 10 // tokens per second
)

// SignalsHandler exposes the signals read API over Echo.
type SignalsHandler struct {
	logger  *xlogger.Logger
	query   *usecase.SignalsQuery
	tracker *usecase.OutcomeTracker
	limiter *ratelimit.Limiter
}

func NewSignalsHandler(logger *xlogger.Logger, query *usecase.SignalsQuery, tracker *usecase.OutcomeTracker) *SignalsHandler {
	return &SignalsHandler{
		logger:  logger,
		query:   query,
		tracker: tracker,
		limiter: ratelimit.New(),
	}
}

func (h *SignalsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	api := e.Group("/api", h.rateLimit)
	api.GET("/stats/summary", h.Stats)
	api.GET("/outcomes/open", h.OpenOutcomes)

	g := api.Group("/signals")
	g.GET("/latest", h.Latest)
	g.GET("/top", h.Top)
	g.GET("/day", h.ByDay)
	g.GET("/search", h.Search)
	g.GET("/history", h.History)
	g.GET("/:id", h.ByID)
}

func (h *SignalsHandler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !h.limiter.Allow(c.RealIP(), rateCapacity, rateRefillSec) {
			return xhttp.DataResponse(c, 429, map[string]string{"error": "rate limit exceeded"})
		}
		return next(c)
	}
}

func (h *SignalsHandler) Latest(c echo.Context) error {
	req := &models.LatestSignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	views, err := h.query.Latest(c.Request().Context(), req.Limit, req.OnlyTop)
	if err != nil {
		h.logger.Error("latest signals query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, views)
}

func (h *SignalsHandler) Top(c echo.Context) error {
	req := &models.TopSignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	views, err := h.query.Top(c.Request().Context(), req.Limit)
	if err != nil {
		h.logger.Error("top signals query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, views)
}

func (h *SignalsHandler) ByDay(c echo.Context) error {
	req := &models.SignalsByDayRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	onlyTop := true
	if req.OnlyTop != nil {
		onlyTop = *req.OnlyTop
	}
	views, err := h.query.ByDay(c.Request().Context(), req.Date, onlyTop, req.Limit)
	if err != nil {
		h.logger.Error("signals by day query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, views)
}

func (h *SignalsHandler) Search(c echo.Context) error {
	req := &models.SearchSignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	views, err := h.query.Search(c.Request().Context(), req.Ticker, req.Limit, req.TopOnly)
	if err != nil {
		h.logger.Error("signal search query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, views)
}

func (h *SignalsHandler) History(c echo.Context) error {
	req := &models.SignalHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	views, err := h.query.History(c.Request().Context(), req.Ticker)
	if err != nil {
		h.logger.Error("signal history query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if since := xhttp.ParseTimeDefault(c.QueryParam("since"), time.Time{}); !since.IsZero() {
		filtered := views[:0]
		for _, v := range views {
			if !v.CreatedAt.Before(since) {
				filtered = append(filtered, v)
			}
		}
		views = filtered
	}
	return xhttp.SuccessResponse(c, views)
}

func (h *SignalsHandler) ByID(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return xhttp.BadRequestResponse(c, "missing signal id")
	}
	view, err := h.query.ByID(c.Request().Context(), id)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("signal %s not found", id).WithError(err))
	}
	return xhttp.SuccessResponse(c, view)
}

func (h *SignalsHandler) Stats(c echo.Context) error {
	stats, err := h.query.Stats(c.Request().Context())
	if err != nil {
		h.logger.Error("stats query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, stats)
}

func (h *SignalsHandler) OpenOutcomes(c echo.Context) error {
	outcomes, err := h.query.OpenOutcomes(c.Request().Context())
	if err != nil {
		h.logger.Error("open outcomes query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 0); limit > 0 && len(outcomes) > limit {
		outcomes = outcomes[:limit]
	}
	views := make([]map[string]interface{}, 0, len(outcomes))
	for _, o := range outcomes {
		views = append(views, map[string]interface{}{
			"id":        o.ID,
			"signal_id": o.SignalID,
			"status":    o.Status,
			"deadline":  o.Deadline,
		})
	}
	return xhttp.SuccessResponse(c, views)
}

func (h *SignalsHandler) Health(c echo.Context) error {
	status := map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC(),
	}
	if err := h.query.Health(c.Request().Context()); err != nil {
		status["status"] = "degraded"
		status["storage"] = err.Error()
	}
	if h.tracker != nil {
		status["watched_tickers"] = len(h.tracker.Symbols())
	}
	return xhttp.SuccessResponse(c, status)
}

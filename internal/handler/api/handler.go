package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"AssetRevest/internal/domain/models"
	domrepo "AssetRevest/internal/domain/repository"
	"AssetRevest/internal/services/position"
	"AssetRevest/internal/usecase"
	xhttp "AssetRevest/pkg/http"
	xlogger "AssetRevest/pkg/logger"
	"AssetRevest/pkg/queue"
	"AssetRevest/pkg/util"
)

// Handler is the operational API over the daily signal, the live portfolio
// and backtest jobs.
type Handler struct {
	logger    *xlogger.Logger
	daily     *usecase.DailySignal
	portfolio *usecase.Portfolio
	backtests *usecase.Backtests
}

var _ xhttp.Handler = (*Handler)(nil)

func NewHandler(logger *xlogger.Logger, daily *usecase.DailySignal, portfolio *usecase.Portfolio, backtests *usecase.Backtests) *Handler {
	return &Handler{logger: xlogger.OrNop(logger), daily: daily, portfolio: portfolio, backtests: backtests}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/health", h.Health)
	g.GET("/status", h.Status)
	g.GET("/stages", h.Stages)
	g.POST("/signal", h.Signal)
	g.GET("/trades", h.Trades)

	p := g.Group("/portfolio")
	p.GET("", h.Portfolio)
	p.GET("/equity", h.Equity)
	p.POST("/enter", h.Enter)
	p.POST("/exit", h.Exit)
	p.POST("/stop", h.Stop)
	p.POST("/capital", h.Capital)

	g.POST("/backtests", h.SubmitBacktest)
	g.GET("/backtests/:id", h.GetBacktest)
}

func (h *Handler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

type statusResponse struct {
	Market    *models.MarketSnapshot `json:"market"`
	Portfolio *usecase.Holdings      `json:"portfolio"`
}

// Status returns the latest indicators, VIX and the marked portfolio.
func (h *Handler) Status(c echo.Context) error {
	ctx := c.Request().Context()
	snap, err := h.daily.Market(ctx, parseDate(c.QueryParam("date")))
	if err != nil {
		return h.fail(c, "status", err)
	}
	holdings, err := h.portfolio.Status(ctx)
	if err != nil {
		return h.fail(c, "status", err)
	}
	return xhttp.SuccessResponse(c, statusResponse{Market: snap, Portfolio: holdings})
}

func (h *Handler) Stages(c echo.Context) error {
	req := &models.SignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	snap, err := h.daily.Market(c.Request().Context(), parseDate(req.Date))
	if err != nil {
		return h.fail(c, "stages", err)
	}
	return xhttp.SuccessResponse(c, snap.Stages)
}

// Signal runs the daily report for the requested or latest date.
func (h *Handler) Signal(c echo.Context) error {
	req := &models.SignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	report, err := h.daily.Run(c.Request().Context(), parseDate(req.Date))
	if err != nil {
		return h.fail(c, "signal", err)
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *Handler) Trades(c echo.Context) error {
	req := &models.TradesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	trades, err := h.portfolio.TradeHistory(c.Request().Context(), req.Limit)
	if err != nil {
		return h.fail(c, "trades", err)
	}
	return xhttp.ListResponse(c, trades, len(trades))
}

func (h *Handler) Portfolio(c echo.Context) error {
	holdings, err := h.portfolio.Status(c.Request().Context())
	if err != nil {
		return h.fail(c, "portfolio", err)
	}
	return xhttp.SuccessResponse(c, holdings)
}

func (h *Handler) Equity(c echo.Context) error {
	req := &models.TradesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	curve, err := h.portfolio.EquityCurve(c.Request().Context(), req.Limit)
	if err != nil {
		return h.fail(c, "equity", err)
	}
	return xhttp.ListResponse(c, curve, len(curve))
}

func (h *Handler) Enter(c echo.Context) error {
	req := &models.EnterRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	st, err := h.portfolio.Enter(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "enter", err)
	}
	return xhttp.SuccessResponse(c, st)
}

func (h *Handler) Exit(c echo.Context) error {
	req := &models.ExitRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.portfolio.Exit(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "exit", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *Handler) Stop(c echo.Context) error {
	req := &models.StopRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	st, err := h.portfolio.UpdateStop(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "stop", err)
	}
	return xhttp.SuccessResponse(c, st)
}

func (h *Handler) Capital(c echo.Context) error {
	req := &models.CapitalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	st, err := h.portfolio.SetCapital(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "capital", err)
	}
	return xhttp.SuccessResponse(c, st)
}

// SubmitBacktest queues a run and answers 202 with its job ID.
func (h *Handler) SubmitBacktest(c echo.Context) error {
	req := &models.BacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	st, err := h.backtests.Submit(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "submit backtest", err)
	}
	return xhttp.AcceptedResponse(c, st)
}

func (h *Handler) GetBacktest(c echo.Context) error {
	id := c.Param("id")
	st, err := h.backtests.Get(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, "get backtest", err)
	}
	return xhttp.SuccessResponse(c, st)
}

// fail maps usecase errors onto the response envelope.
func (h *Handler) fail(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, position.ErrInconsistentState), errors.Is(err, usecase.ErrRunInProgress):
		return xhttp.AppErrorResponse(c, xhttp.ConflictError(err.Error()).WithError(err))
	case errors.Is(err, domrepo.ErrNotFound):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError(err.Error()).WithError(err))
	case errors.Is(err, queue.ErrNotRunning):
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_UNAVAILABLE", "", "job queue is not available", http.StatusServiceUnavailable).WithError(err))
	}
	h.logger.Error(op+" usecase error", xlogger.Error(err))
	return xhttp.InternalServerErrorResponse(c)
}

// parseDate returns the zero time, meaning latest, for an empty date.
func parseDate(s string) time.Time {
	t, _ := util.ParseDate(s)
	return t
}

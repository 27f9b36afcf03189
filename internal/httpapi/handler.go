package httpapi

import (
	"net/http"

	"heat_engine/internal/engine"
	"heat_engine/internal/models"
	"heat_engine/internal/trades"
	"heat_engine/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// Handler — презентационный слой движка: статус, команды, сделки,
// heat и статистика предсказаний.
type Handler struct {
	engine *engine.Engine
}

func NewHandler(e *engine.Engine) *Handler {
	return &Handler{engine: e}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")

	g.GET("/status", h.Status)
	g.POST("/engine/:cmd", h.Command)

	g.GET("/heat", h.Heat)

	g.GET("/trades", h.Trades)
	g.POST("/trades", h.OpenTrade)
	g.POST("/trades/:id/confirm", h.ConfirmTrade)
	g.PATCH("/trades/:id", h.UpdateTrade)
	g.POST("/trades/:id/close", h.CloseTrade)

	g.GET("/predictions/stats", h.PredictionStats)
}

type statusResponse struct {
	State     engine.State `json:"state"`
	LastError string       `json:"last_error,omitempty"`
}

func (h *Handler) Status(c echo.Context) error {
	state, lastErr := h.engine.Status()
	return c.JSON(http.StatusOK, statusResponse{State: state, LastError: lastErr})
}

// Command кладёт команду в канал цикла; буфер мал, переполнение —
// это залипший цикл, отвечаем 503.
func (h *Handler) Command(c echo.Context) error {
	var cmd engine.Command
	switch c.Param("cmd") {
	case "start":
		cmd = engine.CmdStart
	case "stop":
		cmd = engine.CmdStop
	case "pause":
		cmd = engine.CmdPause
	case "resume":
		cmd = engine.CmdResume
	default:
		return c.JSON(http.StatusBadRequest, errorBody("unknown command "+c.Param("cmd")))
	}

	select {
	case h.engine.Commands() <- cmd:
		return c.JSON(http.StatusAccepted, map[string]string{"accepted": c.Param("cmd")})
	default:
		return c.JSON(http.StatusServiceUnavailable, errorBody("command queue full"))
	}
}

func (h *Handler) Heat(c echo.Context) error {
	return c.JSON(http.StatusOK, h.engine.Heat())
}

func (h *Handler) Trades(c echo.Context) error {
	switch c.QueryParam("status") {
	case "", "open":
		return c.JSON(http.StatusOK, h.engine.Trades().OpenTrades())
	case "closed":
		return c.JSON(http.StatusOK, h.engine.Trades().ClosedTrades())
	default:
		return c.JSON(http.StatusBadRequest, errorBody("status must be open or closed"))
	}
}

type openTradeRequest struct {
	Pair string      `json:"pair"`
	Side models.Side `json:"side"`
}

func (h *Handler) OpenTrade(c echo.Context) error {
	var req openTradeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("bad request body"))
	}
	t, err := h.engine.OpenTrade(req.Pair, req.Side)
	if err != nil {
		return tradeError(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) ConfirmTrade(c echo.Context) error {
	t, err := h.engine.ConfirmTrade(c.Param("id"))
	if err != nil {
		return tradeError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

type updateTradeRequest struct {
	EntryPrice *float64 `json:"entry_price"`
	TakeProfit *float64 `json:"take_profit"`
	StopLoss   *float64 `json:"stop_loss"`
}

func (h *Handler) UpdateTrade(c echo.Context) error {
	var req updateTradeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("bad request body"))
	}
	t, err := h.engine.UpdateTrade(c.Param("id"), req.EntryPrice, req.TakeProfit, req.StopLoss)
	if err != nil {
		return tradeError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

type closeTradeRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) CloseTrade(c echo.Context) error {
	var req closeTradeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("bad request body"))
	}
	t, err := h.engine.CloseTrade(c.Param("id"), req.Reason)
	if err != nil {
		return tradeError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) PredictionStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.engine.Tracker().Stats())
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// tradeError транслирует доменные ошибки в статусы.
func tradeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, trades.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, trades.ErrPairBusy),
		errors.Is(err, trades.ErrTooManyTrades),
		errors.Is(err, trades.ErrClosed):
		return c.JSON(http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, trades.ErrIncompleteSignal),
		errors.Is(err, engine.ErrUnknownPair),
		errors.Is(err, engine.ErrNoPrice):
		return c.JSON(http.StatusBadRequest, errorBody(err.Error()))
	default:
		logger.Error("[API] trade operation: %v", err)
		return c.JSON(http.StatusInternalServerError, errorBody("internal error"))
	}
}

package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"heat_engine/internal/engine"
	"heat_engine/internal/models"
	"heat_engine/internal/modules/config"
	"heat_engine/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
)

func TestMain(m *testing.M) {
	logger.Init()
	m.Run()
}

type noMarket struct{}

func (noMarket) FetchCandles(context.Context, string, string, int64) ([]models.Candle, error) {
	return nil, nil
}
func (noMarket) FetchTicker(context.Context, string) (float64, error) { return 0, nil }

type noMetrics struct{}

func (noMetrics) IncTick()                        {}
func (noMetrics) IncSkippedTick()                 {}
func (noMetrics) IncSignal(string, string)        {}
func (noMetrics) IncTradeOpened()                 {}
func (noMetrics) IncTradeClosed(string)           {}
func (noMetrics) IncFetchError()                  {}
func (noMetrics) SetLastPrice(string, float64)    {}
func (noMetrics) SetHeat(string, float64, float64) {}
func (noMetrics) SetThreshold(string, float64)    {}

func testServer(t *testing.T) (*echo.Echo, *engine.Engine) {
	t.Helper()
	cfg := &config.Config{
		Pairs:        []string{"BTC-USDT"},
		TickInterval: time.Second,
		Detector: config.DetectorConfig{
			VolatilityWindow: 300, ImpulseWindow: 15, AvgVolumeWindow: 60,
			BaseThreshold: 0.5, VolatilityMultiplier: 2, VolumeSpikeFactor: 2,
			ConfidenceThreshold: 60, Horizon: "5m", BufferCap: 900,
		},
		Trading: config.TradingConfig{
			MaxOpenTrades: 5, Notional: 100, AutoConfirm: false,
			TakeProfitPct: 1.2, StopLossPct: 0.6, MinConfidence: 70,
		},
	}
	eng := engine.New(cfg, noMarket{}, noMetrics{})
	srv := echo.New()
	NewHandler(eng).RegisterRoutes(srv)
	return srv, eng
}

func doJSON(srv *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := testServer(t)

	rec := doJSON(srv, http.MethodGet, "/api/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	var body struct {
		State string `json:"state"`
	}
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.State != "stopped" {
		t.Fatalf("state = %q, want stopped", body.State)
	}
}

func TestCommandEndpoint(t *testing.T) {
	srv, eng := testServer(t)

	rec := doJSON(srv, http.MethodPost, "/api/engine/pause", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("code = %d, want 202", rec.Code)
	}
	select {
	case cmd := <-eng.Commands():
		if cmd != engine.CmdPause {
			t.Fatalf("cmd = %v, want pause", cmd)
		}
	default:
		t.Fatal("command not enqueued")
	}

	if rec := doJSON(srv, http.MethodPost, "/api/engine/reboot", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown command: code = %d, want 400", rec.Code)
	}
}

func TestOpenTradeRejectsUnknownPair(t *testing.T) {
	srv, _ := testServer(t)

	rec := doJSON(srv, http.MethodPost, "/api/trades", `{"pair":"DOGE-USDT","side":"LONG"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", rec.Code)
	}
}

func TestTradeLifecycleOverAPI(t *testing.T) {
	srv, eng := testServer(t)

	// сделку сажаем напрямую: у пары ещё нет цены для ручного открытия
	tr, err := eng.Trades().Open(models.Signal{
		Pair: "BTC-USDT", Side: models.SideLong,
		Price: 100, TakeProfit: 101.2, StopLoss: 99.4,
	}, time.Now())
	if err != nil {
		t.Fatalf("seed trade: %v", err)
	}

	rec := doJSON(srv, http.MethodPost, "/api/trades/"+tr.ID+"/confirm", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm code = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(srv, http.MethodPatch, "/api/trades/"+tr.ID, `{"stop_loss":99.0}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch code = %d: %s", rec.Code, rec.Body.String())
	}
	var patched models.Trade
	if err := sonic.Unmarshal(rec.Body.Bytes(), &patched); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if patched.StopLoss != 99.0 {
		t.Fatalf("stop loss = %v, want 99.0", patched.StopLoss)
	}

	rec = doJSON(srv, http.MethodPost, "/api/trades/"+tr.ID+"/close", `{"reason":""}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("close code = %d: %s", rec.Code, rec.Body.String())
	}
	var closed models.Trade
	if err := sonic.Unmarshal(rec.Body.Bytes(), &closed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if closed.Status != models.TradeClosed || closed.CloseReason != models.CloseReasonManual {
		t.Fatalf("closed = %+v", closed)
	}

	// повторное закрытие — конфликт
	rec = doJSON(srv, http.MethodPost, "/api/trades/"+tr.ID+"/close", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("re-close code = %d, want 409", rec.Code)
	}
}

func TestTradesListFilters(t *testing.T) {
	srv, eng := testServer(t)

	if _, err := eng.Trades().Open(models.Signal{
		Pair: "BTC-USDT", Side: models.SideShort,
		Price: 100, TakeProfit: 98.8, StopLoss: 100.6,
	}, time.Now()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := doJSON(srv, http.MethodGet, "/api/trades?status=open", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var open []models.Trade
	if err := sonic.Unmarshal(rec.Body.Bytes(), &open); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("open trades = %d, want 1", len(open))
	}

	if rec := doJSON(srv, http.MethodGet, "/api/trades?status=weird", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad filter code = %d, want 400", rec.Code)
	}
}

func TestTradeNotFound(t *testing.T) {
	srv, _ := testServer(t)
	if rec := doJSON(srv, http.MethodPost, "/api/trades/nope/confirm", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", rec.Code)
	}
}

package marketdata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"heat_engine/internal/models"
	"heat_engine/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

const (
	maxAttempts  = 3
	initialDelay = time.Second
	pageLimit    = 300
)

// RateLimitError — классовая ошибка rate limit: движок по ней
// ставит цикл на паузу, а не останавливает.
type RateLimitError struct {
	RetryAfter time.Duration
	Hinted     bool // сервер прислал Retry-After
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("marketdata: rate limited, retry after %s", e.RetryAfter)
}

// Client — REST-клиент маркет-данных: свечи с пагинацией и бэкоффом,
// тикеры для текущих цен. Публичные данные, без подписи.
type Client struct {
	base string
	http *http.Client
}

func NewClient(base string) *Client {
	return &Client{
		base: base,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchCandles тянет свечи пары от since (unix ms) до упора,
// страницами по pageLimit. Отдаёт в порядке возрастания timestamp.
func (c *Client) FetchCandles(ctx context.Context, pair, resolution string, since int64) ([]models.Candle, error) {
	out := []models.Candle{}
	cursor := since
	for {
		page, err := c.fetchPage(ctx, pair, resolution, cursor)
		if err != nil {
			return out, err
		}
		if len(page) == 0 {
			break
		}
		out = append(out, page...)
		last := page[len(page)-1].Timestamp
		if last <= cursor || len(page) < pageLimit {
			break
		}
		cursor = last
	}
	return out, nil
}

func (c *Client) fetchPage(ctx context.Context, pair, resolution string, after int64) ([]models.Candle, error) {
	url := fmt.Sprintf("%s/api/v1/market/candles?pair=%s&resolution=%s&after=%d&limit=%d",
		c.base, pair, resolution, after, pageLimit)

	body, err := c.getWithBackoff(ctx, url)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Code string     `json:"code"`
		Msg  string     `json:"msg"`
		Data [][]string `json:"data"` // [ts, open, high, low, close, volume]
	}
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "unmarshal candles")
	}
	if resp.Code != "" && resp.Code != "0" {
		return nil, errors.Errorf("candles api error: %s %s", resp.Code, resp.Msg)
	}

	out := make([]models.Candle, 0, len(resp.Data))
	for _, row := range resp.Data {
		if len(row) < 6 {
			continue
		}
		ts, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			continue
		}
		o, _ := strconv.ParseFloat(row[1], 64)
		h, _ := strconv.ParseFloat(row[2], 64)
		l, _ := strconv.ParseFloat(row[3], 64)
		cl, _ := strconv.ParseFloat(row[4], 64)
		v, _ := strconv.ParseFloat(row[5], 64)
		out = append(out, models.Candle{
			Timestamp: ts, Open: o, High: h, Low: l, Close: cl, Volume: v,
			Resolution: resolution,
		})
	}
	return out, nil
}

// FetchTicker — текущая цена пары.
func (c *Client) FetchTicker(ctx context.Context, pair string) (float64, error) {
	url := fmt.Sprintf("%s/api/v1/market/ticker?pair=%s", c.base, pair)
	body, err := c.getWithBackoff(ctx, url)
	if err != nil {
		return 0, err
	}

	var resp struct {
		Data struct {
			Last string `json:"last"`
		} `json:"data"`
	}
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return 0, errors.Wrap(err, "unmarshal ticker")
	}
	px, err := strconv.ParseFloat(resp.Data.Last, 64)
	if err != nil {
		return 0, errors.Wrap(err, "parse last price")
	}
	return px, nil
}

// getWithBackoff: 3 попытки, задержка удваивается от секунды,
// серверный Retry-After уважается. Исчерпали попытки на rate limit —
// наружу уходит RateLimitError.
func (c *Client) getWithBackoff(ctx context.Context, url string) ([]byte, error) {
	delay := initialDelay
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		body, err := c.getOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}
		// серверная подсказка Retry-After важнее нашей задержки
		wait := delay
		var rl *RateLimitError
		if errors.As(err, &rl) && rl.Hinted {
			wait = rl.RetryAfter
		}
		logger.Warn("[MARKET] fetch retry %d/%d in %s: %v", attempt, maxAttempts, wait, err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		delay *= 2
	}
	return nil, lastErr
}

func (c *Client) getOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		rl := &RateLimitError{}
		if hint := resp.Header.Get("Retry-After"); hint != "" {
			if sec, perr := strconv.Atoi(hint); perr == nil {
				rl.RetryAfter = time.Duration(sec) * time.Second
				rl.Hinted = true
			}
		}
		return nil, rl
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	return body, nil
}

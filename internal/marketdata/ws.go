package marketdata

import (
	"context"
	"strconv"
	"time"

	"heat_engine/internal/models"
	"heat_engine/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

// StreamTick — закрытая свеча из ws-фида.
type StreamTick struct {
	Pair   string
	Candle models.Candle
}

// Streamer держит одно ws-соединение на весь список пар и
// переподключается сам. Используется для подогрева буферов между
// REST-тиками движка.
type Streamer struct {
	url    string
	dialer *websocket.Dialer
}

func NewStreamer(url string) *Streamer {
	return &Streamer{url: url, dialer: &websocket.Dialer{}}
}

// Stream шлёт закрытые свечи в выходной канал до отмены контекста.
func (s *Streamer) Stream(ctx context.Context, pairs []string, resolution string) <-chan StreamTick {
	out := make(chan StreamTick, 256)
	go func() {
		defer close(out)
		retry := 0
		for {
			if ctx.Err() != nil {
				return
			}
			conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
			if err != nil {
				retry++
				if retry > 8 {
					logger.Error("[WS] giving up after %d dial attempts: %v", retry, err)
					return
				}
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Duration(300*retry) * time.Millisecond):
				}
				continue
			}
			retry = 0

			if err := s.subscribe(conn, pairs, resolution); err != nil {
				logger.Warn("[WS] subscribe: %v", err)
				_ = conn.Close()
				continue
			}
			s.readLoop(ctx, conn, resolution, out)
			_ = conn.Close()
		}
	}()
	return out
}

func (s *Streamer) subscribe(conn *websocket.Conn, pairs []string, resolution string) error {
	args := make([]map[string]string, 0, len(pairs))
	for _, p := range pairs {
		args = append(args, map[string]string{
			"channel": "candle" + resolution,
			"pair":    p,
		})
	}
	return conn.WriteJSON(map[string]any{"op": "subscribe", "args": args})
}

func (s *Streamer) readLoop(ctx context.Context, conn *websocket.Conn, resolution string, out chan<- StreamTick) {
	// пинги, чтобы сервер не ронял соединение
	stopPing := make(chan struct{})
	defer close(stopPing)
	go func() {
		t := time.NewTicker(15 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-stopPing:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				_ = conn.WriteMessage(websocket.TextMessage, []byte("ping"))
			}
		}
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(45 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Warn("[WS] read: %v", err)
			return
		}
		if string(msg) == "pong" {
			continue
		}

		var frame struct {
			Arg struct {
				Channel string `json:"channel"`
				Pair    string `json:"pair"`
			} `json:"arg"`
			Data [][]string `json:"data"` // [ts,o,h,l,c,vol,confirm]
		}
		if err := sonic.Unmarshal(msg, &frame); err != nil || frame.Arg.Pair == "" {
			continue
		}
		for _, row := range frame.Data {
			if len(row) < 7 || row[6] != "1" { // только закрытые свечи
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

			tick := StreamTick{
				Pair: frame.Arg.Pair,
				Candle: models.Candle{
					Timestamp: ts, Open: o, High: h, Low: l, Close: cl, Volume: v,
					Resolution: resolution,
				},
			}
			select {
			case out <- tick:
			default:
				// переполнение канала — свечу доберёт REST-тик
			}
		}
	}
}

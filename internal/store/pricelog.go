package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// PriceLog — история цен по паре в redis: список с капой,
// свежие слева (LPUSH + LTRIM).
type PriceLog struct {
	client *redis.Client
	cap    int64
}

func NewPriceLog(client *redis.Client, capacity int) *PriceLog {
	if capacity <= 0 {
		capacity = 500
	}
	return &PriceLog{client: client, cap: int64(capacity)}
}

func priceKey(pair string) string { return "pricelog:" + pair }

// Append пишет точку и режет список до капы.
func (p *PriceLog) Append(ctx context.Context, pair string, price float64, at time.Time) error {
	entry := fmt.Sprintf("%d:%s", at.UnixMilli(), strconv.FormatFloat(price, 'f', -1, 64))
	pipe := p.client.TxPipeline()
	pipe.LPush(ctx, priceKey(pair), entry)
	pipe.LTrim(ctx, priceKey(pair), 0, p.cap-1)
	_, err := pipe.Exec(ctx)
	return err
}

// PricePoint — одна точка истории.
type PricePoint struct {
	At    time.Time
	Price float64
}

// Recent — последние n точек, свежие первыми.
func (p *PriceLog) Recent(ctx context.Context, pair string, n int64) ([]PricePoint, error) {
	raw, err := p.client.LRange(ctx, priceKey(pair), 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]PricePoint, 0, len(raw))
	for _, e := range raw {
		var ms int64
		var px float64
		if _, err := fmt.Sscanf(e, "%d:%g", &ms, &px); err != nil {
			continue
		}
		out = append(out, PricePoint{At: time.UnixMilli(ms), Price: px})
	}
	return out, nil
}

package main

import (
	"context"
	"fmt"
	"time"

	"heat_engine/internal/marketdata"
	"heat_engine/internal/store"
	"heat_engine/pkg/logger"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// backfill прогревает redis-лог цен историей свечей, чтобы движок
// после деплоя не ждал полного окна волатильности на пустом стенде.
func main() {
	if err := logger.Init(); err != nil {
		panic(err)
	}

	viper.SetConfigName("backfill")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("configs")
	viper.SetDefault("resolution", "1s")
	viper.SetDefault("window", "15m")
	viper.SetDefault("redis_addr", "localhost:6379")
	viper.SetDefault("price_log_cap", 500)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	pairs := viper.GetStringSlice("pairs")
	if len(pairs) == 0 {
		panic("has no pairs in config")
	}
	restBase := viper.GetString("rest_base")
	if restBase == "" {
		panic("has no rest_base in config")
	}
	window, err := time.ParseDuration(viper.GetString("window"))
	if err != nil {
		panic(fmt.Errorf("bad window: %w", err))
	}

	ctx := context.Background()
	client := marketdata.NewClient(restBase)

	rdb := redis.NewClient(&redis.Options{
		Addr: viper.GetString("redis_addr"),
		DB:   viper.GetInt("redis_db"),
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		panic(fmt.Errorf("redis ping: %w", err))
	}
	plog := store.NewPriceLog(rdb, viper.GetInt("price_log_cap"))

	since := time.Now().Add(-window).UnixMilli()
	for _, pair := range pairs {
		if err := backfillPair(ctx, client, plog, pair, since); err != nil {
			panic(fmt.Errorf("backfill %s: %w", pair, err))
		}
		fmt.Printf("%s pair complete\n", pair)
	}
	fmt.Println("done")
}

func backfillPair(ctx context.Context, client *marketdata.Client, plog *store.PriceLog, pair string, since int64) error {
	rows, err := client.FetchCandles(ctx, pair, viper.GetString("resolution"), since)
	if err != nil {
		return errors.Wrap(err, "fetch candles")
	}
	if len(rows) == 0 {
		return errors.New("no candles returned")
	}
	for _, c := range rows {
		if err := plog.Append(ctx, pair, c.Close, time.UnixMilli(c.Timestamp)); err != nil {
			return errors.Wrap(err, "append price")
		}
	}
	logger.Info("[BACKFILL] %s: %d свечей", pair, len(rows))
	return nil
}

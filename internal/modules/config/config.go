package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"
	redisAddrENV      = "REDIS_ADDR"
)

// Config ...
type Config struct {
	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	DB    string `yaml:"db_dsn"`
	Redis struct {
		Addr string `yaml:"addr"`
		DB   int    `yaml:"db"`
	} `yaml:"redis"`
	Service struct {
		Host       string `yaml:"host"`
		PublicPort int    `yaml:"public_port"`
		AdminPort  int    `yaml:"admin_port"`
	} `yaml:"service"`
	Jaeger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"jaeger"`

	// Внешний провайдер сигналов; пустой URL — провайдер выключен.
	Provider struct {
		Name string `yaml:"name"`
		URL  string `yaml:"url"`
	} `yaml:"provider"`

	Market struct {
		RESTBase   string `yaml:"rest_base"`
		WSBase     string `yaml:"ws_base"`
		Resolution string `yaml:"resolution"` // "1s"
	} `yaml:"market"`

	// Пары, по которым крутится движок. Пустой список — ошибка конфигурации.
	Pairs []string `yaml:"pairs"`

	TickInterval time.Duration `yaml:"tick_interval"` // период тика движка

	Detector DetectorConfig `yaml:"detector"`
	Trading  TradingConfig  `yaml:"trading"`

	// Порог бокового движения при резолве предсказаний, в процентах.
	PredictionSidewaysPct float64 `yaml:"prediction_sideways_pct"`

	PriceLogCap int `yaml:"price_log_cap"` // капа истории цен в redis на пару
}

// DetectorConfig — пороги импульсного детектора. Всё конфигурируемо,
// формула — контракт (см. internal/impulse).
type DetectorConfig struct {
	VolatilityWindow     int     `yaml:"volatility_window"`      // 300
	ImpulseWindow        int     `yaml:"impulse_window"`         // 15
	AvgVolumeWindow      int     `yaml:"avg_volume_window"`      // 60
	BaseThreshold        float64 `yaml:"base_threshold"`         // базовый порог, % изменения цены
	VolatilityMultiplier float64 `yaml:"volatility_multiplier"`  // масштаб порога по волатильности
	VolumeSpikeFactor    float64 `yaml:"volume_spike_factor"`    // во сколько раз объём выше среднего
	ConfidenceThreshold  float64 `yaml:"confidence_threshold"`   // стартовая уверенность сработавшего сигнала
	Horizon              string  `yaml:"horizon"`                // метка горизонта для HeatScore, напр. "5m"
	BufferCap            int     `yaml:"buffer_cap"`             // капа свечного буфера на пару
}

type TradingConfig struct {
	MaxOpenTrades    int           `yaml:"max_open_trades"`
	Notional         float64       `yaml:"notional"` // условный размер позиции в котируемой валюте
	AutoConfirm      bool          `yaml:"auto_confirm"`
	PendingTTL       time.Duration `yaml:"pending_ttl"` // сколько держим pending до закрытия по timeout
	TakeProfitPct    float64       `yaml:"take_profit_pct"`
	StopLossPct      float64       `yaml:"stop_loss_pct"`
	TrailEnabled     bool          `yaml:"trail_enabled"`
	TrailActivatePct float64       `yaml:"trail_activate_pct"` // профит, после которого включается трейлинг
	TrailDistancePct float64       `yaml:"trail_distance_pct"` // дистанция стопа от экстремума
	MinConfidence    float64       `yaml:"min_confidence"`     // heat, с которого открываем сделку
}

func NewConfig() (*Config, error) {
	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	file, err := os.Open("configs/" + configFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	decoder := yaml.NewDecoder(file)
	config := Config{
		TickInterval:          durationFromEnv("TICK_INTERVAL", "30s"),
		PredictionSidewaysPct: floatFromEnv("PREDICTION_SIDEWAYS_PCT", 0.05),
		PriceLogCap:           intFromEnv("PRICE_LOG_CAP", 500),

		Detector: DetectorConfig{
			VolatilityWindow:     intFromEnv("VOLATILITY_WINDOW", 300),
			ImpulseWindow:        intFromEnv("IMPULSE_WINDOW", 15),
			AvgVolumeWindow:      intFromEnv("AVG_VOLUME_WINDOW", 60),
			BaseThreshold:        floatFromEnv("BASE_THRESHOLD", 0.5),
			VolatilityMultiplier: floatFromEnv("VOLATILITY_MULTIPLIER", 2.0),
			VolumeSpikeFactor:    floatFromEnv("VOLUME_SPIKE_FACTOR", 2.0),
			ConfidenceThreshold:  floatFromEnv("CONFIDENCE_THRESHOLD", 60),
			Horizon:              getenvDefault("DETECTOR_HORIZON", "5m"),
			BufferCap:            intFromEnv("BUFFER_CAP", 900),
		},
		Trading: TradingConfig{
			MaxOpenTrades:    intFromEnv("MAX_OPEN_TRADES", 5),
			Notional:         floatFromEnv("NOTIONAL", 100),
			AutoConfirm:      boolFromEnv("AUTO_CONFIRM", false),
			PendingTTL:       durationFromEnv("PENDING_TTL", "10m"),
			TakeProfitPct:    floatFromEnv("TAKE_PROFIT_PCT", 1.2),
			StopLossPct:      floatFromEnv("STOP_LOSS_PCT", 0.6),
			TrailEnabled:     boolFromEnv("TRAIL_ENABLED", true),
			TrailActivatePct: floatFromEnv("TRAIL_ACTIVATE_PCT", 0.5),
			TrailDistancePct: floatFromEnv("TRAIL_DISTANCE_PCT", 0.3),
			MinConfidence:    floatFromEnv("MIN_CONFIDENCE", 70),
		},
	}
	err = decoder.Decode(&config)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	token := os.Getenv(tokenTelegramENV)
	if token != "" {
		config.Telegram.Token = token
	}

	dsn := os.Getenv(databaseDSN)
	if dsn != "" {
		config.DB = dsn
	}

	if addr := os.Getenv(redisAddrENV); addr != "" {
		config.Redis.Addr = addr
	}

	if url := os.Getenv("PROVIDER_URL"); url != "" {
		config.Provider.URL = url
	}

	if pairs := os.Getenv("PAIRS"); pairs != "" {
		config.Pairs = splitPairs(pairs)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate — ошибки конфигурации всплывают сразу, движок не стартует.
func (c *Config) Validate() error {
	if len(c.Pairs) == 0 {
		return fmt.Errorf("config: empty pair list")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("config: tick_interval must be positive")
	}
	d := c.Detector
	if d.VolatilityWindow <= 0 || d.ImpulseWindow <= 0 || d.AvgVolumeWindow <= 0 {
		return fmt.Errorf("config: detector windows must be positive")
	}
	if d.BufferCap < d.VolatilityWindow+d.ImpulseWindow {
		return fmt.Errorf("config: buffer_cap %d is smaller than detector windows", d.BufferCap)
	}
	if c.Trading.MaxOpenTrades <= 0 {
		return fmt.Errorf("config: max_open_trades must be positive")
	}
	return nil
}

func splitPairs(raw string) []string {
	out := []string{}
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if v == "1" || v == "true" || v == "TRUE" {
			return true
		}
		if v == "0" || v == "false" || v == "FALSE" {
			return false
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key, def string) time.Duration {
	val := getenvDefault(key, def)
	d, err := time.ParseDuration(val)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	StoreName             string
	StoreAddress          string
	ReceiptFooter         string
	PrinterAddr           string
	PrinterPollSeconds    int
	AuthSecret            string
	AccessTokenTTLMinutes int
	CashierPassword       string
	OwnerPassword         string
	LogLevel              string
	LogFormat             string
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	poll, err := strconv.Atoi(getEnv("PRINTER_POLL_SECONDS", "2"))
	if err != nil || poll < 1 {
		poll = 2
	}
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		StoreName:             getEnv("STORE_NAME", "SakuPOS"),
		StoreAddress:          os.Getenv("STORE_ADDRESS"),
		ReceiptFooter:         getEnv("RECEIPT_FOOTER", "Terima kasih"),
		PrinterAddr:           getEnv("PRINTER_ADDR", "127.0.0.1:9100"),
		PrinterPollSeconds:    poll,
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
		CashierPassword:       strings.TrimSpace(os.Getenv("CASHIER_PASSWORD")),
		OwnerPassword:         strings.TrimSpace(os.Getenv("OWNER_PASSWORD")),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "json"),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

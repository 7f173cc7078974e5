package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type APIConfig struct {
	Port        string
	DBDSN       string
	RedisAddr   string
	TrackingURL string
	RateLimitPS int
}

type WorkerConfig struct {
	AdminPort    string
	DBDSN        string
	RMQURL       string
	EventQueue   string
	TrackingURL  string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	SenderID     string
	TickInterval time.Duration
	Concurrency  int
	BatchSize    int
	StuckAfter   time.Duration
}

var (
	API    APIConfig
	Worker WorkerConfig
)

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("required env %s is not set", k)
	}
	return v
}

func getenvInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("env %s: %v", k, err)
	}
	return n
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("env %s: %v", k, err)
	}
	return d
}

func MustLoadAPI() {
	_ = godotenv.Load()
	API = APIConfig{
		Port:        getenv("PORT", "8080"),
		DBDSN:       mustEnv("DB_DSN"),
		RedisAddr:   getenv("REDIS_ADDR", ""),
		TrackingURL: getenv("TRACKING_URL", "http://localhost:8080"),
		RateLimitPS: getenvInt("RATE_LIMIT_RPS", 20),
	}
}

func MustLoadWorker() {
	_ = godotenv.Load()
	Worker = WorkerConfig{
		AdminPort:    getenv("ADMIN_PORT", "8090"),
		DBDSN:        mustEnv("DB_DSN"),
		RMQURL:       getenv("RMQ_URL", ""),
		EventQueue:   getenv("EVENT_QUEUE", "delivery_events"),
		TrackingURL:  getenv("TRACKING_URL", "http://localhost:8080"),
		SMTPHost:     mustEnv("SMTP_HOST"),
		SMTPPort:     getenvInt("SMTP_PORT", 587),
		SMTPUser:     getenv("SMTP_USER", ""),
		SMTPPassword: getenv("SMTP_PASSWORD", ""),
		SMTPFrom:     mustEnv("SMTP_FROM"),
		SenderID:     getenv("SENDER_ID", "system"),
		TickInterval: getenvDuration("TICK_INTERVAL", 5*time.Second),
		Concurrency:  getenvInt("SEND_CONCURRENCY", 3),
		BatchSize:    getenvInt("BATCH_SIZE", 10),
		StuckAfter:   getenvDuration("STUCK_AFTER", 5*time.Minute),
	}
}

// Package config, uygulamanın tüm konfigürasyonunu merkezi olarak yönetir.
// Environment variable'lardan okur, .env dosyasını da destekler.
//
// Config struct'ı tüm ayarları tek bir yerde toplar, böylece
// her yerde ayrı ayrı os.Getenv() çağırmak yerine tek bir Config nesnesi taşırız.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config, uygulamanın tüm konfigürasyon değerlerini taşır.
// Her alt bölüm ayrı bir struct — her struct tek bir concern'ü temsil eder.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Realtime RealtimeConfig
}

// ServerConfig, HTTP server ayarları.
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string // CORS izin verilen origin'ler
}

// DatabaseConfig, SQLite database ayarları.
type DatabaseConfig struct {
	Path string // SQLite dosya yolu (ör: ./data/destek.db)
}

// JWTConfig, JWT token ayarları.
//
// Token üretimi bu servisin dışındadır (auth collaborator) —
// burada sadece imza doğrulaması için secret tutulur.
type JWTConfig struct {
	Secret string // Token imzalama anahtarı — GİZLİ TUTULMALI
}

// RealtimeConfig, gerçek zamanlı katmanın zamanlama ayarları.
//
// PresenceGraceWindow: Son bağlantı koptuktan sonra "offline" broadcast'inin
// bekletildiği süre. Tab refresh gibi kısa kopmalarda presence flicker'ı önler.
//
// TypingTimeout: Alıcı tarafta "yazıyor…" göstergesinin, yeni bir typing
// event'i gelmeden söneceği süre. Gönderen taraf debounce'u da aynı değeri
// kullanır.
//
// SendLimit/SendWindow/SendCooldown: Mesaj gönderme rate limit parametreleri.
type RealtimeConfig struct {
	PresenceGraceWindow time.Duration
	TypingTimeout       time.Duration
	SendLimit           int
	SendWindow          time.Duration
	SendCooldown        time.Duration
}

// Load, environment variable'lardan Config oluşturur.
// .env dosyası varsa önce onu yükler (development kolaylığı için).
func Load() (*Config, error) {
	// .env dosyasını yükle — dosya yoksa hata vermez, sessizce devam eder.
	// Production'da bu dosya olmaz, gerçek env variable'lar kullanılır.
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "9090"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	graceWindow, err := time.ParseDuration(getEnv("PRESENCE_GRACE_WINDOW", "4s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PRESENCE_GRACE_WINDOW: %w", err)
	}

	typingTimeout, err := time.ParseDuration(getEnv("TYPING_TIMEOUT", "1200ms"))
	if err != nil {
		return nil, fmt.Errorf("invalid TYPING_TIMEOUT: %w", err)
	}

	sendLimit, err := strconv.Atoi(getEnv("SEND_RATE_LIMIT", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid SEND_RATE_LIMIT: %w", err)
	}

	sendWindow, err := time.ParseDuration(getEnv("SEND_RATE_WINDOW", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SEND_RATE_WINDOW: %w", err)
	}

	sendCooldown, err := time.ParseDuration(getEnv("SEND_RATE_COOLDOWN", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SEND_RATE_COOLDOWN: %w", err)
	}

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           port,
			AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:3000"), ","),
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "./data/destek.db"),
		},
		JWT: JWTConfig{
			Secret: jwtSecret,
		},
		Realtime: RealtimeConfig{
			PresenceGraceWindow: graceWindow,
			TypingTimeout:       typingTimeout,
			SendLimit:           sendLimit,
			SendWindow:          sendWindow,
			SendCooldown:        sendCooldown,
		},
	}

	return cfg, nil
}

// Addr, HTTP server'ın dinleyeceği adresi döner (ör: "0.0.0.0:9090").
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv, environment variable'ı okur, yoksa fallback değeri döner.
func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

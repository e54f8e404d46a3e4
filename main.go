// Package main, destek backend uygulamasının giriş noktasıdır.
//
// Bu dosyanın görevi — Dependency Injection "wire-up":
//  1. Config'i yükle
//  2. Database'i başlat
//  3. Repository'leri oluştur (DB bağlantısı ile)
//  4. WebSocket Hub'ı başlat
//  5. Service'leri oluştur (repository'ler + hub ile)
//  6. Hub callback'lerini bağla (typing relay)
//  7. Handler'ları ve middleware'ları oluştur
//  8. HTTP router'ı kur, route'ları bağla
//  9. CORS yapılandır
//  10. HTTP Server'ı başlat, graceful shutdown
//
// Global değişken YOK — her şey bu fonksiyonda oluşturulup birbirine bağlanıyor.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/akinalp/destek/config"
	"github.com/akinalp/destek/database"
	"github.com/akinalp/destek/handlers"
	"github.com/akinalp/destek/middleware"
	"github.com/akinalp/destek/pkg/ratelimit"
	"github.com/akinalp/destek/repository"
	"github.com/akinalp/destek/services"
	"github.com/akinalp/destek/ws"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("[main] destek server starting...")

	// ─── 1. Config ───
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[main] failed to load config: %v", err)
	}
	log.Printf("[main] config loaded (port=%d, grace=%s, typing_timeout=%s)",
		cfg.Server.Port, cfg.Realtime.PresenceGraceWindow, cfg.Realtime.TypingTimeout)

	// ─── 2. Database ───
	db, err := database.New(cfg.Database.Path, database.Migrations())
	if err != nil {
		log.Fatalf("[main] failed to initialize database: %v", err)
	}
	defer db.Close()

	// ─── 3. Repository Layer ───
	principalRepo := repository.NewSQLitePrincipalRepo(db.Conn)
	messageRepo := repository.NewSQLiteMessageRepo(db.Conn)
	readStateRepo := repository.NewSQLiteReadStateRepo(db.Conn)

	// ─── 4. WebSocket Hub ───
	//
	// Hub, tüm WebSocket bağlantılarını yöneten merkezi yapıdır.
	// `go hub.Run()` ayrı bir goroutine'de event loop başlatır.
	// Hub aynı zamanda EventPublisher interface'ini implement eder —
	// service'ler hub'a doğrudan bağımlı olmak yerine interface üzerinden erişir.
	hub := ws.NewHub(cfg.Realtime.PresenceGraceWindow)
	registerHubCallbacks(hub, principalRepo)
	go hub.Run()

	// ─── 5. Rate Limiter ───
	limiter := ratelimit.NewMessageRateLimiter(
		cfg.Realtime.SendLimit,
		cfg.Realtime.SendWindow,
		cfg.Realtime.SendCooldown,
	)
	defer limiter.Close()

	// ─── 6. Service Layer ───
	authService := services.NewAuthService(cfg.JWT.Secret)
	principalService := services.NewPrincipalService(principalRepo)
	messageService := services.NewMessageService(principalRepo, messageRepo, readStateRepo, hub, limiter)

	// ─── 7. Handler Layer + Middleware ───
	conversationHandler := handlers.NewConversationHandler(messageService, limiter)
	principalHandler := handlers.NewPrincipalHandler(principalService)
	wsHandler := ws.NewHandler(hub, authService)
	authMw := middleware.NewAuthMiddleware(authService, principalRepo)

	auth := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(http.HandlerFunc(handler))
	}

	// ─── 8. HTTP Router ───
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","service":"destek"}`)
	})

	// Peer bootstrap — kullanıcı istemcisi konuşacağı temsilciyi buradan çözer
	mux.Handle("GET /api/me/agent", auth(principalHandler.AssignedAgent))

	// Conversations
	mux.Handle("GET /api/conversations/{peerId}/messages", auth(conversationHandler.History))
	mux.Handle("POST /api/conversations/{peerId}/messages", auth(conversationHandler.Send))

	// Agent inbox
	mux.Handle("GET /api/agent/conversations", auth(conversationHandler.AgentInbox))

	// WebSocket — token query parameter ile authenticate edilir
	//
	// Neden auth middleware kullanmıyoruz?
	// WebSocket upgrade sırasında tarayıcılar custom HTTP header gönderemez.
	// JWT token URL query parameter olarak gönderilir: ws://server/ws?token=JWT
	// WS handler kendi içinde token doğrulaması yapar.
	mux.HandleFunc("GET /ws", wsHandler.HandleConnection)

	// ─── 9. CORS ───
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := corsHandler.Handler(mux)

	// ─── 10. HTTP Server + Graceful Shutdown ───
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("[main] server listening on %s", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	<-done
	log.Println("[main] shutting down...")

	// Önce WebSocket bağlantılarını kapat, sonra HTTP server'ı —
	// yeni request kabul etmeyi durdurur, mevcutların bitmesini bekler.
	hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("[main] forced shutdown: %v", err)
	}

	log.Println("[main] server stopped gracefully")
}

// Package client, destek gerçek zamanlı katmanının istemci kütüphanesidir.
//
// Mimari:
// - Channel: WebSocket transport — bağlantı, reconnect, heartbeat, event dağıtımı
// - HistoryAPI: HTTP API istemcisi — mesaj gönderme, history, agent inbox
// - ConversationStore: Konuşma state'i — mesaj listeleri, unread, presence, typing
// - TypingCoordinator: Gönderen taraf typing debounce'u
//
// Mesajlar HTTP ile GÖNDERİLİR, WebSocket ile ALINIR. Kaçırılan event'ler
// history fetch ile telafi edilir — WS sadece "taze tutma" kanalıdır.
package client

import "context"

// CredentialSource, istemcinin access token'ını sağlayan interface.
//
// Token üretimi ve yenilemesi bu kütüphanenin dışındadır (auth collaborator).
// Channel ve HistoryAPI token'ı her ihtiyaç duyduklarında buradan ister;
// 401 aldıklarında Refresh çağırır.
type CredentialSource interface {
	// Token, geçerli access token'ı döner.
	Token(ctx context.Context) (string, error)

	// Refresh, token'ı yeniler ve yenisini döner.
	// Yenileme başarısızsa error döner — caller bağlantıyı deactive edebilir.
	Refresh(ctx context.Context) (string, error)
}

// StaticCredential, sabit token'lı CredentialSource implementasyonu.
// Test ve kısa ömürlü araçlar için — Refresh aynı token'ı döner.
type StaticCredential string

// Token, sabit token'ı döner.
func (s StaticCredential) Token(_ context.Context) (string, error) {
	return string(s), nil
}

// Refresh, sabit token'ı döner (yenileme yok).
func (s StaticCredential) Refresh(_ context.Context) (string, error) {
	return string(s), nil
}

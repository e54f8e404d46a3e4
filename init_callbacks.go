// Package main — WebSocket Hub callback wire-up.
//
// Bu callback'ler neden burada (main package'da)?
// Hub ws paketinde yaşıyor, ama eşleştirme kontrolü repo katmanında.
// Hub'ın repository'lere bağımlı olmasını istemiyoruz (Dependency Inversion).
// main package wire-up noktasıdır — tüm katmanları birbirine bağlar.
package main

import (
	"context"
	"log"

	"github.com/akinalp/destek/repository"
	"github.com/akinalp/destek/ws"
)

// registerHubCallbacks, Hub'ın typing relay callback'ini bağlar.
//
// Typing event'leri persist EDİLMEZ — sadece karşı tarafın açık
// bağlantılarına iletilir. Eşleştirilmemiş bir hedefe gelen typing
// sessizce düşürülür; gönderene hata dönmez.
func registerHubCallbacks(hub *ws.Hub, principalRepo repository.PrincipalRepository) {
	hub.OnTyping(func(fromID, toID string, isTyping bool) {
		paired, err := principalRepo.ArePaired(context.Background(), fromID, toID)
		if err != nil {
			log.Printf("[typing] pairing lookup failed from=%s to=%s: %v", fromID, toID, err)
			return
		}
		if !paired {
			return
		}

		hub.BroadcastToUser(toID, ws.Event{
			Op: ws.OpTypingUpdate,
			Data: ws.TypingUpdateData{
				UserID:   fromID,
				IsTyping: isTyping,
			},
		})
	})
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/akinalp/destek/models"
	"github.com/akinalp/destek/pkg"
)

// HistoryClient, HTTP API operasyonlarının interface'i.
//
// ConversationStore concrete HistoryAPI'ye değil bu interface'e bağımlıdır —
// testlerde fake implementasyon kullanılır.
type HistoryClient interface {
	// History, peer ile olan konuşmanın tüm mesajlarını eskiden yeniye döner.
	// Server tarafında konuşmayı okundu işaretler.
	History(ctx context.Context, peerID string) ([]models.DirectMessage, error)

	// Send, peer'a yeni mesaj gönderir. Server'ın atadığı ID ve created_at
	// ile mesajın son halini döner.
	Send(ctx context.Context, peerID, content string) (*models.DirectMessage, error)

	// AgentInbox, agent'a atanmış kullanıcı başına konuşma özetini döner.
	AgentInbox(ctx context.Context) ([]models.AgentConversationItem, error)
}

// HistoryAPI, destek HTTP API'sinin istemcisi.
type HistoryAPI struct {
	baseURL    string
	httpClient *http.Client
	creds      CredentialSource
}

// NewHistoryAPI, constructor.
// baseURL örn: "http://localhost:9090" — sonunda slash olmadan.
func NewHistoryAPI(baseURL string, creds CredentialSource) *HistoryAPI {
	return &HistoryAPI{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		creds:      creds,
	}
}

// apiEnvelope, server'ın standart response formatı.
// Data'yı json.RawMessage olarak tutar — caller kendi tipine decode eder.
type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// History, GET /api/conversations/{peerId}/messages.
func (a *HistoryAPI) History(ctx context.Context, peerID string) ([]models.DirectMessage, error) {
	var messages []models.DirectMessage
	path := fmt.Sprintf("/api/conversations/%s/messages", peerID)
	if err := a.do(ctx, http.MethodGet, path, nil, &messages, true); err != nil {
		return nil, err
	}
	return messages, nil
}

// Send, POST /api/conversations/{peerId}/messages.
//
// 401'de OTOMATIK RETRY YOK: request server'a ulaşmış ama response
// kaybolmuş olabilir — körlemesine tekrar göndermek mesajı çiftler.
// Token yine de yenilenir ki bir sonraki deneme temiz başlasın; hata
// caller'a döner, tekrar göndermek kullanıcının kararıdır.
func (a *HistoryAPI) Send(ctx context.Context, peerID, content string) (*models.DirectMessage, error) {
	var msg models.DirectMessage
	path := fmt.Sprintf("/api/conversations/%s/messages", peerID)
	body := models.CreateMessageRequest{Content: content}
	if err := a.do(ctx, http.MethodPost, path, &body, &msg, false); err != nil {
		return nil, err
	}
	return &msg, nil
}

// AgentInbox, GET /api/agent/conversations.
func (a *HistoryAPI) AgentInbox(ctx context.Context) ([]models.AgentConversationItem, error) {
	var items []models.AgentConversationItem
	if err := a.do(ctx, http.MethodGet, "/api/agent/conversations", nil, &items, true); err != nil {
		return nil, err
	}
	return items, nil
}

// do, tek bir HTTP request döngüsü: token ekle, gönder, envelope parse et.
//
// retryOn401: true ise 401'de token Refresh edilip request BİR KEZ tekrar
// denenir. Sadece idempotent (GET) operasyonlar için güvenlidir.
func (a *HistoryAPI) do(ctx context.Context, method, path string, body, out any, retryOn401 bool) error {
	err := a.doOnce(ctx, method, path, body, out)
	if err == nil {
		return nil
	}

	if !errors.Is(err, pkg.ErrUnauthorized) {
		return err
	}

	// Token süresi dolmuş olabilir — yenile.
	if _, refreshErr := a.creds.Refresh(ctx); refreshErr != nil {
		return fmt.Errorf("%w: token refresh failed: %v", pkg.ErrUnauthorized, refreshErr)
	}

	if !retryOn401 {
		return err
	}
	return a.doOnce(ctx, method, path, body, out)
}

func (a *HistoryAPI) doOnce(ctx context.Context, method, path string, body, out any) error {
	var reqBody *bytes.Buffer
	if body != nil {
		reqBody = &bytes.Buffer{}
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	var req *http.Request
	var err error
	if reqBody != nil {
		req, err = http.NewRequestWithContext(ctx, method, a.baseURL+path, reqBody)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, a.baseURL+path, nil)
	}
	if err != nil {
		return err
	}

	token, err := a.creds.Token(ctx)
	if err != nil {
		return fmt.Errorf("%w: no credential available: %v", pkg.ErrUnauthorized, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("invalid response from server (status %d): %w", resp.StatusCode, err)
	}

	if !envelope.Success {
		return statusToError(resp.StatusCode, envelope.Error)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}

// statusToError, HTTP status code'unu domain error'a çevirir.
// Server'daki mapErrorToStatus'un tersi — iki taraf aynı sentinel'lerle konuşur.
func statusToError(status int, message string) error {
	var sentinel error
	switch status {
	case http.StatusNotFound:
		sentinel = pkg.ErrNotFound
	case http.StatusUnauthorized:
		sentinel = pkg.ErrUnauthorized
	case http.StatusForbidden:
		sentinel = pkg.ErrForbidden
	case http.StatusBadRequest:
		sentinel = pkg.ErrBadRequest
	case http.StatusTooManyRequests:
		sentinel = pkg.ErrRateLimited
	default:
		sentinel = pkg.ErrInternal
	}

	if message == "" {
		message = http.StatusText(status)
	}
	return fmt.Errorf("%w: %s", sentinel, message)
}

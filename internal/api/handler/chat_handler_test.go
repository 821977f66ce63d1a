package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/docuchat/admin-gateway/internal/core/domain"
)

type fakeChatService struct {
	lastQuery domain.ChatQuery
	answer    domain.ChatAnswer
	history   []domain.ChatExchange
	err       error
}

func (s *fakeChatService) Ask(_ context.Context, q domain.ChatQuery) (domain.ChatAnswer, error) {
	s.lastQuery = q
	return s.answer, s.err
}

func (s *fakeChatService) History(_ context.Context, _ string) ([]domain.ChatExchange, error) {
	return s.history, s.err
}

func TestChatHandler_Ask(t *testing.T) {
	svc := &fakeChatService{answer: domain.ChatAnswer{Response: "the policy allows it"}}
	h := NewChatHandler(svc)
	c, rec := newSessionContext(http.MethodPost, "/api/chat",
		`{"conversation_id":"c1","query":"is this allowed?","k":3,"similarity_threshold":0.7}`)

	if err := h.Ask(c); err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if svc.lastQuery.ConversationID != "c1" || svc.lastQuery.TopK != 3 || svc.lastQuery.Threshold != 0.7 {
		t.Fatalf("query not forwarded: %+v", svc.lastQuery)
	}
	var resp domain.ChatAnswer
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Response != "the policy allows it" {
		t.Fatalf("unexpected response: %s (%v)", rec.Body.String(), err)
	}
}

func TestChatHandler_AskRequiresQuery(t *testing.T) {
	h := NewChatHandler(&fakeChatService{})
	c, _ := newSessionContext(http.MethodPost, "/api/chat", `{"conversation_id":"c1"}`)

	err := h.Ask(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestChatHandler_AskPropagatesServiceError(t *testing.T) {
	h := NewChatHandler(&fakeChatService{err: domain.ErrSessionNotReady})
	c, _ := newSessionContext(http.MethodPost, "/api/chat", `{"query":"q"}`)

	if err := h.Ask(c); !errors.Is(err, domain.ErrSessionNotReady) {
		t.Fatalf("expected ErrSessionNotReady, got %v", err)
	}
}

func TestChatHandler_History(t *testing.T) {
	svc := &fakeChatService{history: []domain.ChatExchange{{ConversationID: "c1", Query: "q1", Response: "a1"}}}
	h := NewChatHandler(svc)

	c, rec := newSessionContext(http.MethodGet, "/api/chat/c1", "")
	c.SetParamNames("id")
	c.SetParamValues("c1")

	if err := h.History(c); err != nil {
		t.Fatalf("History failed: %v", err)
	}
	var resp []domain.ChatExchange
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || len(resp) != 1 {
		t.Fatalf("unexpected response: %s (%v)", rec.Body.String(), err)
	}
}

func TestChatHandler_HistoryNotFound(t *testing.T) {
	h := NewChatHandler(&fakeChatService{err: domain.ErrConversationNotFound})
	c, _ := newSessionContext(http.MethodGet, "/api/chat/missing", "")
	c.SetParamNames("id")
	c.SetParamValues("missing")

	if err := h.History(c); !errors.Is(err, domain.ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

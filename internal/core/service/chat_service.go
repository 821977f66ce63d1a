package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/docuchat/admin-gateway/internal/api/metrics"
	"github.com/docuchat/admin-gateway/internal/core/domain"
	"github.com/docuchat/admin-gateway/internal/core/ports"
)

// ChatService answers retrieval-augmented questions through the upstream
// LLM endpoint and hands the resulting exchange to the transcript sink for
// asynchronous persistence. Answering never waits on the transcript write.
type ChatService struct {
	api     ports.ChatAPI
	session ports.SessionManager
	repo    ports.ChatRepository
	sink    ports.TranscriptSink
	log     zerolog.Logger
}

func NewChatService(api ports.ChatAPI, session ports.SessionManager, repo ports.ChatRepository, sink ports.TranscriptSink, log zerolog.Logger) *ChatService {
	return &ChatService{api: api, session: session, repo: repo, sink: sink, log: log}
}

// Ask validates and defaults the query, forwards it upstream, and records
// the exchange.
func (s *ChatService) Ask(ctx context.Context, q domain.ChatQuery) (domain.ChatAnswer, error) {
	snap := s.session.Snapshot()
	if !snap.Ready {
		return domain.ChatAnswer{}, domain.ErrSessionNotReady
	}

	q.Query = strings.TrimSpace(q.Query)
	if q.TopK <= 0 {
		q.TopK = domain.DefaultChatTopK
	}
	if q.Threshold <= 0 {
		q.Threshold = domain.DefaultChatThreshold
	}

	answer, err := s.api.Ask(ctx, snap.AccessToken, q)
	if err != nil {
		metrics.ChatExchangesTotal.WithLabelValues("error").Inc()
		return domain.ChatAnswer{}, err
	}
	metrics.ChatExchangesTotal.WithLabelValues("success").Inc()

	if q.ConversationID != "" {
		s.sink.Enqueue(domain.ChatExchange{
			ConversationID: q.ConversationID,
			Username:       snap.User.Username,
			Query:          q.Query,
			Response:       answer.Response,
			Contexts:       answer.Contexts,
			AskedAt:        time.Now().UTC(),
		})
	}

	return answer, nil
}

// History returns a conversation's exchanges in ask order.
func (s *ChatService) History(ctx context.Context, conversationID string) ([]domain.ChatExchange, error) {
	if !s.session.Snapshot().Ready {
		return nil, domain.ErrSessionNotReady
	}
	return s.repo.ByConversation(ctx, conversationID)
}

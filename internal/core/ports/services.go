package ports

import (
	"context"

	"github.com/docuchat/admin-gateway/internal/core/domain"
)

// DocumentService is the proxied document surface the HTTP handlers consume.
type DocumentService interface {
	List(ctx context.Context, q domain.DocumentListQuery) (domain.DocumentPage, error)
	Types(ctx context.Context) ([]string, error)
	Upload(ctx context.Context, doc domain.DocumentUpload) (domain.Document, error)
	Update(ctx context.Context, id string, upd domain.DocumentUpdate) (domain.Document, error)
	Delete(ctx context.Context, id string) error
	SearchByUser(ctx context.Context, username string, q domain.DocumentListQuery) (domain.DocumentPage, error)
	SearchByDepartment(ctx context.Context, department string, q domain.DocumentListQuery) (domain.DocumentPage, error)
	Users(ctx context.Context) ([]domain.DirectoryEntry, error)
	Departments(ctx context.Context) ([]domain.DirectoryEntry, error)
}

// ChatService answers retrieval-augmented questions and records transcripts.
type ChatService interface {
	Ask(ctx context.Context, q domain.ChatQuery) (domain.ChatAnswer, error)
	History(ctx context.Context, conversationID string) ([]domain.ChatExchange, error)
}

// TranscriptSink accepts transcript writes for asynchronous persistence.
type TranscriptSink interface {
	Enqueue(ex domain.ChatExchange)
}

// ChatRepository persists conversation transcripts.
type ChatRepository interface {
	Append(ctx context.Context, ex domain.ChatExchange) error
	ByConversation(ctx context.Context, conversationID string) ([]domain.ChatExchange, error)
}

// TypeCache caches the upstream document-type list between SPA page loads.
type TypeCache interface {
	Get(ctx context.Context) ([]string, bool, error)
	Put(ctx context.Context, types []string) error
}

package ports

import (
	"context"

	"github.com/docuchat/admin-gateway/internal/core/domain"
)

// AuthAPI is the upstream authentication surface.
//
// Both calls return domain.ErrUpstreamUnreachable (wrapped) on transport
// failures; non-2xx responses map to domain sentinels or
// *domain.UpstreamStatusError so callers can tell the two apart.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (domain.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error)
}

// DocumentAPI proxies the upstream document-management endpoints. Every
// call carries the session's bearer token.
type DocumentAPI interface {
	List(ctx context.Context, token string, q domain.DocumentListQuery) (domain.DocumentPage, error)
	Types(ctx context.Context, token string) ([]string, error)
	Upload(ctx context.Context, token string, doc domain.DocumentUpload) (domain.Document, error)
	Update(ctx context.Context, token, id string, upd domain.DocumentUpdate) (domain.Document, error)
	Delete(ctx context.Context, token, id string) error
	SearchByUser(ctx context.Context, token, username string, q domain.DocumentListQuery) (domain.DocumentPage, error)
	SearchByDepartment(ctx context.Context, token, department string, q domain.DocumentListQuery) (domain.DocumentPage, error)
	Users(ctx context.Context, token string) ([]domain.DirectoryEntry, error)
	Departments(ctx context.Context, token string) ([]domain.DirectoryEntry, error)
}

// ChatAPI is the upstream retrieval-augmented search endpoint.
type ChatAPI interface {
	Ask(ctx context.Context, token string, q domain.ChatQuery) (domain.ChatAnswer, error)
}

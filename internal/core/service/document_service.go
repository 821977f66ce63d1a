package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/docuchat/admin-gateway/internal/core/domain"
	"github.com/docuchat/admin-gateway/internal/core/ports"
)

const (
	defaultPage    = 1
	defaultPerPage = 10
)

// DocumentService proxies document operations to the upstream with the
// session's bearer token. It holds no document state of its own beyond the
// type cache; listings always reflect the upstream.
type DocumentService struct {
	api     ports.DocumentAPI
	session ports.SessionManager
	cache   ports.TypeCache
	log     zerolog.Logger
}

func NewDocumentService(api ports.DocumentAPI, session ports.SessionManager, cache ports.TypeCache, log zerolog.Logger) *DocumentService {
	return &DocumentService{api: api, session: session, cache: cache, log: log}
}

// token returns the session's access token or ErrSessionNotReady. Handlers
// sit behind the readiness middleware, but the service re-checks so it is
// safe to call from anywhere.
func (s *DocumentService) token() (string, error) {
	snap := s.session.Snapshot()
	if !snap.Ready {
		return "", domain.ErrSessionNotReady
	}
	return snap.AccessToken, nil
}

func normalizeQuery(q domain.DocumentListQuery) domain.DocumentListQuery {
	if q.Page <= 0 {
		q.Page = defaultPage
	}
	if q.PerPage <= 0 {
		q.PerPage = defaultPerPage
	}
	return q
}

func (s *DocumentService) List(ctx context.Context, q domain.DocumentListQuery) (domain.DocumentPage, error) {
	token, err := s.token()
	if err != nil {
		return domain.DocumentPage{}, err
	}
	return s.api.List(ctx, token, normalizeQuery(q))
}

// Types serves from the cache when possible; a miss fetches from the
// upstream and repopulates it. Cache failures degrade to a direct fetch.
func (s *DocumentService) Types(ctx context.Context) ([]string, error) {
	token, err := s.token()
	if err != nil {
		return nil, err
	}

	if types, ok, err := s.cache.Get(ctx); err == nil && ok {
		return types, nil
	} else if err != nil {
		s.log.Warn().Err(err).Msg("type cache read failed")
	}

	types, err := s.api.Types(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Put(ctx, types); err != nil {
		s.log.Warn().Err(err).Msg("type cache write failed")
	}
	return types, nil
}

func (s *DocumentService) Upload(ctx context.Context, doc domain.DocumentUpload) (domain.Document, error) {
	token, err := s.token()
	if err != nil {
		return domain.Document{}, err
	}
	created, err := s.api.Upload(ctx, token, doc)
	if err != nil {
		return domain.Document{}, err
	}
	s.log.Info().Str("filename", doc.Filename).Str("file_type", doc.FileType).Msg("document uploaded")
	return created, nil
}

func (s *DocumentService) Update(ctx context.Context, id string, upd domain.DocumentUpdate) (domain.Document, error) {
	token, err := s.token()
	if err != nil {
		return domain.Document{}, err
	}
	return s.api.Update(ctx, token, id, upd)
}

func (s *DocumentService) Delete(ctx context.Context, id string) error {
	token, err := s.token()
	if err != nil {
		return err
	}
	if err := s.api.Delete(ctx, token, id); err != nil {
		return err
	}
	s.log.Info().Str("document_id", id).Msg("document deleted")
	return nil
}

func (s *DocumentService) SearchByUser(ctx context.Context, username string, q domain.DocumentListQuery) (domain.DocumentPage, error) {
	token, err := s.token()
	if err != nil {
		return domain.DocumentPage{}, err
	}
	return s.api.SearchByUser(ctx, token, username, normalizeQuery(q))
}

func (s *DocumentService) SearchByDepartment(ctx context.Context, department string, q domain.DocumentListQuery) (domain.DocumentPage, error) {
	token, err := s.token()
	if err != nil {
		return domain.DocumentPage{}, err
	}
	return s.api.SearchByDepartment(ctx, token, department, normalizeQuery(q))
}

func (s *DocumentService) Users(ctx context.Context) ([]domain.DirectoryEntry, error) {
	token, err := s.token()
	if err != nil {
		return nil, err
	}
	return s.api.Users(ctx, token)
}

func (s *DocumentService) Departments(ctx context.Context) ([]domain.DirectoryEntry, error) {
	token, err := s.token()
	if err != nil {
		return nil, err
	}
	return s.api.Departments(ctx, token)
}

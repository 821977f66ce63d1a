package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/docuchat/admin-gateway/internal/core/domain"
)

// DocumentClient implements ports.DocumentAPI.
type DocumentClient struct {
	c *Client
}

func NewDocumentClient(c *Client) *DocumentClient {
	return &DocumentClient{c: c}
}

func listQuery(q domain.DocumentListQuery) url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("per_page", strconv.Itoa(q.PerPage))
	if q.Query != "" {
		v.Set("q", q.Query)
	}
	return v
}

func (d *DocumentClient) List(ctx context.Context, token string, q domain.DocumentListQuery) (domain.DocumentPage, error) {
	return d.fetchPage(ctx, token, pathDocuments, listQuery(q))
}

func (d *DocumentClient) SearchByUser(ctx context.Context, token, username string, q domain.DocumentListQuery) (domain.DocumentPage, error) {
	v := listQuery(q)
	v.Set("username", username)
	return d.fetchPage(ctx, token, pathSearchUser, v)
}

func (d *DocumentClient) SearchByDepartment(ctx context.Context, token, department string, q domain.DocumentListQuery) (domain.DocumentPage, error) {
	v := listQuery(q)
	v.Set("department", department)
	return d.fetchPage(ctx, token, pathSearchDepartment, v)
}

func (d *DocumentClient) fetchPage(ctx context.Context, token, path string, v url.Values) (domain.DocumentPage, error) {
	resp, err := d.c.Do(ctx, http.MethodGet, path, path, v, nil, "", token)
	if err != nil {
		return domain.DocumentPage{}, err
	}
	if !resp.OK() {
		return domain.DocumentPage{}, resp.AsError()
	}

	var page domain.DocumentPage
	if err := resp.DecodeJSON(&page); err != nil {
		return domain.DocumentPage{}, err
	}
	return page, nil
}

// Types returns the document-type list. The upstream has served both a bare
// array and a {"types": [...]} envelope across versions; accept either.
func (d *DocumentClient) Types(ctx context.Context, token string) ([]string, error) {
	resp, err := d.c.Do(ctx, http.MethodGet, pathDocumentTypes, pathDocumentTypes, nil, nil, "", token)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, resp.AsError()
	}

	var envelope struct {
		Types []string `json:"types"`
	}
	if err := resp.DecodeJSON(&envelope); err == nil && len(envelope.Types) > 0 {
		return envelope.Types, nil
	}
	var plain []string
	if err := resp.DecodeJSON(&plain); err != nil {
		return nil, err
	}
	return plain, nil
}

// Upload sends a new document and its access roles as multipart form data,
// the shape the upstream ingestion endpoint expects.
func (d *DocumentClient) Upload(ctx context.Context, token string, doc domain.DocumentUpload) (domain.Document, error) {
	body, contentType, err := documentForm(doc.Filename, doc.FileType, doc.UploadedBy, doc.RoleUsers, doc.RoleDepts, doc.Content)
	if err != nil {
		return domain.Document{}, err
	}

	resp, err := d.c.Do(ctx, http.MethodPost, pathVectorAdd, pathVectorAdd, nil, body, contentType, token)
	if err != nil {
		return domain.Document{}, err
	}
	if !resp.OK() {
		return domain.Document{}, resp.AsError()
	}

	var created domain.Document
	if err := resp.DecodeJSON(&created); err != nil {
		return domain.Document{}, err
	}
	return created, nil
}

// Update rewrites a document's metadata and roles. No file content travels
// on updates.
func (d *DocumentClient) Update(ctx context.Context, token, id string, upd domain.DocumentUpdate) (domain.Document, error) {
	body, contentType, err := documentForm(upd.Filename, upd.FileType, upd.UploadedBy, upd.RoleUsers, upd.RoleDepts, nil)
	if err != nil {
		return domain.Document{}, err
	}

	resp, err := d.c.Do(ctx, http.MethodPut, pathVectorUpdate, pathVectorUpdate+"/"+url.PathEscape(id), nil, body, contentType, token)
	if err != nil {
		return domain.Document{}, err
	}
	if !resp.OK() {
		return domain.Document{}, resp.AsError()
	}

	var updated domain.Document
	if err := resp.DecodeJSON(&updated); err != nil {
		return domain.Document{}, err
	}
	return updated, nil
}

func (d *DocumentClient) Delete(ctx context.Context, token, id string) error {
	resp, err := d.c.Do(ctx, http.MethodDelete, pathVectorDelete, pathVectorDelete+"/"+url.PathEscape(id), nil, nil, "", token)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return resp.AsError()
	}
	return nil
}

func (d *DocumentClient) Users(ctx context.Context, token string) ([]domain.DirectoryEntry, error) {
	return d.fetchDirectory(ctx, token, pathUsers)
}

func (d *DocumentClient) Departments(ctx context.Context, token string) ([]domain.DirectoryEntry, error) {
	return d.fetchDirectory(ctx, token, pathDepartments)
}

func (d *DocumentClient) fetchDirectory(ctx context.Context, token, path string) ([]domain.DirectoryEntry, error) {
	resp, err := d.c.Do(ctx, http.MethodGet, path, path, nil, nil, "", token)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, resp.AsError()
	}

	var entries []domain.DirectoryEntry
	if err := resp.DecodeJSON(&entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// documentForm builds the multipart payload shared by upload and update.
// content == nil omits the file part.
func documentForm(filename, fileType, uploadedBy string, roleUsers, roleDepts []string, content []byte) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	if content != nil {
		part, err := w.CreateFormFile("file", filename)
		if err != nil {
			return nil, "", fmt.Errorf("build upload form: %w", err)
		}
		if _, err := part.Write(content); err != nil {
			return nil, "", fmt.Errorf("build upload form: %w", err)
		}
	} else {
		_ = w.WriteField("filename", filename)
	}

	_ = w.WriteField("file_type", fileType)
	_ = w.WriteField("uploaded_by", uploadedBy)

	users, err := json.Marshal(orEmpty(roleUsers))
	if err != nil {
		return nil, "", fmt.Errorf("encode role_user: %w", err)
	}
	depts, err := json.Marshal(orEmpty(roleDepts))
	if err != nil {
		return nil, "", fmt.Errorf("encode role_department: %w", err)
	}
	_ = w.WriteField("role_user", string(users))
	_ = w.WriteField("role_department", string(depts))

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize form: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

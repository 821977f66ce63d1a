package domain

import "encoding/json"

// Document mirrors the upstream document record. The gateway does not
// interpret most fields; it forwards them to the SPA as received.
type Document struct {
	ID         string   `json:"id"`
	Filename   string   `json:"filename"`
	FileType   string   `json:"file_type"`
	UploadedBy string   `json:"uploaded_by,omitempty"`
	RoleUsers  []string `json:"role_user,omitempty"`
	RoleDepts  []string `json:"role_department,omitempty"`
	CreatedAt  string   `json:"created_at,omitempty"`
}

// DocumentPage is one page of the upstream document listing.
type DocumentPage struct {
	Documents []Document `json:"documents"`
	Total     int        `json:"total"`
	Page      int        `json:"page"`
	PerPage   int        `json:"per_page"`
}

// DocumentListQuery carries the listing/search parameters of the SPA table.
type DocumentListQuery struct {
	Page    int
	PerPage int
	Query   string
}

// DocumentUpload is a new document plus its access roles. Content is the
// raw file body; the gateway streams it through without inspecting it.
type DocumentUpload struct {
	Filename   string
	FileType   string
	UploadedBy string
	RoleUsers  []string
	RoleDepts  []string
	Content    []byte
}

// DocumentUpdate changes metadata and roles of an existing document.
type DocumentUpdate struct {
	Filename   string
	FileType   string
	UploadedBy string
	RoleUsers  []string
	RoleDepts  []string
}

// Directory entries the SPA needs to populate role pickers. Kept opaque:
// the upstream shape for users and departments is not part of the gateway
// contract.
type DirectoryEntry = json.RawMessage

package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/docuchat/admin-gateway/internal/core/domain"
	"github.com/docuchat/admin-gateway/internal/core/ports"
)

// DocumentHandler proxies the SPA's document operations.
type DocumentHandler struct {
	docs ports.DocumentService
}

func NewDocumentHandler(docs ports.DocumentService) *DocumentHandler {
	return &DocumentHandler{docs: docs}
}

func listQueryFromRequest(c echo.Context) domain.DocumentListQuery {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	perPage, _ := strconv.Atoi(c.QueryParam("per_page"))
	return domain.DocumentListQuery{
		Page:    page,
		PerPage: perPage,
		Query:   c.QueryParam("q"),
	}
}

// List returns one page of documents.
//
// @Summary      List documents
// @Tags         documents
// @Produce      json
// @Param        page      query  int     false  "Page number"
// @Param        per_page  query  int     false  "Page size"
// @Param        q         query  string  false  "Search term"
// @Success      200  {object}  domain.DocumentPage
// @Failure      503  {object}  map[string]string
// @Router       /api/documents [get]
func (h *DocumentHandler) List(c echo.Context) error {
	page, err := h.docs.List(c.Request().Context(), listQueryFromRequest(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// Types returns the document-type list.
//
// @Summary      List document types
// @Tags         documents
// @Produce      json
// @Success      200  {array}  string
// @Router       /api/documents/types [get]
func (h *DocumentHandler) Types(c echo.Context) error {
	types, err := h.docs.Types(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, types)
}

// Upload ingests a new document (multipart form, same shape the SPA's
// upload modal submits).
//
// @Summary      Upload a document
// @Tags         documents
// @Accept       multipart/form-data
// @Produce      json
// @Success      201  {object}  domain.Document
// @Failure      400  {object}  map[string]string
// @Router       /api/documents [post]
func (h *DocumentHandler) Upload(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	f, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read uploaded file")
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read uploaded file")
	}

	upload := domain.DocumentUpload{
		Filename:   fileHeader.Filename,
		FileType:   c.FormValue("file_type"),
		UploadedBy: c.FormValue("uploaded_by"),
		RoleUsers:  decodeRoleList(c.FormValue("role_user")),
		RoleDepts:  decodeRoleList(c.FormValue("role_department")),
		Content:    content,
	}
	if upload.FileType == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "file_type is required")
	}

	created, err := h.docs.Upload(c.Request().Context(), upload)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

// Update rewrites metadata and access roles of a document.
//
// @Summary      Update document metadata
// @Tags         documents
// @Accept       multipart/form-data
// @Produce      json
// @Param        id  path  string  true  "Document ID"
// @Success      200  {object}  domain.Document
// @Router       /api/documents/{id} [put]
func (h *DocumentHandler) Update(c echo.Context) error {
	upd := domain.DocumentUpdate{
		Filename:   c.FormValue("filename"),
		FileType:   c.FormValue("file_type"),
		UploadedBy: c.FormValue("uploaded_by"),
		RoleUsers:  decodeRoleList(c.FormValue("role_user")),
		RoleDepts:  decodeRoleList(c.FormValue("role_department")),
	}

	updated, err := h.docs.Update(c.Request().Context(), c.Param("id"), upd)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

// Delete removes a document.
//
// @Summary      Delete a document
// @Tags         documents
// @Param        id  path  string  true  "Document ID"
// @Success      204
// @Router       /api/documents/{id} [delete]
func (h *DocumentHandler) Delete(c echo.Context) error {
	if err := h.docs.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// SearchByUser filters documents visible to a given user.
//
// @Summary      Search documents by user
// @Tags         documents
// @Produce      json
// @Param        username  query  string  true  "Username"
// @Success      200  {object}  domain.DocumentPage
// @Router       /api/documents/search/user [get]
func (h *DocumentHandler) SearchByUser(c echo.Context) error {
	username := c.QueryParam("username")
	if username == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username is required")
	}
	page, err := h.docs.SearchByUser(c.Request().Context(), username, listQueryFromRequest(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// SearchByDepartment filters documents visible to a department.
//
// @Summary      Search documents by department
// @Tags         documents
// @Produce      json
// @Param        department  query  string  true  "Department"
// @Success      200  {object}  domain.DocumentPage
// @Router       /api/documents/search/department [get]
func (h *DocumentHandler) SearchByDepartment(c echo.Context) error {
	department := c.QueryParam("department")
	if department == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "department is required")
	}
	page, err := h.docs.SearchByDepartment(c.Request().Context(), department, listQueryFromRequest(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// Users returns the upstream user directory for the role pickers.
//
// @Summary      List users
// @Tags         directory
// @Produce      json
// @Success      200  {array}  object
// @Router       /api/users [get]
func (h *DocumentHandler) Users(c echo.Context) error {
	entries, err := h.docs.Users(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

// Departments returns the upstream department directory.
//
// @Summary      List departments
// @Tags         directory
// @Produce      json
// @Success      200  {array}  object
// @Router       /api/departments [get]
func (h *DocumentHandler) Departments(c echo.Context) error {
	entries, err := h.docs.Departments(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

// decodeRoleList accepts the JSON-array form the SPA submits; a bare value
// or malformed JSON degrades to a single-element list, empty to none.
func decodeRoleList(raw string) []string {
	if raw == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return []string{raw}
	}
	return list
}

package document

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"docvault/internal/transport/http/shared"
	"docvault/pkg/apierrors"
	"docvault/pkg/requestcontext"
)

// Handler exposes the document endpoints. All of them sit behind auth plus
// verification middleware.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the document routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/documents", h.handleListOwned)
	r.Post("/api/documents", h.handleUpload)
	r.Get("/api/documents/shared", h.handleListShared)
	r.Get("/api/documents/{id}", h.handleGet)
	r.Put("/api/documents/{id}", h.handleUpdate)
	r.Delete("/api/documents/{id}", h.handleDelete)
	r.Post("/api/documents/{id}/share", h.handleShare)
	r.Get("/api/documents/{id}/download", h.handleDownload)
}

func (h *Handler) docID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, r, h.logger, apierrors.New(apierrors.CodeValidation, "invalid document id"))
		return uuid.Nil, false
	}
	return id, true
}

func parseFilter(r *http.Request) Filter {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return Filter{
		Type:   Type(q.Get("documentType")),
		Search: q.Get("search"),
		Page:   page,
		Limit:  limit,
	}
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFileSize); err != nil {
		shared.WriteError(w, r, h.logger, apierrors.New(apierrors.CodeValidation, "invalid multipart form"))
		return
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		shared.WriteError(w, r, h.logger, apierrors.Validation(map[string]string{"document": "please upload a file"}))
		return
	}
	defer file.Close()

	in := UploadInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Type:        Type(r.FormValue("documentType")),
		Tags:        splitTags(r.FormValue("tags")),
		FileName:    header.Filename,
		MimeType:    header.Header.Get("Content-Type"),
		FileSize:    header.Size,
		Content:     file,
	}
	if raw := r.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.Meta); err != nil {
			shared.WriteError(w, r, h.logger, apierrors.Validation(map[string]string{"metadata": "metadata must be a JSON object"}))
			return
		}
	}

	doc, err := h.service.Create(r.Context(), requestcontext.UserID(r.Context()), in)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, doc)
}

func (h *Handler) handleListOwned(w http.ResponseWriter, r *http.Request) {
	filter := parseFilter(r)
	docs, total, err := h.service.ListOwned(r.Context(), requestcontext.UserID(r.Context()), filter)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, shared.NewListEnvelope(docs, len(docs), total, filter.Page, filterLimit(filter)))
}

func (h *Handler) handleListShared(w http.ResponseWriter, r *http.Request) {
	filter := parseFilter(r)
	docs, total, err := h.service.ListSharedWith(r.Context(), requestcontext.UserID(r.Context()), filter)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, shared.NewListEnvelope(docs, len(docs), total, filter.Page, filterLimit(filter)))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.docID(w, r)
	if !ok {
		return
	}
	doc, err := h.service.Get(r.Context(), id, requestcontext.UserID(r.Context()))
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.docID(w, r)
	if !ok {
		return
	}

	var patch MetadataPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		shared.WriteError(w, r, h.logger, apierrors.New(apierrors.CodeValidation, "invalid request body"))
		return
	}

	doc, err := h.service.Update(r.Context(), id, requestcontext.UserID(r.Context()), patch)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, doc)
}

type deleteResponse struct {
	Message string `json:"message"`
	Warning string `json:"warning,omitempty"`
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.docID(w, r)
	if !ok {
		return
	}

	warning, err := h.service.Delete(r.Context(), id, requestcontext.UserID(r.Context()))
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, deleteResponse{Message: "document deleted", Warning: warning})
}

type shareRequest struct {
	NationalID  string       `json:"nationalId"`
	Permissions []Permission `json:"permissions"`
}

func (h *Handler) handleShare(w http.ResponseWriter, r *http.Request) {
	id, ok := h.docID(w, r)
	if !ok {
		return
	}

	var in shareRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		shared.WriteError(w, r, h.logger, apierrors.New(apierrors.CodeValidation, "invalid request body"))
		return
	}
	if in.NationalID == "" {
		shared.WriteError(w, r, h.logger, apierrors.Validation(map[string]string{"nationalId": "please provide the national id of the user to share with"}))
		return
	}

	doc, err := h.service.Share(r.Context(), id, requestcontext.UserID(r.Context()), in.NationalID, in.Permissions)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	id, ok := h.docID(w, r)
	if !ok {
		return
	}

	doc, rc, err := h.service.Download(r.Context(), id, requestcontext.UserID(r.Context()))
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", doc.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	if doc.FileSize > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(doc.FileSize, 10))
	}
	if _, err := io.Copy(w, rc); err != nil {
		// Headers are gone by now; the broken stream is all we can log.
		h.logger.WarnContext(r.Context(), "download stream interrupted",
			"error", err,
			"document_id", doc.ID,
		)
	}
}

func filterLimit(filter Filter) int {
	if filter.Limit < 1 {
		return 10
	}
	return filter.Limit
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

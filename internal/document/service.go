package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"docvault/internal/access"
	"docvault/internal/audit"
	"docvault/internal/blob"
	"docvault/internal/identity"
	"docvault/internal/platform/metrics"
	"docvault/pkg/apierrors"
)

// UserDirectory resolves share targets by their national id.
type UserDirectory interface {
	FindByNationalID(ctx context.Context, nationalID string) (*identity.User, error)
}

const maxFileSize = 10 << 20 // 10 MiB

var allowedMimeTypes = map[string]struct{}{
	"application/pdf": {},
	"image/jpeg":      {},
	"image/png":       {},
}

// Service owns the document registry: uploads, metadata, grants, downloads.
// The blob store holds bytes, the registry store holds everything else; the
// service keeps the two consistent.
type Service struct {
	store   Store
	blobs   blob.Store
	users   UserDirectory
	sink    audit.Sink
	metrics *metrics.Metrics
	logger  *slog.Logger

	now func() time.Time
}

func NewService(store Store, blobs blob.Store, users UserDirectory, sink audit.Sink, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		blobs:   blobs,
		users:   users,
		sink:    sink,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// UploadInput carries the metadata and content of a new document.
type UploadInput struct {
	Title       string
	Description string
	Type        Type
	Tags        []string
	Meta        Metadata
	FileName    string
	MimeType    string
	FileSize    int64
	Content     io.Reader
}

func validateUpload(in UploadInput) map[string]string {
	fields := make(map[string]string)
	if strings.TrimSpace(in.Title) == "" {
		fields["title"] = "please add a title"
	} else if len(in.Title) > 100 {
		fields["title"] = "title cannot be more than 100 characters"
	}
	if len(in.Description) > 500 {
		fields["description"] = "description cannot be more than 500 characters"
	}
	if !ValidType(in.Type) {
		fields["documentType"] = "please select a valid document type"
	}
	if in.Content == nil || in.FileName == "" {
		fields["document"] = "please upload a file"
	}
	if in.FileSize > maxFileSize {
		fields["document"] = "file cannot be larger than 10MB"
	}
	if _, ok := allowedMimeTypes[in.MimeType]; !ok {
		fields["document"] = "only PDF, JPEG, and PNG files are allowed"
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// Create stores the file bytes first, then the registry record. A registry
// failure cleans the orphaned blob up best-effort.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, in UploadInput) (*Document, error) {
	if fields := validateUpload(in); fields != nil {
		return nil, apierrors.Validation(fields)
	}

	now := s.now()
	doc := &Document{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Type:        in.Type,
		FileName:    in.FileName,
		FileSize:    in.FileSize,
		MimeType:    in.MimeType,
		OwnerID:     ownerID,
		Tags:        normalizeTags(in.Tags),
		Meta:        in.Meta,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	doc.FileKey = fmt.Sprintf("%s/%s%s", ownerID, doc.ID, filepath.Ext(in.FileName))

	if err := s.blobs.Put(ctx, doc.FileKey, in.Content, in.FileSize, in.MimeType); err != nil {
		return nil, apierrors.New(apierrors.CodeUpstream, "failed to store file")
	}

	if err := s.store.Create(ctx, doc); err != nil {
		if delErr := s.blobs.Delete(ctx, doc.FileKey); delErr != nil {
			s.logger.WarnContext(ctx, "orphaned blob after failed registry create",
				"error", delErr,
				"file_key", doc.FileKey,
			)
		}
		return nil, err
	}

	s.metrics.DocumentsUploaded.Inc()
	s.audit(ctx, ownerID, audit.ActionUploadDocument, doc.ID, map[string]any{"title": doc.Title, "documentType": doc.Type})
	return doc, nil
}

// Get returns the document if the requester is the owner or holds a grant.
func (s *Service) Get(ctx context.Context, docID, requesterID uuid.UUID) (*Document, error) {
	doc, err := s.store.FindByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if !access.CanRead(doc, requesterID) {
		return nil, apierrors.New(apierrors.CodeForbidden, "not authorized to access this document")
	}
	s.audit(ctx, requesterID, audit.ActionViewDocument, doc.ID, nil)
	return doc, nil
}

// MetadataPatch updates the mutable document fields. The file itself, the
// owner, and the grants are not reachable through it.
type MetadataPatch struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Type        *Type     `json:"documentType"`
	Tags        *[]string `json:"tags"`
	Meta        *Metadata `json:"metadata"`
}

// Update applies a metadata patch. Owner only.
func (s *Service) Update(ctx context.Context, docID, requesterID uuid.UUID, patch MetadataPatch) (*Document, error) {
	doc, err := s.store.FindByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if !access.CanMutate(doc, requesterID) {
		return nil, apierrors.New(apierrors.CodeForbidden, "not authorized to update this document")
	}

	fields := make(map[string]string)
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" || len(*patch.Title) > 100 {
			fields["title"] = "please add a title of at most 100 characters"
		} else {
			doc.Title = strings.TrimSpace(*patch.Title)
		}
	}
	if patch.Description != nil {
		if len(*patch.Description) > 500 {
			fields["description"] = "description cannot be more than 500 characters"
		} else {
			doc.Description = *patch.Description
		}
	}
	if patch.Type != nil {
		if !ValidType(*patch.Type) {
			fields["documentType"] = "please select a valid document type"
		} else {
			doc.Type = *patch.Type
		}
	}
	if patch.Tags != nil {
		doc.Tags = normalizeTags(*patch.Tags)
	}
	if patch.Meta != nil {
		doc.Meta = *patch.Meta
	}
	if len(fields) > 0 {
		return nil, apierrors.Validation(fields)
	}

	doc.UpdatedAt = s.now()
	if err := s.store.Update(ctx, doc); err != nil {
		return nil, err
	}

	s.audit(ctx, requesterID, audit.ActionUpdateDocument, doc.ID, nil)
	return doc, nil
}

// Delete removes the blob first, then the registry record. A blob failure is
// reported as a warning, never as an error: the registry record goes away
// regardless so the document cannot reappear half-deleted.
func (s *Service) Delete(ctx context.Context, docID, requesterID uuid.UUID) (string, error) {
	doc, err := s.store.FindByID(ctx, docID)
	if err != nil {
		return "", err
	}
	if !access.CanDelete(doc, requesterID) {
		return "", apierrors.New(apierrors.CodeForbidden, "not authorized to delete this document")
	}

	var warning string
	if err := s.blobs.Delete(ctx, doc.FileKey); err != nil && !errors.Is(err, blob.ErrNotFound) {
		warning = "document record deleted but file removal failed"
		s.logger.WarnContext(ctx, "blob delete failed",
			"error", err,
			"document_id", doc.ID,
			"file_key", doc.FileKey,
		)
	}

	if err := s.store.Delete(ctx, docID); err != nil {
		return "", err
	}

	s.audit(ctx, requesterID, audit.ActionDeleteDocument, doc.ID, map[string]any{"title": doc.Title})
	return warning, nil
}

// ListOwned returns the requester's own documents.
func (s *Service) ListOwned(ctx context.Context, ownerID uuid.UUID, filter Filter) ([]*Document, int, error) {
	return s.store.ListOwned(ctx, ownerID, filter)
}

// ListSharedWith returns the documents others have shared with the requester.
func (s *Service) ListSharedWith(ctx context.Context, userID uuid.UUID, filter Filter) ([]*Document, int, error) {
	return s.store.ListSharedWith(ctx, userID, filter)
}

// Share grants access to the user identified by nationalID. Owner only. An
// empty permission list defaults to view.
func (s *Service) Share(ctx context.Context, docID, requesterID uuid.UUID, nationalID string, permissions []Permission) (*Document, error) {
	doc, err := s.store.FindByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if !access.CanShare(doc, requesterID) {
		return nil, apierrors.New(apierrors.CodeForbidden, "not authorized to share this document")
	}

	if len(permissions) == 0 {
		permissions = []Permission{PermissionView}
	}
	for _, p := range permissions {
		if !ValidPermission(p) {
			return nil, apierrors.Validation(map[string]string{"permissions": "permissions may only be view or download"})
		}
	}

	grantee, err := s.users.FindByNationalID(ctx, nationalID)
	if err != nil {
		if apierrors.Is(err, apierrors.CodeNotFound) {
			return nil, apierrors.New(apierrors.CodeNotFound, "user not found with this national id number")
		}
		return nil, err
	}
	if grantee.ID == doc.OwnerID {
		return nil, apierrors.Validation(map[string]string{"nationalId": "cannot share a document with yourself"})
	}

	grant := Grant{
		GranteeID:   grantee.ID,
		Permissions: permissions,
		GrantedAt:   s.now(),
		GrantedBy:   requesterID,
	}
	if err := s.store.AddGrant(ctx, docID, grant); err != nil {
		return nil, err
	}

	s.metrics.DocumentsShared.Inc()
	s.audit(ctx, requesterID, audit.ActionShareDocument, doc.ID, map[string]any{"granteeId": grantee.ID, "permissions": permissions})

	return s.store.FindByID(ctx, docID)
}

// Download streams the stored bytes if the requester is the owner or holds a
// grant carrying the download permission. The caller must close the reader.
func (s *Service) Download(ctx context.Context, docID, requesterID uuid.UUID) (*Document, io.ReadCloser, error) {
	doc, err := s.store.FindByID(ctx, docID)
	if err != nil {
		return nil, nil, err
	}
	if !access.CanDownload(doc, requesterID) {
		return nil, nil, apierrors.New(apierrors.CodeForbidden, "not authorized to download this document")
	}

	rc, err := s.blobs.Get(ctx, doc.FileKey)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, nil, apierrors.New(apierrors.CodeNotFound, "stored file not found")
		}
		return nil, nil, apierrors.New(apierrors.CodeUpstream, "failed to retrieve file")
	}

	s.metrics.DocumentsDownloaded.Inc()
	s.audit(ctx, requesterID, audit.ActionDownloadDocument, doc.ID, map[string]any{"fileName": doc.FileName})
	return doc, rc, nil
}

func (s *Service) audit(ctx context.Context, userID uuid.UUID, action audit.Action, docID uuid.UUID, detail map[string]any) {
	resourceID := docID
	s.sink.Record(ctx, audit.Entry{
		UserID:       userID,
		Action:       action,
		ResourceType: audit.ResourceDocument,
		ResourceID:   &resourceID,
		Detail:       detail,
	})
}

func normalizeTags(tags []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

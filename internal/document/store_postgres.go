package document

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresStore persists document records in PostgreSQL. Grants live in the
// document_grants child table; its UNIQUE(document_id, grantee_id) constraint
// is what makes concurrent duplicate shares lose cleanly.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const documentColumns = `id, title, description, doc_type, file_name, file_key, file_size,
	mime_type, owner_id, is_public, tags, document_number, issue_date, expiry_date,
	issuing_authority, created_at, updated_at`

func scanDocument(row interface{ Scan(...any) error }) (*Document, error) {
	var (
		d       Document
		tagsRaw []byte
	)
	err := row.Scan(
		&d.ID, &d.Title, &d.Description, &d.Type, &d.FileName, &d.FileKey, &d.FileSize,
		&d.MimeType, &d.OwnerID, &d.IsPublic, &tagsRaw, &d.Meta.DocumentNumber,
		&d.Meta.IssueDate, &d.Meta.ExpiryDate, &d.Meta.IssuingAuthority,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(tagsRaw) > 0 {
		if err := json.Unmarshal(tagsRaw, &d.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
	}
	return &d, nil
}

func encodeTags(tags []string) ([]byte, error) {
	if tags == nil {
		tags = []string{}
	}
	return json.Marshal(tags)
}

func (s *PostgresStore) Create(ctx context.Context, doc *Document) error {
	tags, err := encodeTags(doc.Tags)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		doc.ID, doc.Title, doc.Description, doc.Type, doc.FileName, doc.FileKey, doc.FileSize,
		doc.MimeType, doc.OwnerID, doc.IsPublic, tags, doc.Meta.DocumentNumber,
		doc.Meta.IssueDate, doc.Meta.ExpiryDate, doc.Meta.IssuingAuthority,
		doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	doc, err := scanDocument(s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find document: %w", err)
	}
	if err := s.loadGrants(ctx, []*Document{doc}); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *PostgresStore) Update(ctx context.Context, doc *Document) error {
	tags, err := encodeTags(doc.Tags)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE documents SET
			title = $2, description = $3, doc_type = $4, is_public = $5, tags = $6,
			document_number = $7, issue_date = $8, expiry_date = $9,
			issuing_authority = $10, updated_at = $11
		WHERE id = $1`,
		doc.ID, doc.Title, doc.Description, doc.Type, doc.IsPublic, tags,
		doc.Meta.DocumentNumber, doc.Meta.IssueDate, doc.Meta.ExpiryDate,
		doc.Meta.IssuingAuthority, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	// Grants go with the document via ON DELETE CASCADE.
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// listQuery builds the WHERE tail shared by the list queries. The returned
// args start at $2; $1 is always the user id.
func listQuery(filter Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	next := 2
	if filter.Type != "" {
		clauses = append(clauses, fmt.Sprintf("d.doc_type = $%d", next))
		args = append(args, filter.Type)
		next++
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		clauses = append(clauses, fmt.Sprintf(
			"(d.title ILIKE $%d OR d.description ILIKE $%d OR d.tags::text ILIKE $%d)",
			next, next, next))
		args = append(args, pattern)
		next++
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " AND " + strings.Join(clauses, " AND "), args
}

func pageBounds(filter Filter) (limit, offset int) {
	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return limit, (page - 1) * limit
}

func (s *PostgresStore) list(ctx context.Context, baseWhere string, userID uuid.UUID, filter Filter) ([]*Document, int, error) {
	tail, args := listQuery(filter)
	args = append([]any{userID}, args...)

	var total int
	countQuery := `SELECT COUNT(*) FROM documents d ` + baseWhere + tail
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	limit, offset := pageBounds(filter)
	query := `SELECT ` + prefixColumns("d") + ` FROM documents d ` + baseWhere + tail +
		fmt.Sprintf(" ORDER BY d.created_at DESC LIMIT %d OFFSET %d", limit, offset)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []*Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("list documents: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	if err := s.loadGrants(ctx, docs); err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

func (s *PostgresStore) ListOwned(ctx context.Context, ownerID uuid.UUID, filter Filter) ([]*Document, int, error) {
	return s.list(ctx, `WHERE d.owner_id = $1`, ownerID, filter)
}

func (s *PostgresStore) ListSharedWith(ctx context.Context, userID uuid.UUID, filter Filter) ([]*Document, int, error) {
	where := `JOIN document_grants g ON g.document_id = d.id WHERE g.grantee_id = $1`
	return s.list(ctx, where, userID, filter)
}

func (s *PostgresStore) AddGrant(ctx context.Context, docID uuid.UUID, grant Grant) error {
	permissions, err := json.Marshal(grant.Permissions)
	if err != nil {
		return fmt.Errorf("add grant: %w", err)
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO document_grants (document_id, grantee_id, permissions, granted_at, granted_by)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (document_id, grantee_id) DO NOTHING`,
		docID, grant.GranteeID, permissions, grant.GrantedAt, grant.GrantedBy,
	)
	if err != nil {
		// Foreign key failure means the document vanished underneath us.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return fmt.Errorf("add grant: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("add grant: %w", err)
	}
	if affected == 0 {
		return ErrAlreadyShared
	}
	return nil
}

// loadGrants hydrates the grant lists for a page of documents in one query.
func (s *PostgresStore) loadGrants(ctx context.Context, docs []*Document) error {
	if len(docs) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*Document, len(docs))
	placeholders := make([]string, 0, len(docs))
	args := make([]any, 0, len(docs))
	for i, doc := range docs {
		doc.Grants = []Grant{}
		byID[doc.ID] = doc
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, doc.ID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, grantee_id, permissions, granted_at, granted_by
		FROM document_grants
		WHERE document_id IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY granted_at`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("load grants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			docID          uuid.UUID
			grant          Grant
			permissionsRaw []byte
		)
		if err := rows.Scan(&docID, &grant.GranteeID, &permissionsRaw, &grant.GrantedAt, &grant.GrantedBy); err != nil {
			return fmt.Errorf("load grants: %w", err)
		}
		if err := json.Unmarshal(permissionsRaw, &grant.Permissions); err != nil {
			return fmt.Errorf("decode grant permissions: %w", err)
		}
		if doc, ok := byID[docID]; ok {
			doc.Grants = append(doc.Grants, grant)
		}
	}
	return rows.Err()
}

func prefixColumns(alias string) string {
	cols := strings.Split(documentColumns, ",")
	for i, col := range cols {
		cols[i] = alias + "." + strings.TrimSpace(col)
	}
	return strings.Join(cols, ", ")
}

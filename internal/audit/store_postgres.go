package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// PostgresStore persists the audit log in PostgreSQL. Append-only: there is
// no update or delete path.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	var detail []byte
	if entry.Detail != nil {
		var err error
		detail, err = json.Marshal(entry.Detail)
		if err != nil {
			return fmt.Errorf("append audit entry: %w", err)
		}
	}
	var resourceID any
	if entry.ResourceID != nil {
		resourceID = *entry.ResourceID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_entries (id, user_id, action, resource_type, resource_id, detail, ip_address, user_agent, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.UserID, entry.Action, entry.ResourceType, resourceID, detail,
		entry.IPAddress, entry.UserAgent, entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func filterClauses(filter Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if filter.Action != "" {
		args = append(args, filter.Action)
		clauses = append(clauses, fmt.Sprintf("action = $%d", len(args)))
	}
	if filter.UserID != uuid.Nil {
		args = append(args, filter.UserID)
		clauses = append(clauses, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		clauses = append(clauses, fmt.Sprintf("ts >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		clauses = append(clauses, fmt.Sprintf("ts <= $%d", len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	entries := []Entry{}
	for rows.Next() {
		var (
			entry      Entry
			resourceID uuid.NullUUID
			detail     []byte
		)
		err := rows.Scan(&entry.ID, &entry.UserID, &entry.Action, &entry.ResourceType,
			&resourceID, &detail, &entry.IPAddress, &entry.UserAgent, &entry.Timestamp)
		if err != nil {
			return nil, err
		}
		if resourceID.Valid {
			id := resourceID.UUID
			entry.ResourceID = &id
		}
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &entry.Detail); err != nil {
				return nil, fmt.Errorf("decode detail: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

const entryColumns = `id, user_id, action, resource_type, resource_id, detail, ip_address, user_agent, ts`

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]Entry, int, error) {
	where, args := filterClauses(filter)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_entries`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	query := `SELECT ` + entryColumns + ` FROM audit_entries` + where +
		fmt.Sprintf(" ORDER BY ts DESC LIMIT %d OFFSET %d", limit, (page-1)*limit)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, total, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Entry, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entryColumns+` FROM audit_entries
		WHERE user_id = $1 ORDER BY ts DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list user audit entries: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, fmt.Errorf("list user audit entries: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT user_id) FROM audit_entries`).
		Scan(&stats.TotalEntries, &stats.DistinctUsers)
	if err != nil {
		return Stats{}, fmt.Errorf("audit stats: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT action, COUNT(*), MAX(ts)
		FROM audit_entries
		GROUP BY action
		ORDER BY COUNT(*) DESC, action`)
	if err != nil {
		return Stats{}, fmt.Errorf("audit stats: %w", err)
	}
	defer rows.Close()

	stats.Actions = []ActionStat{}
	for rows.Next() {
		var stat ActionStat
		if err := rows.Scan(&stat.Action, &stat.Count, &stat.LastOccurred); err != nil {
			return Stats{}, fmt.Errorf("audit stats: %w", err)
		}
		stats.Actions = append(stats.Actions, stat)
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("audit stats: %w", err)
	}
	return stats, nil
}

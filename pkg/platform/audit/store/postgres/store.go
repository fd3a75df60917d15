package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	audit "hrdms/pkg/platform/audit"
	"hrdms/pkg/platform/sentinel"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Schema creates the audit_records table and its lookup indexes.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_records (
	id                   UUID PRIMARY KEY,
	actor_id             TEXT NOT NULL,
	action               TEXT NOT NULL,
	affected_entity_type TEXT NOT NULL,
	affected_entity_id   TEXT NOT NULL,
	metadata             JSONB,
	created_at           TIMESTAMPTZ NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_records_actor ON audit_records (actor_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_audit_records_entity ON audit_records (affected_entity_type, affected_entity_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_audit_records_created ON audit_records (created_at DESC);
`

// uniqueViolation is the Postgres SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

// Store implements audit.Store on PostgreSQL through database/sql, opened
// with either the pgx or the lib/pq driver. Rows are only ever inserted.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate applies Schema. It is safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate audit_records: %w", err)
	}
	return nil
}

const selectColumns = `id, actor_id, action, affected_entity_type, affected_entity_id, metadata, created_at, updated_at`

func (s *Store) Append(ctx context.Context, record *audit.Record) error {
	if record == nil {
		return fmt.Errorf("append audit record: nil record")
	}
	recordID, err := uuid.Parse(record.ID)
	if err != nil {
		return fmt.Errorf("append audit record: invalid id %q: %w", record.ID, err)
	}

	var metadata []byte
	if len(record.Metadata) > 0 {
		metadata, err = json.Marshal(record.Metadata)
		if err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
	}

	query := `
		INSERT INTO audit_records (
			id, actor_id, action, affected_entity_type, affected_entity_id,
			metadata, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		recordID,
		record.ActorID,
		string(record.Action),
		string(record.EntityType),
		record.EntityID,
		nullableJSON(metadata),
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("append audit record %s: duplicate id", record.ID)
		}
		return storeErr("insert audit record", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*audit.Record, error) {
	recordID, err := uuid.Parse(id)
	if err != nil {
		// ids are always uuids, so anything else cannot exist
		return nil, sentinel.ErrNotFound
	}

	query := `SELECT ` + selectColumns + ` FROM audit_records WHERE id = $1`
	record, err := scanRecord(s.db.QueryRowContext(ctx, query, recordID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, storeErr("find audit record", err)
	}
	return record, nil
}

func (s *Store) Query(ctx context.Context, q audit.Query) (*audit.Page, error) {
	where, args := buildWhere(q.Filter)

	var total int64
	countQuery := `SELECT COUNT(*) FROM audit_records` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, storeErr("count audit records", err)
	}

	listQuery := `SELECT ` + selectColumns + ` FROM audit_records` + where + orderBy(q)
	if q.Page.Limit > 0 {
		args = append(args, q.Page.Limit)
		listQuery += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if q.Page.Offset > 0 {
		args = append(args, q.Page.Offset)
		listQuery += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, storeErr("query audit records", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	return &audit.Page{Records: records, Total: total}, nil
}

func (s *Store) ListByActor(ctx context.Context, actorID string, p audit.Pagination) (*audit.Page, error) {
	return s.Query(ctx, audit.Query{
		Filter:    audit.Filter{ActorID: actorID},
		Page:      p,
		SortBy:    audit.SortByCreatedAt,
		SortOrder: audit.SortDesc,
	})
}

func (s *Store) ListByEntity(ctx context.Context, entityType audit.EntityType, entityID string, p audit.Pagination) (*audit.Page, error) {
	return s.Query(ctx, audit.Query{
		Filter:    audit.Filter{EntityType: entityType, EntityID: entityID},
		Page:      p,
		SortBy:    audit.SortByCreatedAt,
		SortOrder: audit.SortDesc,
	})
}

// storeErr marks connectivity failures with sentinel.ErrUnavailable.
func storeErr(op string, err error) error {
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.As(err, &netErr) || pgconn.SafeToRetry(err) {
		return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func buildWhere(f audit.Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if f.ActorID != "" {
		add("actor_id = $%d", f.ActorID)
	}
	if f.Action != "" {
		add("action = $%d", string(f.Action))
	}
	if f.EntityType != "" {
		add("affected_entity_type = $%d", string(f.EntityType))
	}
	if f.EntityID != "" {
		add("affected_entity_id = $%d", f.EntityID)
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at <= $%d", *f.To)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// sortColumns whitelists ORDER BY targets; user input never reaches SQL text.
var sortColumns = map[audit.SortField]string{
	audit.SortByCreatedAt:  "created_at",
	audit.SortByAction:     "action",
	audit.SortByEntityType: "affected_entity_type",
}

func orderBy(q audit.Query) string {
	col, ok := sortColumns[q.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if q.SortOrder == audit.SortAsc {
		dir = "ASC"
	}
	// COLLATE "C" keeps text ordering byte-wise, matching the other stores.
	if col != "created_at" {
		col += ` COLLATE "C"`
	}
	return fmt.Sprintf(" ORDER BY %s %s, id::text COLLATE \"C\" %s", col, dir, dir)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*audit.Record, error) {
	var (
		record   audit.Record
		recordID uuid.UUID
		action   string
		entity   string
		metadata []byte
	)
	err := row.Scan(
		&recordID,
		&record.ActorID,
		&action,
		&entity,
		&record.EntityID,
		&metadata,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan audit record: %w", err)
	}
	record.ID = recordID.String()
	record.Action = audit.Action(action)
	record.EntityType = audit.EntityType(entity)
	record.CreatedAt = audit.NormalizeTime(record.CreatedAt)
	record.UpdatedAt = audit.NormalizeTime(record.UpdatedAt)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &record.Metadata); err != nil {
			return nil, fmt.Errorf("decode audit metadata: %w", err)
		}
	}
	return &record, nil
}

func scanRecords(rows *sql.Rows) ([]*audit.Record, error) {
	records := []*audit.Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

// Package callstore persists robot tool call outcomes in SQLite and lists
// them for the history API.
package callstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/robotctl/internal/ecovacs"
	"github.com/nerrad567/robotctl/internal/robot"
)

// Page size limits for List.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// timeFormat is fixed-width so that text ordering matches time ordering.
const timeFormat = "2006-01-02T15:04:05.000000Z"

// Record is one stored tool call.
type Record struct {
	ID         string         `json:"id"`
	Tool       string         `json:"tool"`
	Nickname   string         `json:"nickname,omitempty"`
	Action     string         `json:"action,omitempty"`
	Endpoint   string         `json:"endpoint"`
	Method     ecovacs.Method `json:"method"`
	Code       int            `json:"code"`
	Msg        string         `json:"msg"`
	Items      int            `json:"items"`
	DurationMS int64          `json:"duration_ms"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Failed reports whether the call ended in an adapter-level failure.
func (r Record) Failed() bool {
	return r.Code == ecovacs.FailureCode
}

// FromCallRecord converts an observed call into a storable record.
func FromCallRecord(rec robot.CallRecord) Record {
	return Record{
		ID:         rec.ID,
		Tool:       rec.Tool,
		Nickname:   rec.Nickname,
		Action:     rec.Action,
		Endpoint:   rec.Endpoint,
		Method:     rec.Method,
		Code:       rec.Code,
		Msg:        rec.Msg,
		Items:      rec.Items,
		DurationMS: rec.Duration.Milliseconds(),
		CreatedAt:  rec.StartedAt,
	}
}

// Filter controls which records List returns.
type Filter struct {
	Tool       string // optional: exact tool name
	Nickname   string // optional: exact robot nickname
	FailedOnly bool   // only adapter-level failures (code -1)
	Limit      int    // default 50, max 200
	Offset     int    // pagination offset
}

// ListResult is one page of records, newest first.
type ListResult struct {
	Calls  []Record `json:"calls"`
	Total  int      `json:"total"`
	Limit  int      `json:"limit"`
	Offset int      `json:"offset"`
}

// Repository stores and lists call records.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository implements Repository on the robot_calls table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a record. ID and CreatedAt are filled in when empty.
func (r *SQLiteRepository) Create(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.Method = ecovacs.ParseMethod(string(rec.Method))

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO robot_calls (id, tool, nickname, action, endpoint, method, code, msg, items, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Tool,
		nullableString(rec.Nickname), nullableString(rec.Action),
		rec.Endpoint, string(rec.Method),
		rec.Code, rec.Msg, rec.Items, rec.DurationMS,
		rec.CreatedAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting call record: %w", err)
	}
	return nil
}

// nullableString maps "" to NULL for optional TEXT columns.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns records matching filter, newest first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultLimit
	}
	if filter.Limit > MaxLimit {
		filter.Limit = MaxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any

	if filter.Tool != "" {
		conditions = append(conditions, "tool = ?")
		args = append(args, filter.Tool)
	}
	if filter.Nickname != "" {
		conditions = append(conditions, "nickname = ?")
		args = append(args, filter.Nickname)
	}
	if filter.FailedOnly {
		conditions = append(conditions, "code = ?")
		args = append(args, ecovacs.FailureCode)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM robot_calls " + where //nolint:gosec // WHERE built from fixed conditions with ? placeholders
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting call records: %w", err)
	}

	query := "SELECT id, tool, nickname, action, endpoint, method, code, msg, items, duration_ms, created_at FROM robot_calls " + //nolint:gosec // as above
		where + " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying call records: %w", err)
	}
	defer rows.Close()

	calls := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		calls = append(calls, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating call records: %w", err)
	}

	return &ListResult{
		Calls:  calls,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var rec Record
	var nickname, action sql.NullString
	var method, createdAt string

	if err := rows.Scan(&rec.ID, &rec.Tool, &nickname, &action, &rec.Endpoint, &method,
		&rec.Code, &rec.Msg, &rec.Items, &rec.DurationMS, &createdAt); err != nil {
		return Record{}, fmt.Errorf("scanning call record: %w", err)
	}

	rec.Nickname = nickname.String
	rec.Action = action.String
	rec.Method = ecovacs.Method(method)

	t, err := time.Parse(timeFormat, createdAt)
	if err != nil {
		return Record{}, fmt.Errorf("parsing call timestamp %q: %w", createdAt, err)
	}
	rec.CreatedAt = t

	return rec, nil
}

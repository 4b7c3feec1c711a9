package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dan-online/autopulse-sub000/internal/domain"
)

// ErrNotFound is returned by Get when no scan event matches the given id.
var ErrNotFound = errors.New("scan event not found")

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// Add performs the dedup-or-insert described in §3.1. When an existing
// pending event shares (event_source, file_path) — and, if the offered
// event is already Found, the same found_status — its updated_at and
// can_process are bumped instead of inserting a new row. A Retry event
// never absorbs a freshly offered Pending event: only rows still in
// Pending participate in the lookup.
func (r *Repository) Add(ctx context.Context, in domain.NewEvent) (*domain.ScanEvent, error) {
	query := `SELECT id FROM scan_events WHERE event_source = ? AND file_path = ? AND process_status = ?`
	args := []interface{}{in.EventSource, in.FilePath, string(domain.StatusPending)}

	if in.FoundStatus == domain.FoundFound {
		query += ` AND found_status = ?`
		args = append(args, string(in.FoundStatus))
	}
	query += ` LIMIT 1`

	var existingID string
	err := r.DB.QueryRowContext(ctx, query, args...).Scan(&existingID)
	switch {
	case err == nil:
		now := time.Now()
		_, execErr := ExecWithRetry(r.DB,
			`UPDATE scan_events SET updated_at = ?, can_process = ? WHERE id = ?`,
			formatTime(now), formatTime(in.CanProcess), existingID)
		if execErr != nil {
			return nil, fmt.Errorf("db: updating deduped event: %w", execErr)
		}
		return r.Get(ctx, existingID)

	case errors.Is(err, sql.ErrNoRows):
		now := time.Now()
		ev := &domain.ScanEvent{
			ID:             uuid.NewString(),
			EventSource:    in.EventSource,
			EventTimestamp: in.EventTimestamp,
			FilePath:       in.FilePath,
			FileHash:       in.FileHash,
			ProcessStatus:  domain.StatusPending,
			FoundStatus:    in.FoundStatus,
			FailedTimes:    0,
			TargetsHit:     nil,
			CreatedAt:      now,
			UpdatedAt:      now,
			CanProcess:     in.CanProcess,
		}

		_, execErr := ExecWithRetry(r.DB, `
			INSERT INTO scan_events (
				id, event_source, event_timestamp, file_path, file_hash,
				process_status, found_status, failed_times, next_retry_at,
				targets_hit, found_at, processed_at, created_at, updated_at, can_process
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ev.ID, ev.EventSource, formatTime(ev.EventTimestamp), ev.FilePath, nullableString(ev.FileHash),
			string(ev.ProcessStatus), string(ev.FoundStatus), ev.FailedTimes, nil,
			ev.TargetsHitString(), nil, nil, formatTime(ev.CreatedAt), formatTime(ev.UpdatedAt), formatTime(ev.CanProcess),
		)
		if execErr != nil {
			return nil, fmt.Errorf("db: inserting event: %w", execErr)
		}
		return ev, nil

	default:
		return nil, fmt.Errorf("db: dedup lookup: %w", err)
	}
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

const selectColumns = `id, event_source, event_timestamp, file_path, file_hash,
	process_status, found_status, failed_times, next_retry_at,
	targets_hit, found_at, processed_at, created_at, updated_at, can_process`

func scanEvent(scan func(...interface{}) error) (*domain.ScanEvent, error) {
	var (
		ev                                   domain.ScanEvent
		eventTimestamp, createdAt, updatedAt string
		canProcess                           string
		fileHash, targetsHit                 sql.NullString
		nextRetryAt, foundAt, processedAt    sql.NullString
		processStatus, foundStatus           string
	)

	if err := scan(&ev.ID, &ev.EventSource, &eventTimestamp, &ev.FilePath, &fileHash,
		&processStatus, &foundStatus, &ev.FailedTimes, &nextRetryAt,
		&targetsHit, &foundAt, &processedAt, &createdAt, &updatedAt, &canProcess); err != nil {
		return nil, err
	}

	ev.ProcessStatus = domain.ProcessStatus(processStatus)
	ev.FoundStatus = domain.FoundStatus(foundStatus)
	ev.FileHash = fileHash.String
	ev.TargetsHit = domain.ParseTargetsHit(targetsHit.String)

	var err error
	if ev.EventTimestamp, err = parseTime(eventTimestamp); err != nil {
		return nil, fmt.Errorf("parsing event_timestamp: %w", err)
	}
	if ev.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if ev.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	if ev.CanProcess, err = parseTime(canProcess); err != nil {
		return nil, fmt.Errorf("parsing can_process: %w", err)
	}
	if nextRetryAt.Valid {
		t, err := parseTime(nextRetryAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing next_retry_at: %w", err)
		}
		ev.NextRetryAt = &t
	}
	if foundAt.Valid {
		t, err := parseTime(foundAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing found_at: %w", err)
		}
		ev.FoundAt = &t
	}
	if processedAt.Valid {
		t, err := parseTime(processedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing processed_at: %w", err)
		}
		ev.ProcessedAt = &t
	}

	return &ev, nil
}

// Get returns the scan event with id, or ErrNotFound.
func (r *Repository) Get(ctx context.Context, id string) (*domain.ScanEvent, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM scan_events WHERE id = ?`, id)
	ev, err := scanEvent(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db: get event %s: %w", id, err)
	}
	return ev, nil
}

// Save is a write-through mutation: every field on ev is persisted and
// updated_at is bumped to now.
func (r *Repository) Save(ctx context.Context, ev *domain.ScanEvent) error {
	ev.UpdatedAt = time.Now()
	_, err := ExecWithRetry(r.DB, `
		UPDATE scan_events SET
			event_source = ?, event_timestamp = ?, file_path = ?, file_hash = ?,
			process_status = ?, found_status = ?, failed_times = ?, next_retry_at = ?,
			targets_hit = ?, found_at = ?, processed_at = ?, updated_at = ?, can_process = ?
		WHERE id = ?`,
		ev.EventSource, formatTime(ev.EventTimestamp), ev.FilePath, nullableString(ev.FileHash),
		string(ev.ProcessStatus), string(ev.FoundStatus), ev.FailedTimes, formatTimePtr(ev.NextRetryAt),
		ev.TargetsHitString(), formatTimePtr(ev.FoundAt), formatTimePtr(ev.ProcessedAt), formatTime(ev.UpdatedAt), formatTime(ev.CanProcess),
		ev.ID,
	)
	if err != nil {
		return fmt.Errorf("db: save event %s: %w", ev.ID, err)
	}
	return nil
}

// QueryPendingNotFound returns events where found_status != Found and
// process_status = Pending (§4.1, drives §4.4).
func (r *Repository) QueryPendingNotFound(ctx context.Context) ([]*domain.ScanEvent, error) {
	rows, err := QueryWithRetry(r.DB, `
		SELECT `+selectColumns+` FROM scan_events
		WHERE found_status != ? AND process_status = ?`,
		string(domain.FoundFound), string(domain.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("db: query_pending_not_found: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// QueryProcessable returns events where process_status is neither Complete
// nor Failed, next_retry_at is unset or in the past, can_process has
// passed, and — when checkPathEnabled — found_status = Found (§4.1, drives
// §4.6).
func (r *Repository) QueryProcessable(ctx context.Context, now time.Time, checkPathEnabled bool) ([]*domain.ScanEvent, error) {
	query := `
		SELECT ` + selectColumns + ` FROM scan_events
		WHERE process_status NOT IN (?, ?)
		AND (next_retry_at IS NULL OR next_retry_at < ?)
		AND can_process < ?`
	args := []interface{}{string(domain.StatusComplete), string(domain.StatusFailed), formatTime(now), formatTime(now)}

	if checkPathEnabled {
		query += ` AND found_status = ?`
		args = append(args, string(domain.FoundFound))
	}

	rows, err := QueryWithRetry(r.DB, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db: query_processable: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// Cleanup deletes NotFound events and Failed events whose found_at (or, if
// unset, created_at) is older than olderThan (§4.1/§4.9). Returns the
// number of rows deleted.
func (r *Repository) Cleanup(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := ExecWithRetry(r.DB, `
		DELETE FROM scan_events
		WHERE (found_status = ? AND COALESCE(found_at, created_at) < ?)
		OR (process_status = ? AND COALESCE(found_at, created_at) < ?)`,
		string(domain.FoundNotFound), formatTime(olderThan),
		string(domain.StatusFailed), formatTime(olderThan))
	if err != nil {
		return 0, fmt.Errorf("db: cleanup: %w", err)
	}
	return result.RowsAffected()
}

func collectEvents(rows *sql.Rows) ([]*domain.ScanEvent, error) {
	var out []*domain.ScanEvent
	for rows.Next() {
		ev, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Stats summarizes event counts by process_status, surfaced at /stats.
type Stats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Retrying  int `json:"retrying"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// Stats returns the event counts from §4.1 stats().
func (r *Repository) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	row := r.DB.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE process_status = ?),
			COUNT(*) FILTER (WHERE process_status = ?),
			COUNT(*) FILTER (WHERE process_status = ?),
			COUNT(*) FILTER (WHERE process_status = ?)
		FROM scan_events`,
		string(domain.StatusPending), string(domain.StatusRetry), string(domain.StatusComplete), string(domain.StatusFailed))
	if err := row.Scan(&s.Total, &s.Pending, &s.Retrying, &s.Processed, &s.Failed); err != nil {
		return Stats{}, fmt.Errorf("db: stats: %w", err)
	}
	return s, nil
}

// ListOptions configures List's pagination, sort, filter and search.
type ListOptions struct {
	Limit  int    // <= 100
	Page   int    // >= 1
	Sort   string // one of id,file_path,process_status,event_source,created_at,updated_at; optional leading '-' for descending
	Status string // optional process_status filter
	Search string // optional substring match against file_path
}

var listSortColumns = map[string]bool{
	"id": true, "file_path": true, "process_status": true,
	"event_source": true, "created_at": true, "updated_at": true,
}

// List returns a page of events ordered per opts, matching §4.1 list().
func (r *Repository) List(ctx context.Context, opts ListOptions) ([]*domain.ScanEvent, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	page := opts.Page
	if page < 1 {
		page = 1
	}

	sortCol := "created_at"
	direction := "DESC"
	if opts.Sort != "" {
		col := opts.Sort
		if strings.HasPrefix(col, "-") {
			direction = "DESC"
			col = col[1:]
		} else {
			direction = "ASC"
		}
		if listSortColumns[col] {
			sortCol = col
		}
	}

	query := `SELECT ` + selectColumns + ` FROM scan_events WHERE 1=1`
	var args []interface{}

	if opts.Status != "" {
		query += ` AND process_status = ?`
		args = append(args, opts.Status)
	}
	if opts.Search != "" {
		query += ` AND file_path LIKE ?`
		args = append(args, "%"+opts.Search+"%")
	}

	query += fmt.Sprintf(` ORDER BY %s %s LIMIT ? OFFSET ?`, sortCol, direction)
	args = append(args, limit, (page-1)*limit)

	rows, err := QueryWithRetry(r.DB, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db: list: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

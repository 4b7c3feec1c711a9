package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dan-online/autopulse-sub000/internal/logger"
)

// busyRetryLimit is the total number of attempts (the first try included)
// for a database operation that keeps failing with SQLITE_BUSY. Distinct from opts.max_retries, the fan-out retry budget.
const busyRetryLimit = 5

// retryBaseDelay is the base delay between busy retries (grows exponentially).
const retryBaseDelay = 100 * time.Millisecond

// retryQueryTimeout is the maximum time for each individual query attempt.
const retryQueryTimeout = 15 * time.Second

// ExecWithRetry executes a SQL statement with retry logic for SQLITE_BUSY
// errors. The reconciliation loop is the sole writer, but backup/maintenance
// jobs and the HTTP surface read concurrently, so writes can still collide
// with a long-running reader holding a WAL snapshot.
func ExecWithRetry(db *sql.DB, query string, args ...interface{}) (sql.Result, error) {
	var result sql.Result
	var err error

	for attempt := 0; attempt < busyRetryLimit; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), retryQueryTimeout)
		result, err = db.ExecContext(ctx, query, args...)
		cancel()
		if err == nil {
			return result, nil
		}

		if !isBusyErr(err) {
			return nil, err
		}

		delay := retryBaseDelay * time.Duration(1<<attempt)
		if attempt < busyRetryLimit-1 {
			logger.Debugf("database busy, retrying in %v (attempt %d/%d)", delay, attempt+1, busyRetryLimit)
			time.Sleep(delay)
		}
	}

	return nil, fmt.Errorf("database busy after %d attempts: %w", busyRetryLimit, err)
}

// QueryWithRetry executes a query with retry logic for SQLITE_BUSY errors.
func QueryWithRetry(db *sql.DB, query string, args ...interface{}) (*sql.Rows, error) {
	var rows *sql.Rows
	var err error

	for attempt := 0; attempt < busyRetryLimit; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), retryQueryTimeout)
		rows, err = db.QueryContext(ctx, query, args...)
		cancel()
		if err == nil {
			return rows, nil
		}

		if !isBusyErr(err) {
			return nil, err
		}

		delay := retryBaseDelay * time.Duration(1<<attempt)
		if attempt < busyRetryLimit-1 {
			logger.Debugf("database busy on query, retrying in %v (attempt %d/%d)", delay, attempt+1, busyRetryLimit)
			time.Sleep(delay)
		}
	}

	return nil, fmt.Errorf("database busy after %d attempts: %w", busyRetryLimit, err)
}

func isBusyErr(err error) bool {
	s := err.Error()
	return strings.Contains(s, "SQLITE_BUSY") || strings.Contains(s, "database is locked") || strings.Contains(s, "context deadline exceeded")
}

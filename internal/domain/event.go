// Package domain holds the core scan-event model shared by every other
// package: producers create events, the reconciliation loop advances them,
// targets consume them.
package domain

import (
	"sort"
	"strings"
	"time"
)

// ProcessStatus is the reconciliation state of a scan event.
type ProcessStatus string

const (
	StatusPending  ProcessStatus = "pending"
	StatusRetry    ProcessStatus = "retry"
	StatusComplete ProcessStatus = "complete"
	StatusFailed   ProcessStatus = "failed"
)

// FoundStatus is the gate state for check_path mode.
type FoundStatus string

const (
	FoundNotFound     FoundStatus = "not_found"
	FoundFound        FoundStatus = "found"
	FoundHashMismatch FoundStatus = "hash_mismatch"
)

// ScanEvent is the durable unit of work tracked by the event store.
// See spec.md §3.1 for the field-by-field contract and invariants.
type ScanEvent struct {
	ID             string        `json:"id"`
	EventSource    string        `json:"event_source"`
	EventTimestamp time.Time     `json:"event_timestamp"`
	FilePath       string        `json:"file_path"`
	FileHash       string        `json:"file_hash"` // empty means "no expected hash"
	ProcessStatus  ProcessStatus `json:"process_status"`
	FoundStatus    FoundStatus   `json:"found_status"`
	FailedTimes    int           `json:"failed_times"`
	NextRetryAt    *time.Time    `json:"next_retry_at"`
	TargetsHit     []string      `json:"targets_hit"` // always kept sorted + deduped; see AddTargetHit
	FoundAt        *time.Time    `json:"found_at"`
	ProcessedAt    *time.Time    `json:"processed_at"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	CanProcess     time.Time     `json:"can_process"`
}

// NewEvent is the input to Store.Add: the fields a producer controls.
// The store assigns ID, CreatedAt, UpdatedAt and applies the dedup rule.
type NewEvent struct {
	EventSource    string
	EventTimestamp time.Time
	FilePath       string
	FileHash       string
	FoundStatus    FoundStatus
	CanProcess     time.Time
}

// TargetsHitString joins TargetsHit into the comma-separated form stored
// in the targets_hit column (§6.3).
func (e *ScanEvent) TargetsHitString() string {
	return strings.Join(e.TargetsHit, ",")
}

// ParseTargetsHit splits the stored comma-joined column back into a
// deduped, sorted slice.
func ParseTargetsHit(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	return normalizeTargetSet(parts)
}

// AddTargetHit records that target has successfully processed this event.
// targets_hit is a set (§3.1 invariant 5): no duplicates, and the stored
// representation is always re-sorted so equal sets compare equal as
// strings.
func (e *ScanEvent) AddTargetHit(target string) {
	e.TargetsHit = normalizeTargetSet(append(e.TargetsHit, target))
}

// HasTargetHit reports whether target is already recorded as successful.
func (e *ScanEvent) HasTargetHit(target string) bool {
	for _, t := range e.TargetsHit {
		if t == target {
			return true
		}
	}
	return false
}

func normalizeTargetSet(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// NextRetryDelay returns 2^(failedTimes+1) seconds, the backoff schedule
// from §4.1/§4.7/§8.1 invariant 5 (4s, 8s, 16s, ...).
func NextRetryDelay(failedTimes int) time.Duration {
	return time.Duration(1<<uint(failedTimes+1)) * time.Second
}

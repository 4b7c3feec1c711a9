package webhook

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dan-online/autopulse-sub000/internal/domain"
)

func TestDiscordSink_ChunksLargeBatches(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		var payload discordPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.LessOrEqual(t, len(payload.Embeds), chunkSize)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	entries := make([]Entry, chunkSize+3)
	for i := range entries {
		entries[i] = Entry{Kind: domain.KindNew, Source: "sonarr", Paths: []string{"/a"}}
	}

	sink := NewDiscordSink(srv.URL)
	require.NoError(t, sink.Send(entries))
	assert.EqualValues(t, 2, atomic.LoadInt32(&requests))
}

func TestDiscordSink_RetriesOnRateLimit(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			reset := float64(time.Now().Add(10*time.Millisecond).UnixNano()) / float64(time.Second)
			w.Header().Set("X-RateLimit-Reset", strconv.FormatFloat(reset, 'f', 6, 64))
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewDiscordSink(srv.URL)
	err := sink.Send([]Entry{{Kind: domain.KindFailed, Paths: []string{"/x"}}})

	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&attempts))
}

func TestDiscordSink_NonRetryableStatusReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := NewDiscordSink(srv.URL)
	err := sink.Send([]Entry{{Kind: domain.KindNew, Paths: []string{"/x"}}})
	assert.Error(t, err)
}

func TestColorFor_KnownKinds(t *testing.T) {
	assert.Equal(t, 0x2ecc71, colorFor(domain.KindFound))
	assert.Equal(t, 0xe74c3c, colorFor(domain.KindFailed))
	assert.Equal(t, 0x95a5a6, colorFor(domain.EventKind("unknown")))
}

func TestTruncate_LeavesShortStringsUntouched(t *testing.T) {
	assert.Equal(t, "short", truncate("short"))
}

func TestTruncate_CutsLongStringsWithEllipsis(t *testing.T) {
	long := make([]byte, maxFieldLen+50)
	for i := range long {
		long[i] = 'x'
	}
	got := truncate(string(long))
	assert.Len(t, got, maxFieldLen)
	assert.Contains(t, got, "...")
}

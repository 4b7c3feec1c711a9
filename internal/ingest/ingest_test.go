package ingest_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dan-online/autopulse-sub000/internal/bus"
	"github.com/dan-online/autopulse-sub000/internal/domain"
	"github.com/dan-online/autopulse-sub000/internal/ingest"
	"github.com/dan-online/autopulse-sub000/internal/webhook"
)

type fakeStore struct {
	events []domain.NewEvent
	fail   map[string]error // FilePath -> error
}

func (f *fakeStore) Add(_ context.Context, in domain.NewEvent) (*domain.ScanEvent, error) {
	if err, ok := f.fail[in.FilePath]; ok {
		return nil, err
	}
	f.events = append(f.events, in)
	return &domain.ScanEvent{
		ID:          in.FilePath,
		EventSource: in.EventSource,
		FilePath:    in.FilePath,
		FileHash:    in.FileHash,
		FoundStatus: in.FoundStatus,
	}, nil
}

type fakeSink struct {
	batches [][]webhook.Entry
}

func (f *fakeSink) Send(entries []webhook.Entry) error {
	f.batches = append(f.batches, entries)
	return nil
}

func TestIntake_Apply_NotFoundWhenExpectPresent(t *testing.T) {
	store := &fakeStore{}
	sink := &fakeSink{}
	batcher := webhook.New(time.Hour, []webhook.Sink{sink})
	b := bus.New()
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	in := ingest.New(store, batcher, b)

	out := in.Apply(context.Background(), ingest.Source{Name: "sonarr", Timer: time.Minute}, []ingest.PathIntent{
		{Path: "/tv/show/ep1.mkv", ExpectPresent: true},
	})

	require.Len(t, out, 1)
	assert.Equal(t, domain.FoundNotFound, out[0].FoundStatus)
	assert.Equal(t, "sonarr", out[0].EventSource)

	batcher.Flush()
	require.Len(t, sink.batches, 1)
	assert.Equal(t, domain.KindNew, sink.batches[0][0].Kind)
	assert.Equal(t, []string{"/tv/show/ep1.mkv"}, sink.batches[0][0].Paths)

	select {
	case n := <-sub:
		assert.Equal(t, domain.KindNew, n.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected a bus notification")
	}
}

func TestIntake_Apply_FoundWhenNotExpectPresent(t *testing.T) {
	store := &fakeStore{}
	in := ingest.New(store, nil, nil)

	out := in.Apply(context.Background(), ingest.Source{Name: "notify"}, []ingest.PathIntent{
		{Path: "/movies/a.mkv", ExpectPresent: false},
	})

	require.Len(t, out, 1)
	assert.Equal(t, domain.FoundFound, out[0].FoundStatus)
}

func TestIntake_Apply_SkipsFailedIntentsButKeepsOthers(t *testing.T) {
	store := &fakeStore{fail: map[string]error{"/tv/bad.mkv": errors.New("disk full")}}
	in := ingest.New(store, nil, nil)

	out := in.Apply(context.Background(), ingest.Source{Name: "sonarr"}, []ingest.PathIntent{
		{Path: "/tv/bad.mkv", ExpectPresent: true},
		{Path: "/tv/good.mkv", ExpectPresent: true},
	})

	require.Len(t, out, 1)
	assert.Equal(t, "/tv/good.mkv", out[0].FilePath)
}

func TestIntake_ApplyHashed_SetsHashOnEveryIntent(t *testing.T) {
	store := &fakeStore{}
	in := ingest.New(store, nil, nil)

	out := in.ApplyHashed(context.Background(), ingest.Source{Name: "manual"}, []ingest.PathIntent{
		{Path: "/movies/b.mkv", ExpectPresent: true},
	}, "deadbeef")

	require.Len(t, out, 1)
	assert.Equal(t, "deadbeef", out[0].FileHash)
}

func TestIntake_ApplyHashed_EmptyHashFallsBackToApply(t *testing.T) {
	store := &fakeStore{}
	in := ingest.New(store, nil, nil)

	out := in.ApplyHashed(context.Background(), ingest.Source{Name: "manual"}, []ingest.PathIntent{
		{Path: "/movies/c.mkv", ExpectPresent: false},
	}, "")

	require.Len(t, out, 1)
	assert.Empty(t, out[0].FileHash)
	assert.Equal(t, domain.FoundFound, out[0].FoundStatus)
}

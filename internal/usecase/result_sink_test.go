package usecase

import (
	"context"
	"testing"

	"TypoTrade/internal/domain/models"
)

func samplePairs() []models.CandidatePair {
	return []models.CandidatePair{
		{
			Target:    models.Ticker{Symbol: "TSLA"},
			Candidate: models.Ticker{Symbol: "TLSA"},
			Distance:  1,
		},
	}
}

func TestResultSinkRoutesToStore(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	m := newFakeMetrics()
	sink := NewResultSink(pub, store, m, "clickhouse")

	if err := sink.SinkPairs(context.Background(), samplePairs()); err != nil {
		t.Fatalf("SinkPairs: %v", err)
	}
	if len(store.pairs) != 1 {
		t.Fatalf("store got %d pairs, want 1", len(store.pairs))
	}
	if len(pub.pairs) != 0 {
		t.Fatalf("publisher must not be used on clickhouse backend")
	}
	if m.written["clickhouse:pairs"] != 1 {
		t.Fatalf("written metrics = %v", m.written)
	}
}

func TestResultSinkRoutesToPublisher(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	sink := NewResultSink(pub, store, newFakeMetrics(), "kafka")

	if err := sink.SinkPairs(context.Background(), samplePairs()); err != nil {
		t.Fatalf("SinkPairs: %v", err)
	}
	if len(pub.pairs) != 1 || len(store.pairs) != 0 {
		t.Fatalf("kafka backend routed wrong: pub=%d store=%d", len(pub.pairs), len(store.pairs))
	}
}

func TestResultSinkUnknownBackend(t *testing.T) {
	m := newFakeMetrics()
	sink := NewResultSink(&fakePublisher{}, &fakeStore{}, m, "postgres")

	if err := sink.SinkPairs(context.Background(), samplePairs()); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
	if m.errors["sink_pairs"] != 1 {
		t.Fatalf("error metrics = %v", m.errors)
	}
}

func TestResultSinkEmptyIsNoop(t *testing.T) {
	m := newFakeMetrics()
	sink := NewResultSink(&fakePublisher{}, &fakeStore{}, m, "postgres")

	// No delivery attempt, so the bad backend never surfaces.
	if err := sink.SinkCorrelations(context.Background(), nil); err != nil {
		t.Fatalf("empty sink errored: %v", err)
	}
	if len(m.errors) != 0 {
		t.Fatalf("error metrics = %v", m.errors)
	}
}

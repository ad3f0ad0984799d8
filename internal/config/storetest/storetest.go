// Package storetest provides a shared conformance test suite for
// config.Store implementations. Each backend (memory, file) wires this
// suite to verify it satisfies the Store contract.
package storetest

import (
	"context"
	"reflect"
	"testing"

	"logcore/internal/config"
)

// TestStore runs the conformance suite against a Store implementation.
// newStore must return a fresh, empty store for each sub-test.
func TestStore(t *testing.T, newStore func(t *testing.T) config.Store) {
	t.Run("LoadEmpty", func(t *testing.T) {
		s := newStore(t)
		cfg, err := s.Load(context.Background())
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg != nil {
			t.Fatalf("expected nil config from empty store, got %+v", cfg)
		}
	})

	t.Run("SaveLoadRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		want := &config.Config{
			Sources: []config.SourceConfig{
				{ID: "src-1", Type: "file", Params: map[string]string{"paths": `["/var/log/*.log"]`}},
				{ID: "src-2", Type: "kafka", Params: map[string]string{"brokers": "localhost:9092", "topic": "logs"}},
			},
			PatternOrder: []string{"rfc3339", "syslog_bsd"},
		}

		if err := s.Save(ctx, want); err != nil {
			t.Fatalf("Save: %v", err)
		}

		got, err := s.Load(ctx)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if got == nil {
			t.Fatal("expected config, got nil")
		}
		if !reflect.DeepEqual(got.Sources, want.Sources) {
			t.Errorf("Sources: expected %+v, got %+v", want.Sources, got.Sources)
		}
		if !reflect.DeepEqual(got.PatternOrder, want.PatternOrder) {
			t.Errorf("PatternOrder: expected %v, got %v", want.PatternOrder, got.PatternOrder)
		}
	})

	t.Run("SaveOverwrites", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		if err := s.Save(ctx, &config.Config{Sources: []config.SourceConfig{{ID: "a", Type: "file"}}}); err != nil {
			t.Fatalf("Save 1: %v", err)
		}
		if err := s.Save(ctx, &config.Config{Sources: []config.SourceConfig{{ID: "b", Type: "mqtt"}}}); err != nil {
			t.Fatalf("Save 2: %v", err)
		}

		got, err := s.Load(ctx)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if len(got.Sources) != 1 || got.Sources[0].ID != "b" {
			t.Errorf("expected only second save's sources, got %+v", got.Sources)
		}
	})
}

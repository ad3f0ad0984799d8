package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"logcore/internal/config"
	"logcore/internal/config/storetest"
)

func TestStore(t *testing.T) {
	storetest.TestStore(t, func(t *testing.T) config.Store {
		return NewStore(filepath.Join(t.TempDir(), "config.json"))
	})
}

func TestLoad_RejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"version":99,"config":{}}`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s := NewStore(path)
	if _, err := s.Load(context.Background()); err == nil {
		t.Fatal("expected error loading a newer config version, got nil")
	}
}

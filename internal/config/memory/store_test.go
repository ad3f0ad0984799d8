package memory

import (
	"testing"

	"logcore/internal/config"
	"logcore/internal/config/storetest"
)

func TestStore(t *testing.T) {
	storetest.TestStore(t, func(t *testing.T) config.Store {
		return NewStore()
	})
}

package memory_test

import (
	"testing"

	"github.com/aretw0/pitchpilot/pkg/adapters/memory"
	"github.com/aretw0/pitchpilot/pkg/ports/tests"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	tests.StateStoreContractTest(t, store)
}

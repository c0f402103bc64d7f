package memory

import (
	"testing"

	"diffractcore/internal/infra/persistence/persistencetest"
)

func TestStoreContract(t *testing.T) {
	persistencetest.RunContract(t, NewStore())
}

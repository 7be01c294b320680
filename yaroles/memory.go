package yaroles

import (
	"context"
	"slices"
	"sync"

	"github.com/YaCodeDev/GoYaBotCore/yaerrors"
)

// MemoryRepository keeps roles for the lifetime of the process only. It is
// used when no Redis is configured and in tests.
type MemoryRepository struct {
	mu    sync.Mutex
	roles map[int64][]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{roles: make(map[int64][]string)}
}

func (m *MemoryRepository) Load(_ context.Context) (map[int64][]string, yaerrors.Error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[int64][]string, len(m.roles))
	for userID, roles := range m.roles {
		out[userID] = slices.Clone(roles)
	}

	return out, nil
}

func (m *MemoryRepository) Grant(_ context.Context, userID int64, role string) yaerrors.Error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(m.roles[userID], role) {
		m.roles[userID] = append(m.roles[userID], role)
	}

	return nil
}

func (m *MemoryRepository) Revoke(_ context.Context, userID int64, role string) yaerrors.Error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.roles[userID] = slices.DeleteFunc(m.roles[userID], func(other string) bool {
		return other == role
	})

	if len(m.roles[userID]) == 0 {
		delete(m.roles, userID)
	}

	return nil
}

//go:build integration

package containers

import (
	"sync"
	"testing"
)

// Manager hands out one container per backing service for the whole test
// binary. Suites share them and isolate through truncation/flush.
type Manager struct {
	pgOnce sync.Once
	pg     *PostgresContainer
	rdOnce sync.Once
	rd     *RedisContainer
	rpOnce sync.Once
	rp     *RedpandaContainer
}

var (
	managerOnce sync.Once
	manager     *Manager
)

// GetManager returns the process-wide container manager.
func GetManager() *Manager {
	managerOnce.Do(func() {
		manager = &Manager{}
	})
	return manager
}

func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	m.pgOnce.Do(func() {
		m.pg = NewPostgresContainer(t)
	})
	if m.pg == nil {
		t.Fatal("postgres container unavailable")
	}
	return m.pg
}

func (m *Manager) GetRedis(t *testing.T) *RedisContainer {
	t.Helper()
	m.rdOnce.Do(func() {
		m.rd = NewRedisContainer(t)
	})
	if m.rd == nil {
		t.Fatal("redis container unavailable")
	}
	return m.rd
}

func (m *Manager) GetRedpanda(t *testing.T) *RedpandaContainer {
	t.Helper()
	m.rpOnce.Do(func() {
		m.rp = NewRedpandaContainer(t)
	})
	if m.rp == nil {
		t.Fatal("redpanda container unavailable")
	}
	return m.rp
}

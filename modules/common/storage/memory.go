package storage

import (
	"context"
	"sync"
)

// Memory - 인메모리 슬롯 저장소 (단일 노드 기본값, 테스트용)
type Memory struct {
	mu         sync.RWMutex
	slots      map[string]string
	quotaBytes int
}

// NewMemory - 인메모리 저장소 생성. quotaBytes <= 0 이면 무제한
func NewMemory(quotaBytes int) *Memory {
	return &Memory{
		slots:      make(map[string]string),
		quotaBytes: quotaBytes,
	}
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.slots[key]
	return value, ok, nil
}

func (m *Memory) Set(ctx context.Context, key, value string) error {
	if m.quotaBytes > 0 && len(value) > m.quotaBytes {
		return ErrQuotaExceeded
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.slots[key] = value
	return nil
}

func (m *Memory) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.slots, key)
	return nil
}

package repository

import (
	"context"
	"sync"
)

// MemoryKV はプロセス内メモリに保持するKeyValueStore。
// テストと STORAGE_DRIVER=memory での起動に使用する。プロセス終了で内容は失われる。
type MemoryKV struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryKV は空のMemoryKVを生成する。
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{entries: make(map[string][]byte)}
}

// Get は指定キーの値のコピーを返す。見つからない場合はnilを返す。
func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Set は値のコピーを保存する。
func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)

	m.mu.Lock()
	m.entries[key] = v
	m.mu.Unlock()
	return nil
}

// Delete は指定キーを削除する。
func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Len は保存されているキーの数を返す。テスト用。
func (m *MemoryKV) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// compile-time interface check
var _ KeyValueStore = (*MemoryKV)(nil)

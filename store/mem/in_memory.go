package mem

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/warriorguo/jobflow/store"
)

var (
	_ store.Store = &memStore{}
)

func NewMemStore() store.Store {
	return NewMemStoreWithErrHandler(defaultNoErr)
}

// NewMemStoreWithErrHandler returns a store whose every call returns
// the result of errHandler, used to inject store failures in tests.
func NewMemStoreWithErrHandler(errHandler func() error) store.Store {
	return &memStore{
		buckets:        make(map[string]map[string][]byte),
		mockErrHandler: errHandler,
	}
}

func defaultNoErr() error {
	return nil
}

/**
 * memStore is store implementation based on pure memory, it aims to provide a method for debug & testing
 * NEVER use it in the Production!
 */
type memStore struct {
	mu sync.Mutex

	mockErrHandler func() error

	buckets map[string]map[string][]byte
}

func (m *memStore) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	sb := &strings.Builder{}
	sb.WriteString("\n----------\n")
	for prefix, bucket := range m.buckets {
		for key, value := range bucket {
			fmt.Fprintf(sb, "%s|%s: %s\n", prefix, key, string(value))
		}
	}
	sb.WriteString("----------\n")
	return sb.String()
}

func (m *memStore) Get(ctx context.Context, prefix, key string) ([]byte, error) {
	if err := m.mockErrHandler(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	value, exists := m.buckets[prefix][key]
	if !exists {
		return nil, nil
	}
	return append([]byte(nil), value...), nil
}

func (m *memStore) Set(ctx context.Context, prefix, key string, value []byte) error {
	if err := m.mockErrHandler(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, exists := m.buckets[prefix]
	if !exists {
		bucket = make(map[string][]byte)
		m.buckets[prefix] = bucket
	}
	bucket[key] = append([]byte(nil), value...)
	return nil
}

func (m *memStore) Remove(ctx context.Context, prefix, key string) error {
	if err := m.mockErrHandler(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if bucket, exists := m.buckets[prefix]; exists {
		delete(bucket, key)
		if len(bucket) == 0 {
			delete(m.buckets, prefix)
		}
	}
	return nil
}

func (m *memStore) List(ctx context.Context, prefix string, iterator func(key string) bool) error {
	if err := m.mockErrHandler(); err != nil {
		return err
	}

	m.mu.Lock()
	keys := make([]string, 0, len(m.buckets[prefix]))
	for key := range m.buckets[prefix] {
		keys = append(keys, key)
	}
	m.mu.Unlock()

	sort.Strings(keys)
	for _, key := range keys {
		if !iterator(key) {
			break
		}
	}
	return nil
}

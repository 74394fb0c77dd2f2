package session

import (
	"context"
	"sync"
)

//go:generate mockgen -source=storage.go -destination=mock_storage.go -package=session

// Storage is one persistence scope for session records. The gateway owns two
// of them: a durable scope surviving restarts and an ephemeral in-memory
// scope.
type Storage interface {
	Put(ctx context.Context, record *Record) error
	// Get returns a nil record without error when the session is absent.
	Get(ctx context.Context, sessionId string) (*Record, error)
	// Delete is a no-op when the session is absent.
	Delete(ctx context.Context, sessionId string) error
}

type memoryStorage struct {
	mutex   sync.RWMutex
	records map[string]Record
}

func NewMemoryStorage() Storage {
	return &memoryStorage{
		records: make(map[string]Record),
	}
}

func (storage *memoryStorage) Put(_ context.Context, record *Record) error {
	storage.mutex.Lock()
	defer storage.mutex.Unlock()

	storage.records[record.Id] = *record
	return nil
}

func (storage *memoryStorage) Get(_ context.Context, sessionId string) (*Record, error) {
	storage.mutex.RLock()
	defer storage.mutex.RUnlock()

	record, isOk := storage.records[sessionId]
	if !isOk {
		return nil, nil
	}

	return &record, nil
}

func (storage *memoryStorage) Delete(_ context.Context, sessionId string) error {
	storage.mutex.Lock()
	defer storage.mutex.Unlock()

	delete(storage.records, sessionId)
	return nil
}

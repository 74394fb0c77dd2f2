package session

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"rdv-gateway/pkg/cerror"
)

//go:generate mockgen -source=store.go -destination=mock_store.go -package=session

// Store is the single source of truth for who is logged in. Exactly one of
// the two storage scopes holds a given session at any time: the remember-me
// choice at login selects the scope, and every write to one scope clears the
// other.
type Store interface {
	Save(ctx context.Context, identity *Identity, remember bool) (string, error)
	Get(ctx context.Context, sessionId string) (*Record, error)
	Update(ctx context.Context, sessionId string, partial *Partial) error
	Delete(ctx context.Context, sessionId string) error
	// AccessToken returns an empty string when no session exists; callers
	// must treat that as unauthenticated and never send an empty bearer.
	AccessToken(ctx context.Context, sessionId string) string
}

type store struct {
	durable   Storage
	ephemeral Storage

	mutex        sync.Mutex
	sessionLocks map[string]*sessionLock
}

type sessionLock struct {
	sync.Mutex
	holders int
}

func NewStore(durable, ephemeral Storage) Store {
	return &store{
		durable:      durable,
		ephemeral:    ephemeral,
		sessionLocks: make(map[string]*sessionLock),
	}
}

// lockSession serializes Save, Update and Delete per session so that
// read-modify-write cycles against the storage scopes never interleave.
// Lock entries are reference counted and dropped once the last holder
// releases, keeping the table bounded by in-flight mutations rather than
// by every session ever seen.
func (s *store) lockSession(sessionId string) func() {
	s.mutex.Lock()
	lock, isOk := s.sessionLocks[sessionId]
	if !isOk {
		lock = &sessionLock{}
		s.sessionLocks[sessionId] = lock
	}
	lock.holders++
	s.mutex.Unlock()

	lock.Lock()
	return func() {
		lock.Unlock()

		s.mutex.Lock()
		lock.holders--
		if lock.holders == 0 {
			delete(s.sessionLocks, sessionId)
		}
		s.mutex.Unlock()
	}
}

func (s *store) Save(ctx context.Context, identity *Identity, remember bool) (string, error) {
	if identity == nil || !identity.Valid() {
		return "", cerror.NewError(
			fiber.StatusInternalServerError,
			"refusing to persist an incomplete identity",
		)
	}

	sessionId := uuid.New().String()
	unlock := s.lockSession(sessionId)
	defer unlock()

	record := &Record{
		Id:        sessionId,
		Identity:  *identity,
		Remember:  remember,
		CreatedAt: time.Now().UTC(),
	}

	active, inactive := s.ephemeral, s.durable
	if remember {
		active, inactive = s.durable, s.ephemeral
	}

	err := active.Put(ctx, record)
	if err != nil {
		return "", err
	}

	err = inactive.Delete(ctx, sessionId)
	if err != nil {
		return "", err
	}

	return sessionId, nil
}

func (s *store) Get(ctx context.Context, sessionId string) (*Record, error) {
	if sessionId == "" {
		return nil, nil
	}

	record, err := s.ephemeral.Get(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if record != nil {
		return record, nil
	}

	return s.durable.Get(ctx, sessionId)
}

func (s *store) Update(ctx context.Context, sessionId string, partial *Partial) error {
	unlock := s.lockSession(sessionId)
	defer unlock()

	for _, scope := range []Storage{s.ephemeral, s.durable} {
		record, err := scope.Get(ctx, sessionId)
		if err != nil {
			return err
		}
		if record == nil {
			continue
		}

		record.Identity.merge(partial)
		return scope.Put(ctx, record)
	}

	return cerror.ErrorUnauthenticated
}

// Delete clears both scopes unconditionally, whether or not a session is
// held. Logging out with no prior session is not an error.
func (s *store) Delete(ctx context.Context, sessionId string) error {
	unlock := s.lockSession(sessionId)
	defer unlock()

	ephemeralErr := s.ephemeral.Delete(ctx, sessionId)
	durableErr := s.durable.Delete(ctx, sessionId)
	if ephemeralErr != nil {
		return ephemeralErr
	}

	return durableErr
}

func (s *store) AccessToken(ctx context.Context, sessionId string) string {
	record, err := s.Get(ctx, sessionId)
	if err != nil || record == nil {
		return ""
	}

	return record.Identity.AccessToken
}

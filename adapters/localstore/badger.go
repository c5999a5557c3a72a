package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/hkguide/server/domain/entities"
	"github.com/hkguide/server/domain/repositories"
)

var (
	// userKey holds the signed-in user record.
	userKey = []byte("user")
	// tokenKey holds the gateway session token; it expires with the token.
	tokenKey = []byte("token")
)

// Options configures the store.
type Options struct {
	// Dir is the directory for BadgerDB data files. Required unless InMemory.
	Dir      string
	InMemory bool
}

// UserStore keeps the current user in a local BadgerDB.
type UserStore struct {
	db     *badger.DB
	logger *zap.Logger
}

var _ repositories.CurrentUserStore = (*UserStore)(nil)

// Open opens or creates the store.
func Open(opts Options, logger *zap.Logger) (*UserStore, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("localstore: Dir is required for on-disk mode")
	}

	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	dbOpts = dbOpts.WithLogger(badgerLogger{logger.Sugar()})

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	return &UserStore{db: db, logger: logger}, nil
}

// Load returns the stored user, or nil when nobody is signed in.
func (s *UserStore) Load(_ context.Context) (*entities.User, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey)
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user: %w", err)
	}

	var user entities.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return &user, nil
}

// Save replaces the stored user. Passwords are never persisted.
func (s *UserStore) Save(_ context.Context, user *entities.User) error {
	if user == nil {
		return errors.New("localstore: user is nil")
	}
	u := *user
	u.Password = ""

	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(userKey, raw)
	})
}

// Clear removes the stored user and session token.
func (s *UserStore) Clear(_ context.Context) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, key := range [][]byte{userKey, tokenKey} {
			if err := txn.Delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return nil
	})
}

// SaveToken stores the gateway session token until expiresAt.
func (s *UserStore) SaveToken(_ context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return errors.New("localstore: token already expired")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(tokenKey, []byte(token)).WithTTL(ttl))
	})
}

// LoadToken returns the session token, or "" when none is stored or it has
// expired.
func (s *UserStore) LoadToken(_ context.Context) (string, error) {
	var token string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(tokenKey)
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		token = string(raw)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return token, nil
}

func (s *UserStore) Close() error {
	return s.db.Close()
}

// badgerLogger routes badger output through zap.
type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l badgerLogger) Errorf(f string, args ...interface{})   { l.s.Errorf(f, args...) }
func (l badgerLogger) Warningf(f string, args ...interface{}) { l.s.Warnf(f, args...) }
func (l badgerLogger) Infof(f string, args ...interface{})    { l.s.Debugf(f, args...) }
func (l badgerLogger) Debugf(f string, args ...interface{})   { l.s.Debugf(f, args...) }

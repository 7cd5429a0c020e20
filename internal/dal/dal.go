// Package dal opens the stores of a SwissQR data directory.
package dal

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/celerix-dev/swissqr/internal/engine"
	"github.com/celerix-dev/swissqr/pkg/schema"
)

// File names inside a data directory.
const (
	UsersFile  = "users.db"
	TokensFile = "tokens.db"
	LogsFile   = "logs.db"
)

type (
	UserStore   = engine.RecordStore[schema.UserID, schema.User]
	TokenStore  = engine.RecordStore[schema.TokenID, schema.Token]
	AccessStore = engine.LogStore[schema.Access]
)

// Stores bundles every store of one data directory.
type Stores struct {
	Dir    string
	Users  *UserStore
	Tokens *TokenStore
	Logs   *AccessStore
}

// Open opens (creating if needed) all stores under dir. On failure every
// store opened so far is closed again.
func Open(dir string, opts ...engine.Option) (*Stores, error) {
	s := &Stores{Dir: dir}

	var err error
	s.Users, err = engine.OpenRecordStore[schema.UserID, schema.User](filepath.Join(dir, UsersFile), UserCodec{}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open users: %w", err)
	}

	s.Tokens, err = engine.OpenRecordStore[schema.TokenID, schema.Token](filepath.Join(dir, TokensFile), TokenCodec{}, opts...)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to open tokens: %w", err)
	}

	s.Logs, err = engine.OpenLogStore[schema.Access](filepath.Join(dir, LogsFile), AccessCodec{}, opts...)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to open logs: %w", err)
	}

	return s, nil
}

// Close closes every open store. Safe to call more than once.
func (s *Stores) Close() error {
	var errs []error
	if s.Logs != nil {
		errs = append(errs, s.Logs.Close())
	}
	if s.Tokens != nil {
		errs = append(errs, s.Tokens.Close())
	}
	if s.Users != nil {
		errs = append(errs, s.Users.Close())
	}
	return errors.Join(errs...)
}

// Backup copies every store into a fresh data directory at dst.
// It returns the number of users, tokens and log entries copied.
func (s *Stores) Backup(dst string, opts ...engine.Option) (users, tokens, logs int, err error) {
	target, err := Open(dst, opts...)
	if err != nil {
		return 0, 0, 0, err
	}
	defer target.Close()

	if target.Users.Size() > 0 || target.Tokens.Size() > 0 || target.Logs.Size() > 0 {
		return 0, 0, 0, fmt.Errorf("backup target %s is not empty", dst)
	}

	if users, err = engine.CopyRecords(s.Users, target.Users); err != nil {
		return
	}
	if tokens, err = engine.CopyRecords(s.Tokens, target.Tokens); err != nil {
		return
	}
	logs, err = engine.CopyLog(s.Logs, target.Logs)
	return
}

package storage

import (
	"fmt"
	"strings"
)

// Package storage provides the key-value store holding each kind's ImportedReport.

// Store is a string key-value store. Values are JSON documents.
type Store interface {
	Close() error
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// NewStore creates the configured storage backend.
func NewStore(typ, path string) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

type noopStore struct{}

func (noopStore) Close() error                     { return nil }
func (noopStore) Get(string) (string, bool, error) { return "", false, nil }
func (noopStore) Set(string, string) error         { return nil }

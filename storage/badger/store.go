package badger

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/normqa/core"
	"github.com/poiesic/normqa/storage"
)

// Store implements storage.Store for BadgerDB. Every collection lives in the
// same database under its own key prefix.
type Store struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// NewStore creates a new Store on top of an open backend.
func NewStore(backend *Backend) (*Store, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	return &Store{
		backend: backend,
		logger:  slog.Default().With("component", "badger-store"),
	}, nil
}

// Close is a no-op; the backend owns the database handle.
func (s *Store) Close() error {
	return nil
}

func (s *Store) get(key []byte, decode func(val []byte) error) error {
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(key)
		if err != nil {
			return err
		}
		return item.Value(decode)
	}, false)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return storage.ErrNotFound
	}
	return err
}

func (s *Store) scan(prefix []byte, decode func(val []byte) error) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := iter.Item().Value(decode); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// GetSection retrieves a single section by its canonical id.
func (s *Store) GetSection(ctx context.Context, id string) (*core.Section, error) {
	var section *core.Section
	err := s.get(makeKey(sectionPrefix, id), func(val []byte) error {
		var err error
		section, err = storage.UnmarshalSection(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return section, nil
}

// GetObject retrieves a single table/figure object by its canonical id.
func (s *Store) GetObject(ctx context.Context, id string) (*core.Object, error) {
	var object *core.Object
	err := s.get(makeKey(objectPrefix, id), func(val []byte) error {
		var err error
		object, err = storage.UnmarshalObject(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return object, nil
}

// GetReferences retrieves the raw reference strings attached to an id.
// Missing entries are treated as an empty list, not an error.
func (s *Store) GetReferences(ctx context.Context, id string) ([]string, error) {
	var refs []string
	err := s.get(makeKey(referencePrefix, id), func(val []byte) error {
		var err error
		refs, err = storage.UnmarshalStrings(val)
		return err
	})
	if errors.Is(err, storage.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return refs, nil
}

// ListSections retrieves every section in the store.
func (s *Store) ListSections(ctx context.Context) ([]*core.Section, error) {
	var sections []*core.Section
	err := s.scan(makeScanPrefix(sectionPrefix), func(val []byte) error {
		section, err := storage.UnmarshalSection(val)
		if err != nil {
			return err
		}
		sections = append(sections, section)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sections, nil
}

// ListObjects retrieves every table/figure object in the store.
func (s *Store) ListObjects(ctx context.Context) ([]*core.Object, error) {
	var objects []*core.Object
	err := s.scan(makeScanPrefix(objectPrefix), func(val []byte) error {
		object, err := storage.UnmarshalObject(val)
		if err != nil {
			return err
		}
		objects = append(objects, object)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return objects, nil
}

// ListPrecedence retrieves precedence rules whose key starts with keyPrefix.
func (s *Store) ListPrecedence(ctx context.Context, keyPrefix string) ([]core.PrecedenceRule, error) {
	var rules []core.PrecedenceRule
	err := s.scan(makeScanPrefix(precedencePrefix), func(val []byte) error {
		rule, err := storage.UnmarshalPrecedenceRule(val)
		if err != nil {
			return err
		}
		if strings.HasPrefix(rule.Key, keyPrefix) {
			rules = append(rules, *rule)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// ListSymbols retrieves every symbol/abbreviation definition.
func (s *Store) ListSymbols(ctx context.Context) ([]core.SymbolEntry, error) {
	var entries []core.SymbolEntry
	err := s.scan(makeScanPrefix(symbolPrefix), func(val []byte) error {
		entry, err := storage.UnmarshalSymbolEntry(val)
		if err != nil {
			return err
		}
		entries = append(entries, *entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ListDocuments retrieves metadata for every loaded document.
func (s *Store) ListDocuments(ctx context.Context) ([]*core.Document, error) {
	var documents []*core.Document
	err := s.scan(makeScanPrefix(documentPrefix), func(val []byte) error {
		document, err := storage.UnmarshalDocument(val)
		if err != nil {
			return err
		}
		documents = append(documents, document)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return documents, nil
}

// PutSections stores one or more sections, replacing existing entries.
func (s *Store) PutSections(ctx context.Context, sections ...*core.Section) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		for _, section := range sections {
			if err := core.ValidateSection(section); err != nil {
				return err
			}
			if err := tx.Set(makeKey(sectionPrefix, section.ID), storage.MarshalSection(section)); err != nil {
				return err
			}
		}
		return nil
	}, true)
}

// PutObjects stores one or more objects, replacing existing entries.
func (s *Store) PutObjects(ctx context.Context, objects ...*core.Object) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		for _, object := range objects {
			if err := core.ValidateObject(object); err != nil {
				return err
			}
			if err := tx.Set(makeKey(objectPrefix, object.ID), storage.MarshalObject(object)); err != nil {
				return err
			}
		}
		return nil
	}, true)
}

// PutReferences stores the raw reference strings for an id.
func (s *Store) PutReferences(ctx context.Context, id string, refs []string) error {
	if id == "" {
		return storage.ErrInvalidQuery
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		return tx.Set(makeKey(referencePrefix, id), storage.MarshalStrings(refs))
	}, true)
}

// PutPrecedence stores one or more precedence rules keyed by Rule.Key.
func (s *Store) PutPrecedence(ctx context.Context, rules ...core.PrecedenceRule) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		for i := range rules {
			rule := rules[i]
			if rule.Key == "" {
				return storage.ErrInvalidQuery
			}
			if err := tx.Set(makeKey(precedencePrefix, rule.Key), storage.MarshalPrecedenceRule(&rule)); err != nil {
				return err
			}
		}
		return nil
	}, true)
}

// PutSymbols stores one or more symbol definitions keyed by Symbol.
func (s *Store) PutSymbols(ctx context.Context, entries ...core.SymbolEntry) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		for i := range entries {
			entry := entries[i]
			if entry.Symbol == "" {
				return storage.ErrInvalidQuery
			}
			if err := tx.Set(makeKey(symbolPrefix, entry.Symbol), storage.MarshalSymbolEntry(&entry)); err != nil {
				return err
			}
		}
		return nil
	}, true)
}

// PutDocuments stores one or more document metadata records.
func (s *Store) PutDocuments(ctx context.Context, documents ...*core.Document) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		for _, document := range documents {
			if err := core.ValidateDocument(document); err != nil {
				return err
			}
			if err := tx.Set(makeKey(documentPrefix, document.ID), storage.MarshalDocument(document)); err != nil {
				return err
			}
		}
		return nil
	}, true)
}

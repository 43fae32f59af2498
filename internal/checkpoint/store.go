package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// JSONStore implements Store on top of a Backend, encoding documents as JSON.
type JSONStore struct {
	backend Backend
	target  string
	logger  *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewJSONStore returns a store whose documents live under target.
func NewJSONStore(backend Backend, target string, logger *zap.Logger) (*JSONStore, error) {
	if backend == nil {
		return nil, fmt.Errorf("checkpoint backend is required")
	}
	if !validKey.MatchString(target) || strings.Contains(target, "..") {
		return nil, fmt.Errorf("%w: target %q", ErrInvalidKey, target)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONStore{
		backend: backend,
		target:  target,
		logger:  logger.Named("checkpoint"),
		locks:   make(map[string]*sync.Mutex),
	}, nil
}

// Target returns the namespace the store writes into.
func (s *JSONStore) Target() string {
	return s.target
}

// ObjectName returns the backend object name for (stage, key).
func (s *JSONStore) ObjectName(stage Stage, key string) (string, error) {
	if !validKey.MatchString(key) || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if !validKey.MatchString(string(stage)) {
		return "", fmt.Errorf("%w: stage %q", ErrInvalidKey, stage)
	}
	return path.Join(s.target, string(stage), key+".json"), nil
}

// Exists reports whether a document is stored for (stage, key).
func (s *JSONStore) Exists(ctx context.Context, stage Stage, key string) (bool, error) {
	name, err := s.ObjectName(stage, key)
	if err != nil {
		return false, err
	}
	ok, err := s.backend.Exists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", name, err)
	}
	return ok, nil
}

// Load decodes the stored document into dst. A missing document yields
// (false, nil). A document that does not decode, or whose Validate method
// fails, yields an error wrapping ErrIncomplete.
func (s *JSONStore) Load(ctx context.Context, stage Stage, key string, dst any) (bool, error) {
	name, err := s.ObjectName(stage, key)
	if err != nil {
		return false, err
	}
	data, err := s.backend.Read(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("%w: decode %s: %v", ErrIncomplete, name, err)
	}
	if v, ok := dst.(Validator); ok {
		if err := v.Validate(); err != nil {
			return false, fmt.Errorf("%w: %s: %v", ErrIncomplete, name, err)
		}
	}
	return true, nil
}

// Save encodes value and writes it atomically. Concurrent saves of the same
// (stage, key) are serialized.
func (s *JSONStore) Save(ctx context.Context, stage Stage, key string, value any) error {
	name, err := s.ObjectName(stage, key)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	lock := s.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	if err := s.backend.Write(ctx, name, data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	s.logger.Debug("checkpoint saved",
		zap.String("stage", string(stage)),
		zap.String("key", key),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// Keys lists the keys stored under stage.
func (s *JSONStore) Keys(ctx context.Context, stage Stage) ([]string, error) {
	prefix := path.Join(s.target, string(stage)) + "/"
	names, err := s.backend.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	keys := make([]string, 0, len(names))
	for _, name := range names {
		rest := strings.TrimPrefix(name, prefix)
		if strings.Contains(rest, "/") || !strings.HasSuffix(rest, ".json") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(rest, ".json"))
	}
	sort.Strings(keys)
	return keys, nil
}

// Clear deletes every object of the target.
func (s *JSONStore) Clear(ctx context.Context) error {
	if err := s.backend.DeletePrefix(ctx, s.target+"/"); err != nil {
		return fmt.Errorf("clear %s: %w", s.target, err)
	}
	s.logger.Info("checkpoints cleared", zap.String("target", s.target))
	return nil
}

// PutObject writes an auxiliary object (such as a page text snapshot) under
// the target namespace.
func (s *JSONStore) PutObject(ctx context.Context, name string, data []byte) error {
	full := path.Join(s.target, name)
	if strings.Contains(name, "..") || !strings.HasPrefix(full, s.target+"/") {
		return fmt.Errorf("%w: object %q", ErrInvalidKey, name)
	}
	if err := s.backend.Write(ctx, full, data); err != nil {
		return fmt.Errorf("write %s: %w", full, err)
	}
	return nil
}

func (s *JSONStore) lockFor(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

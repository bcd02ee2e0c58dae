package shared

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/vango-dev/sharedstate/internal/errors"
	"github.com/vango-dev/sharedstate/pkg/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// requireStorage panics when a persisted operation runs on a store without
// durable storage.
func (s *Store) requireStorage(key string) {
	if s.storage != nil {
		return
	}
	panic(errors.New("E020").
		WithDetail(fmt.Sprintf("key %q was bound with Persist()", key)).
		WithSuggestion("Construct the store with shared.WithStorage(...)"))
}

func (s *Store) persistContext() (context.Context, context.CancelFunc) {
	if s.persistTimeout > 0 {
		return context.WithTimeout(s.baseCtx, s.persistTimeout)
	}
	return context.WithCancel(s.baseCtx)
}

func (s *Store) startSpan(ctx context.Context, name, key string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("sharedstate.key", key)),
	)
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// save encodes value as JSON and writes it to storage. Failures are logged
// and counted; the in-memory write has already happened.
func (s *Store) save(key string, value any) {
	ctx, cancel := s.persistContext()
	defer cancel()

	ctx, span := s.startSpan(ctx, "sharedstate.persist.save", key)
	defer span.End()

	data, err := json.Marshal(value)
	if err != nil {
		perr := errors.New("E011").Wrap(err)
		failSpan(span, perr)
		s.metrics.persistFailed("encode")
		s.logger.Error("failed to encode shared value", "key", key, "error", perr)
		return
	}

	if err := s.storage.SetItem(ctx, key, string(data)); err != nil {
		perr := errors.New("E012").Wrap(err)
		failSpan(span, perr)
		s.metrics.persistFailed("store")
		s.logger.Error("failed to persist shared value", "key", key, "error", perr)
		return
	}

	span.SetAttributes(attribute.Int("sharedstate.bytes", len(data)))
	s.metrics.persisted()
}

// loadPersisted reads key from storage and decodes it as T. It returns false
// when nothing usable is stored; read and decode failures are logged and
// counted, never returned.
func loadPersisted[T any](s *Store, key string) (T, bool) {
	var zero T

	ctx, cancel := s.persistContext()
	defer cancel()

	ctx, span := s.startSpan(ctx, "sharedstate.persist.load", key)
	defer span.End()

	text, ok, err := s.storage.GetItem(ctx, key)
	if err != nil {
		perr := errors.New("E013").Wrap(err)
		failSpan(span, perr)
		s.metrics.persistFailed("load")
		s.logger.Warn("failed to read persisted shared value", "key", key, "error", perr)
		return zero, false
	}
	// A stored JSON null holds no value, so the initial value applies.
	if ok && bytes.Equal(bytes.TrimSpace([]byte(text)), []byte("null")) {
		ok = false
	}
	s.metrics.loaded(ok)
	span.SetAttributes(attribute.Bool("sharedstate.hit", ok))
	if !ok {
		return zero, false
	}

	var v T
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		perr := errors.New("E010").Wrap(err)
		failSpan(span, perr)
		s.metrics.persistFailed("decode")
		s.logger.Warn("failed to decode persisted shared value; using initial value",
			"key", key,
			"error", perr)
		return zero, false
	}
	return v, true
}

// Hydrate creates an entry for every key in storage that the store does not
// have yet, decoding each value as generic JSON (maps, slices, float64,
// string, bool, nil). Storage must implement storage.Lister. It returns the
// number of entries created. A store without storage returns E020.
func (s *Store) Hydrate(ctx context.Context) (int, error) {
	if s.storage == nil {
		return 0, errors.New("E020").
			WithSuggestion("Construct the store with shared.WithStorage(...)")
	}

	lister, ok := s.storage.(storage.Lister)
	if !ok {
		return 0, fmt.Errorf("storage %T cannot list keys", s.storage)
	}

	keys, err := lister.Keys(ctx)
	if err != nil {
		return 0, fmt.Errorf("list persisted keys: %w", err)
	}

	created := 0
	for _, key := range keys {
		if _, exists := s.Lookup(key); exists {
			continue
		}
		k := key
		_, fresh := s.getOrCreate(k, nil, KeepExisting, func() (any, bool) {
			return loadPersisted[any](s, k)
		}, true)
		if fresh {
			created++
		}
	}
	return created, nil
}

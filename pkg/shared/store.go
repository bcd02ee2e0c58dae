package shared

import (
	"context"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/vango-dev/sharedstate/internal/errors"
	"github.com/vango-dev/sharedstate/pkg/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Store is a keyed registry of shared values. Entries are created on first
// use and live as long as the store; only their listeners come and go.
//
// A Store is safe for concurrent use. Writes notify listeners synchronously:
// when Set or Update returns, every listener has been told.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Entry

	storage        storage.Storage
	logger         *slog.Logger
	debug          bool
	metrics        *Metrics
	tracer         trace.Tracer
	baseCtx        context.Context
	persistTimeout time.Duration

	watchers   map[uint64]func(Change)
	watcherSeq uint64
	watchersMu sync.RWMutex
}

// Change describes one committed write.
type Change struct {
	Key     string    `json:"key"`
	Value   any       `json:"value"`
	Version uint64    `json:"version"`
	At      time.Time `json:"at"`
}

// EntryInfo is a point-in-time view of one entry.
type EntryInfo struct {
	Key       string `json:"key"`
	Value     any    `json:"value"`
	Version   uint64 `json:"version"`
	Listeners int    `json:"listeners"`
	Persisted bool   `json:"persisted"`
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		entries:        make(map[string]*Entry),
		logger:         slog.Default(),
		tracer:         otel.Tracer("sharedstate"),
		baseCtx:        context.Background(),
		persistTimeout: DefaultPersistTimeout,
		watchers:       make(map[uint64]func(Change)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Storage returns the durable store, or nil.
func (s *Store) Storage() storage.Storage {
	return s.storage
}

// Logger returns the store's logger.
func (s *Store) Logger() *slog.Logger {
	return s.logger
}

// Lookup returns the entry for key without creating it.
func (s *Store) Lookup(key string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

// Len returns the number of keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Keys returns all keys in ascending order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

// Snapshot returns a view of every entry, ordered by key.
func (s *Store) Snapshot() []EntryInfo {
	s.mu.RLock()
	entries := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	infos := make([]EntryInfo, 0, len(entries))
	for _, e := range entries {
		infos = append(infos, e.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos
}

// Info returns a point-in-time view of the entry.
func (e *Entry) Info() EntryInfo {
	value, version := e.read()
	return EntryInfo{
		Key:       e.key,
		Value:     value,
		Version:   version,
		Listeners: e.ListenerCount(),
		Persisted: e.persisted,
	}
}

// GetOrCreate returns the entry for key, creating it with initial if absent.
// With KeepExisting an existing entry is returned untouched; with Overwrite
// its value is replaced by initial and its listeners are notified. The bool
// reports whether the entry was created.
//
// An empty key panics.
func (s *Store) GetOrCreate(key string, initial any, policy InitPolicy) (*Entry, bool) {
	return s.getOrCreate(key, initial, policy, nil, false)
}

// getOrCreate is GetOrCreate with an optional loader that seeds a new entry
// from durable storage. persist applies to the Overwrite write path and is
// recorded on a newly created entry.
func (s *Store) getOrCreate(key string, initial any, policy InitPolicy, load func() (any, bool), persist bool) (*Entry, bool) {
	if key == "" {
		panic(errors.New("E001"))
	}

	if e, ok := s.Lookup(key); ok {
		s.existing(e, initial, policy, persist)
		return e, false
	}

	// Storage is read before taking the registry lock. If another caller
	// creates the key meanwhile, its entry wins and the loaded value is
	// dropped.
	value := initial
	if load != nil {
		if loaded, ok := load(); ok {
			value = loaded
		}
	}

	s.mu.Lock()
	if e, ok := s.entries[key]; ok {
		s.mu.Unlock()
		s.existing(e, initial, policy, persist)
		return e, false
	}
	e := &Entry{
		key:       key,
		value:     value,
		persisted: persist,
		metrics:   s.metrics,
	}
	s.entries[key] = e
	s.mu.Unlock()

	s.metrics.entryCreated()
	s.logger.Debug("shared value created", "key", key, "persisted", persist)
	return e, true
}

// existing applies policy to an entry that is already registered.
func (s *Store) existing(e *Entry, initial any, policy InitPolicy, persist bool) {
	switch policy {
	case Overwrite:
		s.write(e, func(any) any { return initial }, persist)
	default:
		if s.debug && supplied(initial) && !reflect.DeepEqual(e.Value(), initial) {
			s.logger.Warn("shared value already exists; initial value ignored",
				"key", e.key,
				"initial", initial)
		}
	}
}

// supplied reports whether v counts as a caller-supplied initial value.
// nil and zero values stand for "no initial value".
func supplied(v any) bool {
	if v == nil {
		return false
	}
	return !reflect.ValueOf(v).IsZero()
}

// Get returns the current value for key.
func (s *Store) Get(key string) (any, bool) {
	e, ok := s.Lookup(key)
	if !ok {
		return nil, false
	}
	return e.Value(), true
}

// Set writes v under key, creating the entry if needed, and notifies its
// listeners before returning. Writes made through Set are not persisted.
func (s *Store) Set(key string, v any) {
	e, _ := s.GetOrCreate(key, nil, KeepExisting)
	s.write(e, func(any) any { return v }, false)
}

// Update writes fn(current) under key. fn sees the value present at call
// time; there is no compare-and-swap, so the last writer wins.
func (s *Store) Update(key string, fn func(any) any) {
	e, _ := s.GetOrCreate(key, nil, KeepExisting)
	s.write(e, fn, false)
}

// Subscribe adds l to key's listeners, creating an empty entry if needed.
func (s *Store) Subscribe(key string, l Listener) (unsubscribe func()) {
	e, _ := s.GetOrCreate(key, nil, KeepExisting)
	return e.Subscribe(l)
}

// Unsubscribe removes l from key's listeners.
func (s *Store) Unsubscribe(key string, l Listener) {
	if e, ok := s.Lookup(key); ok && l != nil {
		e.unsubscribe(l)
	}
}

// write is the single write path: resolve, assign, persist, notify, then
// tell watchers. Persisted writes to one entry assign and save one at a
// time, in version order.
func (s *Store) write(e *Entry, fn func(any) any, persist bool) {
	if persist {
		s.requireStorage(e.key)
	}

	var (
		value   any
		version uint64
	)
	if persist {
		value, version = s.swapAndSave(e, fn)
	} else {
		value, version = e.swap(fn)
	}
	s.metrics.wrote()

	e.Notify()
	s.emit(Change{Key: e.key, Value: value, Version: version, At: time.Now()})
}

func (s *Store) swapAndSave(e *Entry, fn func(any) any) (any, uint64) {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	value, version := e.swap(fn)
	s.save(e.key, value)
	return value, version
}

// Watch registers fn to receive every committed write, after the key's
// listeners have been notified. The returned function stops delivery.
func (s *Store) Watch(fn func(Change)) (cancel func()) {
	s.watchersMu.Lock()
	s.watcherSeq++
	id := s.watcherSeq
	s.watchers[id] = fn
	s.watchersMu.Unlock()

	return func() {
		s.watchersMu.Lock()
		delete(s.watchers, id)
		s.watchersMu.Unlock()
	}
}

func (s *Store) emit(c Change) {
	s.watchersMu.RLock()
	if len(s.watchers) == 0 {
		s.watchersMu.RUnlock()
		return
	}
	ids := make([]uint64, 0, len(s.watchers))
	for id := range s.watchers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]func(Change), len(ids))
	for i, id := range ids {
		fns[i] = s.watchers[id]
	}
	s.watchersMu.RUnlock()

	for _, fn := range fns {
		fn(c)
	}
}

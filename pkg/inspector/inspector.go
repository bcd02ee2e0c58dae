package inspector

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vango-dev/sharedstate/pkg/shared"
)

// Inspector exposes a Store over HTTP.
type Inspector struct {
	store    *shared.Store
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	feed     *Feed

	checkOrigin func(*http.Request) bool
	sendBuffer  int

	router chi.Router
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithGatherer sets the gatherer served on /metrics.
// Default: prometheus.DefaultGatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(i *Inspector) {
		if g != nil {
			i.gatherer = g
		}
	}
}

// WithLogger sets the logger.
// Default: the store's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Inspector) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithCheckOrigin sets the websocket origin check.
// Default: same-origin only (the gorilla/websocket default).
func WithCheckOrigin(fn func(*http.Request) bool) Option {
	return func(i *Inspector) {
		i.checkOrigin = fn
	}
}

// WithSendBuffer sets how many change events may queue per websocket client
// before the client is dropped.
// Default: 64.
func WithSendBuffer(n int) Option {
	return func(i *Inspector) {
		if n > 0 {
			i.sendBuffer = n
		}
	}
}

// New creates an Inspector for store and starts watching it for the change
// feed. Call Close to stop.
func New(store *shared.Store, opts ...Option) *Inspector {
	i := &Inspector{
		store:      store,
		gatherer:   prometheus.DefaultGatherer,
		logger:     store.Logger(),
		sendBuffer: 64,
	}
	for _, opt := range opts {
		opt(i)
	}

	i.feed = newFeed(i.logger, i.checkOrigin, i.sendBuffer)
	i.feed.watch(store)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/keys", i.handleKeys)
	r.Get("/keys/{key}", i.handleKey)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(i.gatherer, promhttp.HandlerOpts{}))
	r.Get("/ws", i.feed.HandleWebSocket)
	i.router = r

	return i
}

// Handler returns the HTTP handler.
func (i *Inspector) Handler() http.Handler {
	return i.router
}

// Feed returns the websocket change feed.
func (i *Inspector) Feed() *Feed {
	return i.feed
}

// Close stops the change feed and disconnects every websocket client.
func (i *Inspector) Close() {
	i.feed.Close()
}

func (i *Inspector) handleKeys(w http.ResponseWriter, r *http.Request) {
	i.writeJSON(w, http.StatusOK, i.store.Snapshot())
}

func (i *Inspector) handleKey(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if e, ok := i.store.Lookup(key); ok {
		i.writeJSON(w, http.StatusOK, e.Info())
		return
	}
	i.writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "key not found",
		"key":   key,
	})
}

func (i *Inspector) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		i.logger.Error("inspector: failed to encode response", "error", err)
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

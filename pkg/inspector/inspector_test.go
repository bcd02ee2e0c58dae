package inspector

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vango-dev/sharedstate/pkg/shared"
)

func newTestServer(t *testing.T, s *shared.Store, opts ...Option) (*Inspector, *httptest.Server) {
	t.Helper()
	insp := New(s, opts...)
	srv := httptest.NewServer(insp.Handler())
	t.Cleanup(func() {
		insp.Close()
		srv.Close()
	})
	return insp, srv
}

func TestKeysEndpoint(t *testing.T) {
	s := shared.New()
	s.Set("b", "two")
	s.Set("a", 1)
	insp := New(s)
	defer insp.Close()

	req := httptest.NewRequest(http.MethodGet, "/keys", nil)
	rec := httptest.NewRecorder()
	insp.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var got []shared.EntryInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0].Key != "a" || got[1].Key != "b" {
		t.Fatalf("keys = %+v", got)
	}
	if got[1].Value != "two" {
		t.Fatalf("b = %v, want two", got[1].Value)
	}
}

func TestKeyEndpoint(t *testing.T) {
	s := shared.New()
	s.Set("theme", "dark")
	insp := New(s)
	defer insp.Close()

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/keys/theme", http.StatusOK, `"value":"dark"`},
		{"/keys/missing", http.StatusNotFound, `"key not found"`},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			insp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if !strings.Contains(rec.Body.String(), tt.body) {
				t.Fatalf("body = %s, want it to contain %s", rec.Body.String(), tt.body)
			}
		})
	}
}

func TestKeyEndpointReportsLiveEntry(t *testing.T) {
	s := shared.New()
	s.Set("count", 1)
	s.Subscribe("count", shared.ListenerFunc(func() {}))
	s.Set("count", 2)
	insp := New(s)
	defer insp.Close()

	rec := httptest.NewRecorder()
	insp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/keys/count", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got shared.EntryInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Key != "count" || got.Value != float64(2) || got.Version != 2 || got.Listeners != 1 {
		t.Fatalf("entry = %+v", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := shared.New(shared.WithMetrics(shared.NewMetrics(shared.WithRegistry(reg))))
	s.Set("a", 1)

	_, srv := newTestServer(t, s, WithGatherer(reg))

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), "sharedstate_writes_total 1") {
		t.Fatalf("metrics output missing writes counter:\n%s", body)
	}
}

func TestWebSocketFeed(t *testing.T) {
	s := shared.New()
	insp, srv := newTestServer(t, s)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for insp.Feed().ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	s.Set("count", 3)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var change shared.Change
	if err := json.Unmarshal(data, &change); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if change.Key != "count" || change.Value != float64(3) || change.Version != 1 {
		t.Fatalf("change = %+v", change)
	}
}

func TestFeedDropsSlowClient(t *testing.T) {
	s := shared.New()
	f := newFeed(s.Logger(), nil, 1)
	f.watch(s)
	defer f.Close()

	c := &feedClient{id: "slow", send: make(chan []byte, 1)}
	f.mu.Lock()
	f.clients[c.id] = c
	f.mu.Unlock()

	s.Set("a", 1)
	if f.ClientCount() != 1 {
		t.Fatal("client with room in its queue should stay")
	}
	s.Set("a", 2)
	if f.ClientCount() != 0 {
		t.Fatal("client with a full queue should be dropped")
	}
}

func TestFeedCloseStopsWatching(t *testing.T) {
	s := shared.New()
	f := newFeed(s.Logger(), nil, 1)
	f.watch(s)

	c := &feedClient{id: "c", send: make(chan []byte, 1)}
	f.mu.Lock()
	f.clients[c.id] = c
	f.mu.Unlock()

	f.Close()
	f.Close()
	s.Set("a", 1)

	if _, ok := <-c.send; ok {
		t.Fatal("closed client should not receive changes")
	}
}

package inspector

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vango-dev/sharedstate/pkg/shared"
)

const writeWait = 10 * time.Second

// Feed broadcasts store changes to websocket clients.
type Feed struct {
	clients  map[string]*feedClient
	mu       sync.RWMutex
	upgrader websocket.Upgrader
	logger   *slog.Logger
	buffer   int

	stopWatch func()
	closed    bool
}

type feedClient struct {
	id   string
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// enqueue reports false when the client's queue is full.
func (c *feedClient) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *feedClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func newFeed(logger *slog.Logger, checkOrigin func(*http.Request) bool, buffer int) *Feed {
	return &Feed{
		clients: make(map[string]*feedClient),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger,
		buffer: buffer,
	}
}

func (f *Feed) watch(store *shared.Store) {
	f.stopWatch = store.Watch(f.broadcast)
}

// HandleWebSocket upgrades the request and streams changes until the client
// disconnects or falls behind.
func (f *Feed) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := f.upgrader.Upgrade(w, req, nil)
	if err != nil {
		f.logger.Debug("inspector: websocket upgrade failed", "error", err)
		return
	}

	client := &feedClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, f.buffer),
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		conn.Close()
		return
	}
	f.clients[client.id] = client
	f.mu.Unlock()

	f.logger.Debug("inspector: feed client connected", "client", client.id)

	go f.writeLoop(client)

	// Reads only detect disconnects; clients have nothing to say.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	f.remove(client)
	f.logger.Debug("inspector: feed client disconnected", "client", client.id)
}

func (f *Feed) writeLoop(c *feedClient) {
	defer c.conn.Close()

	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			f.remove(c)
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

func (f *Feed) remove(c *feedClient) {
	f.mu.Lock()
	delete(f.clients, c.id)
	f.mu.Unlock()
	c.close()
}

// broadcast queues a change for every client. A client whose queue is full
// is dropped.
func (f *Feed) broadcast(change shared.Change) {
	data, err := json.Marshal(change)
	if err != nil {
		f.logger.Warn("inspector: failed to encode change", "key", change.Key, "error", err)
		return
	}

	f.mu.RLock()
	clients := make([]*feedClient, 0, len(f.clients))
	for _, c := range f.clients {
		clients = append(clients, c)
	}
	f.mu.RUnlock()

	for _, c := range clients {
		if !c.enqueue(data) {
			f.logger.Warn("inspector: dropping slow feed client", "client", c.id)
			f.remove(c)
		}
	}
}

// ClientCount returns the number of connected clients.
func (f *Feed) ClientCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

// Close stops watching the store and disconnects every client.
func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	clients := f.clients
	f.clients = make(map[string]*feedClient)
	f.mu.Unlock()

	if f.stopWatch != nil {
		f.stopWatch()
	}
	for _, c := range clients {
		c.close()
	}
}

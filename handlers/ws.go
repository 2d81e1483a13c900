package handlers

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"p9e.in/hallfix/config"
	"p9e.in/hallfix/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser portals connect cross-origin from the static frontend host.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LiveFeed pushes the merged report set to connected dashboards whenever a
// snapshot lands. Slow clients are dropped rather than buffered without
// bound.
type LiveFeed struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]chan []models.Report
}

func NewLiveFeed() *LiveFeed {
	return &LiveFeed{conns: make(map[*websocket.Conn]chan []models.Report)}
}

// Broadcast queues the latest merged set to every client. A client whose
// queue is full loses intermediate frames and only sees the newest.
func (f *LiveFeed) Broadcast(rows []models.Report) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.conns {
		select {
		case ch <- rows:
		default:
			// Drain the stale frame and replace it with the current one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- rows:
			default:
			}
		}
	}
}

func (f *LiveFeed) attach(conn *websocket.Conn) chan []models.Report {
	ch := make(chan []models.Report, 1)
	f.mu.Lock()
	f.conns[conn] = ch
	f.mu.Unlock()
	return ch
}

func (f *LiveFeed) detach(conn *websocket.Conn) {
	f.mu.Lock()
	if ch, ok := f.conns[conn]; ok {
		delete(f.conns, conn)
		close(ch)
	}
	f.mu.Unlock()
	conn.Close()
}

// ReportStreamWS upgrades to a websocket and streams merged report
// snapshots. The current set is sent immediately on connect.
func ReportStreamWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		config.Log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	ch := Feed.attach(conn)
	defer Feed.detach(conn)

	if err := conn.WriteJSON(Engine.Merged()); err != nil {
		return
	}

	// Reader goroutine notices client disconnects; the feed never expects
	// inbound messages.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case rows, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(rows); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

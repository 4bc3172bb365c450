package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/vrsandeep/serieswatch/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 256
)

const (
	EventNewReleases     = "new_releases"
	EventReleasesChanged = "releases_changed"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the JSON envelope pushed to connected clients.
type Message struct {
	Type   string `json:"type"`
	UserID int64  `json:"user_id"`
	Data   any    `json:"data,omitempty"`
}

// NewReleasesPayload is the data of a new_releases event.
type NewReleasesPayload struct {
	TrackedSeriesID int64                `json:"tracked_series_id"`
	SeriesID        int64                `json:"series_id"`
	SeriesTitle     string               `json:"series_title,omitempty"`
	Releases        []*models.NewRelease `json:"releases"`
}

type outbound struct {
	userID int64
	data   []byte
}

// Client is one websocket connection owned by a user.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID int64
	send   chan []byte
}

// Hub keeps the set of connected clients and routes events to the sockets
// of the user they belong to.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan outbound
	done       chan struct{}
	stopOnce   sync.Once
	log        zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan outbound, sendBufferSize),
		done:       make(chan struct{}),
		log:        logger,
	}
}

// Run processes registrations and deliveries until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.log.Debug().Int64("user_id", client.userID).Msg("websocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if client.userID != msg.userID {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					h.log.Warn().Int64("user_id", client.userID).Msg("websocket client too slow, disconnecting")
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Stop ends Run and closes every client.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SendJSON queues an event for userID's sockets. It never blocks; the
// event is dropped when the hub is saturated.
func (h *Hub) SendJSON(userID int64, msg Message) error {
	msg.UserID = userID
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- outbound{userID: userID, data: data}:
	default:
		h.log.Warn().Int64("user_id", userID).Str("type", msg.Type).Msg("websocket hub saturated, dropping event")
	}
	return nil
}

// NotifyNewReleases delivers newly detected releases to the owner of ts.
func (h *Hub) NotifyNewReleases(ts *models.TrackedSeries, releases []*models.NewRelease) error {
	return h.SendJSON(ts.UserID, Message{
		Type: EventNewReleases,
		Data: NewReleasesPayload{
			TrackedSeriesID: ts.ID,
			SeriesID:        ts.SeriesID,
			SeriesTitle:     ts.SeriesTitle,
			Releases:        releases,
		},
	})
}

// SignalReleasesChanged tells userID's clients to refresh their releases.
func (h *Hub) SignalReleasesChanged(userID int64) {
	if err := h.SendJSON(userID, Message{Type: EventReleasesChanged}); err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("failed to encode releases_changed event")
	}
}

// ServeWs upgrades the request and attaches the socket to userID.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request, userID int64) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	client := &Client{hub: h, conn: conn, userID: userID, send: make(chan []byte, sendBufferSize)}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump only drains control frames; clients never send events.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug().Err(err).Int64("user_id", c.userID).Msg("websocket read error")
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

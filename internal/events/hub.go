package events

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mcoot/tourney/internal/model"
)

// Frames waiting to be fanned out
const queueSize = 256

// Hub fans out SSE messages to the clients following one tournament
type Hub struct {
	tournamentID model.TournamentID
	clients      map[*Client]bool
	mu           sync.RWMutex
	logger       *slog.Logger

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
}

// NewHub creates a new Hub for a tournament
func NewHub(tournamentID model.TournamentID, logger *slog.Logger) *Hub {
	return &Hub{
		tournamentID: tournamentID,
		clients:      make(map[*Client]bool),
		logger:       logger.With(slog.String("tournament_id", string(tournamentID))),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		broadcast:    make(chan []byte, queueSize),
		done:         make(chan struct{}),
	}
}

// Run serves the hub until Close. Messages queued before Close are still
// delivered before the follower streams are closed.
func (h *Hub) Run() {
	h.logger.Debug("tournament feed started")
	for {
		select {
		case client := <-h.register:
			h.add(client)
		case client := <-h.unregister:
			h.remove(client)
		case message := <-h.broadcast:
			h.fanOut(message)
		case <-h.done:
			h.drain()
			h.disconnectAll()
			return
		}
	}
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	followers := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("follower joined",
		slog.String("user_id", string(client.userID)),
		slog.Int("followers", followers))
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	if !h.clients[client] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	followers := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("follower left",
		slog.String("user_id", string(client.userID)),
		slog.Duration("followed_for", time.Since(client.connectedAt)),
		slog.Int("followers", followers))
}

// fanOut hands message to every follower without blocking; a follower whose
// buffer is full misses it
func (h *Hub) fanOut(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	dropped := 0
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Warn("slow followers missed an event",
			slog.Int("dropped", dropped),
			slog.Int("followers", len(h.clients)))
	}
}

func (h *Hub) drain() {
	for {
		select {
		case message := <-h.broadcast:
			h.fanOut(message)
		default:
			return
		}
	}
}

func (h *Hub) disconnectAll() {
	h.mu.Lock()
	followers := len(h.clients)
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.mu.Unlock()

	h.logger.Debug("tournament feed stopped", slog.Int("disconnected", followers))
}

// Register adds a client to the hub. It returns false if the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues a raw SSE frame for every follower. It never blocks:
// when the queue is full the frame is dropped.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("tournament feed queue full, event dropped")
	}
}

// BroadcastEvent queues a named SSE event
func (h *Hub) BroadcastEvent(eventName, data string) {
	h.Broadcast(formatSSEMessage(eventName, data))
}

// Close stops Run; it must be called at most once
func (h *Hub) Close() {
	close(h.done)
}

// ClientCount returns the number of followers
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// formatSSEMessage frames data as one SSE event, one "data:" line per line of data
func formatSSEMessage(eventName, data string) []byte {
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(eventName)
	b.WriteByte('\n')
	for _, line := range splitLines(data) {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

// splitLines splits on LF or CRLF, ignoring one trailing line break
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r", "")
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// HubManager owns one Hub per followed tournament. Hubs are created on
// first follow and closed on deletion, idle cleanup or shutdown.
type HubManager struct {
	hubs   map[model.TournamentID]*Hub
	mu     sync.RWMutex
	logger *slog.Logger
}

func NewHubManager(logger *slog.Logger) *HubManager {
	return &HubManager{
		hubs:   make(map[model.TournamentID]*Hub),
		logger: logger.With(slog.String("component", "sse")),
	}
}

// GetOrCreateHub returns the running hub for a tournament, starting one if needed
func (m *HubManager) GetOrCreateHub(tournamentID model.TournamentID) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()

	hub, ok := m.hubs[tournamentID]
	if !ok {
		hub = NewHub(tournamentID, m.logger)
		m.hubs[tournamentID] = hub
		go hub.Run()
	}
	return hub
}

// GetHub returns the tournament's hub, or nil when nobody follows it
func (m *HubManager) GetHub(tournamentID model.TournamentID) *Hub {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hubs[tournamentID]
}

// RemoveHub closes the tournament's hub, ending its follower streams
func (m *HubManager) RemoveHub(tournamentID model.TournamentID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closeLocked(tournamentID) {
		m.logger.Info("tournament feed removed", slog.String("tournament_id", string(tournamentID)))
	}
}

// CleanupEmptyHubs closes hubs that have no followers left
func (m *HubManager) CleanupEmptyHubs() {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, hub := range m.hubs {
		if hub.ClientCount() == 0 && m.closeLocked(id) {
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info("idle tournament feeds closed", slog.Int("removed", removed))
	}
}

// Close shuts down every hub. It is safe to call more than once.
func (m *HubManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.hubs {
		m.closeLocked(id)
	}
}

func (m *HubManager) closeLocked(id model.TournamentID) bool {
	hub, ok := m.hubs[id]
	if !ok {
		return false
	}
	hub.Close()
	delete(m.hubs, id)
	return true
}

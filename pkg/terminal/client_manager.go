package terminal

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/antibyte/linebasic/pkg/configuration"
	"github.com/antibyte/linebasic/pkg/logger"
)

const (
	MaxClientsDefault = 100
	rateWindow        = time.Minute
	// ab so vielen Einträgen werden abgelaufene Zähler entfernt
	rateLimitSweepSize = 1024
)

var (
	errSessionTaken = errors.New("session already connected")
	errServerFull   = errors.New("server full")
	errRateLimited  = errors.New("rate limit exceeded")
)

// rateWindowCount zählt Verbindungsversuche einer IP im aktuellen Fenster
type rateWindowCount struct {
	requests int
	start    time.Time
}

// ClientManager verwaltet Client-Verbindungen mit Session-IDs
type ClientManager struct {
	clients    map[string]*Client          // sessionID -> Client
	rateLimits map[string]*rateWindowCount // ipAddress -> window
	maxClients int
	maxPerMin  int
	mu         sync.RWMutex
}

// NewClientManager erstellt einen neuen ClientManager
func NewClientManager() *ClientManager {
	return &ClientManager{
		clients:    make(map[string]*Client),
		rateLimits: make(map[string]*rateWindowCount),
		maxClients: configuration.GetInt("Server", "max_clients", MaxClientsDefault),
		maxPerMin:  configuration.GetInt("Server", "connections_per_minute", 30),
	}
}

// AddClient registers client under its session ID. It fails when the
// session already has a connection or the server is full.
func (cm *ClientManager) AddClient(client *Client) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if _, exists := cm.clients[client.sessionID]; exists {
		return fmt.Errorf("%w: %s", errSessionTaken, client.sessionID)
	}
	if len(cm.clients) >= cm.maxClients {
		return fmt.Errorf("%w: %d clients", errServerFull, len(cm.clients))
	}
	cm.clients[client.sessionID] = client
	logger.TerminalDebug("[CLIENT-MANAGER] Client added for session %s", client.sessionID)
	return nil
}

// RemoveClient entfernt einen Client
func (cm *ClientManager) RemoveClient(client *Client) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if current, exists := cm.clients[client.sessionID]; exists && current == client {
		delete(cm.clients, client.sessionID)
		logger.TerminalDebug("[CLIENT-MANAGER] Client removed for session %s", client.sessionID)
	}
}

// GetClientCount gibt die Anzahl der verbundenen Clients zurück
func (cm *ClientManager) GetClientCount() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.clients)
}

// HasClient prüft, ob für die Session ein Client verbunden ist
func (cm *ClientManager) HasClient(sessionID string) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	_, exists := cm.clients[sessionID]
	return exists
}

// CloseAll fordert alle Clients zum Beenden auf
func (cm *ClientManager) CloseAll() {
	cm.mu.RLock()
	clients := make([]*Client, 0, len(cm.clients))
	for _, c := range cm.clients {
		clients = append(clients, c)
	}
	cm.mu.RUnlock()

	for _, c := range clients {
		c.close()
	}
}

// CheckRateLimit counts a connection attempt from ipAddress and fails once
// the address exceeds connections_per_minute within the current window.
func (cm *ClientManager) CheckRateLimit(ipAddress string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	now := time.Now()
	if len(cm.rateLimits) >= rateLimitSweepSize {
		cm.sweepRateLimitsLocked(now)
	}

	w, exists := cm.rateLimits[ipAddress]
	if !exists || now.Sub(w.start) > rateWindow {
		w = &rateWindowCount{start: now}
		cm.rateLimits[ipAddress] = w
	}
	w.requests++
	if w.requests > cm.maxPerMin {
		logger.TerminalWarn("[SECURITY] Rate limit exceeded for IP %s: %d connections in last minute", ipAddress, w.requests)
		return fmt.Errorf("%w: too many connections from %s", errRateLimited, ipAddress)
	}
	return nil
}

func (cm *ClientManager) sweepRateLimitsLocked(now time.Time) {
	for ip, w := range cm.rateLimits {
		if now.Sub(w.start) > rateWindow {
			delete(cm.rateLimits, ip)
		}
	}
}

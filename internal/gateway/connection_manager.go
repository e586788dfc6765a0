package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/openmarket/auctiond/internal/events"
)

// ConnectionManager maintains the live-broadcast membership: which
// connections are subscribed to which auction, and which connections belong
// to which user. A user may hold several simultaneous connections.
type ConnectionManager struct {
	auctionConns map[uuid.UUID]map[*Connection]bool
	userConns    map[uuid.UUID]map[*Connection]bool
	mu           sync.RWMutex

	upgrader websocket.Upgrader

	config ConnectionConfig

	broadcastCh chan broadcastMessage

	// canJoin guards in-band join commands; nil means join is unguarded.
	canJoin func(auctionID uuid.UUID) error
}

// SetJoinGuard installs the visibility check applied to client join commands.
func (cm *ConnectionManager) SetJoinGuard(fn func(auctionID uuid.UUID) error) {
	cm.canJoin = fn
}

// Connection represents a WebSocket connection to a client.
type Connection struct {
	ID      string
	UserID  uuid.UUID
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time

	// done signals the write pump to stop. Send itself is never closed: a
	// broadcast may race an unregister and sending on a closed channel
	// would panic the whole process.
	done chan struct{}
}

// ConnectionConfig holds configuration for WebSocket connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

type broadcastMessage struct {
	AuctionID uuid.UUID
	UserID    *uuid.UUID // if set, deliver to this user's connections instead
	Event     events.Event
}

// DefaultConnectionConfig returns default WebSocket configuration. The
// ping/pong pair doubles as the heartbeat: a connection that misses the read
// deadline is pruned by its own readPump.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager.
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		auctionConns: make(map[uuid.UUID]map[*Connection]bool),
		userConns:    make(map[uuid.UUID]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan broadcastMessage, 1000),
	}
}

// Start begins processing broadcast messages until ctx is cancelled.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP request to a WebSocket connection and
// subscribes it to the given auction.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, userID, auctionID uuid.UUID) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
		done:        make(chan struct{}),
	}

	cm.register(connection)
	cm.Join(connection, auctionID)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("user_id", userID.String()).
		Str("auction_id", auctionID.String()).
		Msg("WebSocket connection established")
	return nil
}

// register adds a connection to the user index.
func (cm *ConnectionManager) register(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.userConns[conn.UserID] == nil {
		cm.userConns[conn.UserID] = make(map[*Connection]bool)
	}
	cm.userConns[conn.UserID][conn] = true
}

// unregister removes a connection from every group and the user index, and
// signals its write pump to stop. Safe to call more than once.
func (cm *ConnectionManager) unregister(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if conns, exists := cm.userConns[conn.UserID]; exists && conns[conn] {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(cm.userConns, conn.UserID)
		}
		close(conn.done)

		for auctionID, group := range cm.auctionConns {
			if group[conn] {
				delete(group, conn)
				if len(group) == 0 {
					delete(cm.auctionConns, auctionID)
				}
			}
		}

		log.Info().
			Str("connection_id", conn.ID).
			Str("user_id", conn.UserID.String()).
			Msg("connection unregistered")
	}
}

// Join subscribes a connection to an auction's broadcast group. Idempotent.
func (cm *ConnectionManager) Join(conn *Connection, auctionID uuid.UUID) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.auctionConns[auctionID] == nil {
		cm.auctionConns[auctionID] = make(map[*Connection]bool)
	}
	cm.auctionConns[auctionID][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("auction_id", auctionID.String()).
		Int("subscribers", len(cm.auctionConns[auctionID])).
		Msg("connection joined auction group")
}

// Leave removes a connection from an auction's broadcast group. Idempotent.
func (cm *ConnectionManager) Leave(conn *Connection, auctionID uuid.UUID) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if group, exists := cm.auctionConns[auctionID]; exists {
		delete(group, conn)
		if len(group) == 0 {
			delete(cm.auctionConns, auctionID)
		}
	}
}

// BroadcastToAuction sends an event to every subscriber of an auction.
func (cm *ConnectionManager) BroadcastToAuction(auctionID uuid.UUID, event events.Event) {
	select {
	case cm.broadcastCh <- broadcastMessage{AuctionID: auctionID, Event: event}:
	default:
		log.Warn().Str("auction_id", auctionID.String()).Msg("broadcast channel full, dropping message")
	}
}

// BroadcastToUser sends an event to every connection a user holds.
func (cm *ConnectionManager) BroadcastToUser(userID uuid.UUID, event events.Event) {
	select {
	case cm.broadcastCh <- broadcastMessage{UserID: &userID, Event: event}:
	default:
		log.Warn().Str("user_id", userID.String()).Msg("broadcast channel full, dropping user message")
	}
}

// handleBroadcast processes one broadcast message. Delivery is
// fire-and-forget per connection: a slow or dead connection is dropped
// without affecting the others.
func (cm *ConnectionManager) handleBroadcast(message broadcastMessage) {
	cm.mu.RLock()
	var targets []*Connection
	if message.UserID != nil {
		for conn := range cm.userConns[*message.UserID] {
			targets = append(targets, conn)
		}
	} else {
		for conn := range cm.auctionConns[message.AuctionID] {
			targets = append(targets, conn)
		}
	}
	cm.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	eventData, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targets {
		select {
		case conn.Send <- eventData:
		default:
			log.Warn().
				Str("connection_id", conn.ID).
				Str("user_id", conn.UserID.String()).
				Msg("connection send buffer full, closing connection")
			cm.unregister(conn)
			conn.closeSocket()
		}
	}

	log.Debug().
		Str("event_type", string(message.Event.Type)).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

// Stats returns counts of active connections and auction groups.
func (cm *ConnectionManager) Stats() (totalConnections, activeAuctions int) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	for _, conns := range cm.userConns {
		totalConnections += len(conns)
	}
	return totalConnections, len(cm.auctionConns)
}

func (c *Connection) closeSocket() {
	if c.Conn != nil {
		c.Conn.Close()
	}
}

// writePump handles sending messages and heartbeat pings to the connection.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.closeSocket()
		c.Manager.unregister(c)
	}()

	for {
		select {
		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to send ping")
				return
			}
		}
	}
}

// clientMessage is the join/leave command a client may send on the socket.
type clientMessage struct {
	Action    string `json:"action"`
	AuctionID string `json:"auction_id"`
}

// readPump handles reading messages from the WebSocket connection. A missed
// pong trips the read deadline and tears the connection down.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregister(c)
		c.closeSocket()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected WebSocket close error")
			}
			break
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// handleClientMessage processes join/leave commands received from the client.
func (c *Connection) handleClientMessage(message []byte) {
	var msg clientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Debug().Str("connection_id", c.ID).Msg("ignoring malformed client message")
		return
	}

	auctionID, err := uuid.Parse(msg.AuctionID)
	if err != nil {
		log.Debug().Str("connection_id", c.ID).Msg("ignoring client message with bad auction id")
		return
	}

	switch msg.Action {
	case "join":
		if c.Manager.canJoin != nil {
			if err := c.Manager.canJoin(auctionID); err != nil {
				log.Debug().
					Str("connection_id", c.ID).
					Str("auction_id", auctionID.String()).
					Msg("join refused, auction not visible")
				return
			}
		}
		c.Manager.Join(c, auctionID)
	case "leave":
		c.Manager.Leave(c, auctionID)
	default:
		log.Debug().
			Str("connection_id", c.ID).
			Str("action", msg.Action).
			Msg("ignoring unknown client action")
	}
}

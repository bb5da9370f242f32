package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/jeopardy/go/internal/game"
	"github.com/rs/zerolog/log"
)

// MessageHandler receives client traffic from the connection manager.
type MessageHandler interface {
	HandleMessage(ctx context.Context, c *Connection, data []byte)
	// HandleLeave runs once a participant's last connection to a room closes.
	HandleLeave(ctx context.Context, roomID, participantID string)
}

// ConnectionManager manages WebSocket connections per room. It is also the
// room roster, broadcaster and chat log for game sessions.
type ConnectionManager struct {
	// Connection pools organized by room ID
	roomConnections map[string]map[*Connection]bool
	// Display names outlive connections so departed players keep their name
	names map[string]map[string]string
	mu    sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	handler  MessageHandler

	broadcastCh chan BroadcastMessage
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID            string
	ParticipantID string
	RoomID        string
	Conn          *websocket.Conn
	Send          chan []byte
	Manager       *ConnectionManager

	ConnectedAt time.Time

	// ctx is cancelled once the connection is unregistered.
	ctx    context.Context
	cancel context.CancelFunc
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage represents a message to broadcast to connections
type BroadcastMessage struct {
	RoomID        string
	Envelope      *Envelope
	ParticipantID string // Optional: if set, only send to this participant
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  60 * time.Second,
		PingInterval: 30 * time.Second,
		// Custom games arrive as one CSV message. JSON escaping can grow each
		// character to six bytes.
		MaxMessageSize:  8 << 20,
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		SendBufferSize:  256,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		roomConnections: make(map[string]map[*Connection]bool),
		names:           make(map[string]map[string]string),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// SetHandler wires inbound traffic. It must be called before connections
// are accepted.
func (cm *ConnectionManager) SetHandler(h MessageHandler) {
	cm.handler = h
}

// Start processes broadcast messages until ctx is cancelled.
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

// UpgradeConnection upgrades an HTTP connection to WebSocket
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, roomID, participantID, name string) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	connection := &Connection{
		ID:            uuid.New().String(),
		ParticipantID: participantID,
		RoomID:        roomID,
		Conn:          conn,
		Send:          make(chan []byte, cm.config.SendBufferSize),
		Manager:       cm,
		ConnectedAt:   time.Now(),
		ctx:           ctx,
		cancel:        cancel,
	}
	cm.registerConnection(connection, name)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("participant_id", participantID).
		Str("room_id", roomID).
		Msg("WebSocket connection established")
	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection, name string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.roomConnections[conn.RoomID] == nil {
		cm.roomConnections[conn.RoomID] = make(map[*Connection]bool)
	}
	cm.roomConnections[conn.RoomID][conn] = true

	if cm.names[conn.RoomID] == nil {
		cm.names[conn.RoomID] = make(map[string]string)
	}
	if name != "" {
		cm.names[conn.RoomID][conn.ParticipantID] = name
	} else if _, ok := cm.names[conn.RoomID][conn.ParticipantID]; !ok {
		cm.names[conn.RoomID][conn.ParticipantID] = conn.ParticipantID
	}

	log.Debug().
		Str("connection_id", conn.ID).
		Str("room_id", conn.RoomID).
		Int("total_connections", len(cm.roomConnections[conn.RoomID])).
		Msg("connection registered")
}

// unregisterConnection removes a connection and reports a leave when it was
// the participant's last one in the room. The leave runs on the caller's
// goroutine.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	if cm.removeConnection(conn) {
		cm.notifyLeave(conn.RoomID, conn.ParticipantID)
	}
}

// removeConnection drops conn from its room and reports whether it was the
// participant's last connection there.
func (cm *ConnectionManager) removeConnection(conn *Connection) bool {
	cm.mu.Lock()
	connections, exists := cm.roomConnections[conn.RoomID]
	if !exists || !connections[conn] {
		cm.mu.Unlock()
		return false
	}
	delete(connections, conn)
	close(conn.Send)
	if conn.cancel != nil {
		conn.cancel()
	}

	left := true
	for other := range connections {
		if other.ParticipantID == conn.ParticipantID {
			left = false
			break
		}
	}
	if len(connections) == 0 {
		delete(cm.roomConnections, conn.RoomID)
	}
	cm.mu.Unlock()

	log.Info().
		Str("connection_id", conn.ID).
		Str("participant_id", conn.ParticipantID).
		Str("room_id", conn.RoomID).
		Msg("connection unregistered")
	return left
}

// notifyLeave hands a departure to the handler. Sessions call back into the
// roster, so it must run without cm.mu held.
func (cm *ConnectionManager) notifyLeave(roomID, participantID string) {
	if cm.handler != nil {
		cm.handler.HandleLeave(context.Background(), roomID, participantID)
	}
}

// Rename changes a participant's display name in a room.
func (cm *ConnectionManager) Rename(roomID, participantID, name string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.names[roomID] == nil {
		cm.names[roomID] = make(map[string]string)
	}
	cm.names[roomID][participantID] = name
}

// Members lists present participants ordered by their earliest connection.
func (cm *ConnectionManager) Members(roomID string) []game.Participant {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	first := make(map[string]time.Time)
	for conn := range cm.roomConnections[roomID] {
		if t, ok := first[conn.ParticipantID]; !ok || conn.ConnectedAt.Before(t) {
			first[conn.ParticipantID] = conn.ConnectedAt
		}
	}

	members := make([]game.Participant, 0, len(first))
	for id := range first {
		members = append(members, game.Participant{ID: id, Name: cm.displayNameLocked(roomID, id)})
	}
	sort.Slice(members, func(i, j int) bool {
		ti, tj := first[members[i].ID], first[members[j].ID]
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return members[i].ID < members[j].ID
	})
	return members
}

// DisplayName returns the last name a participant used in the room, or the
// ID when none is known.
func (cm *ConnectionManager) DisplayName(roomID, participantID string) string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.displayNameLocked(roomID, participantID)
}

func (cm *ConnectionManager) displayNameLocked(roomID, participantID string) string {
	if name, ok := cm.names[roomID][participantID]; ok && name != "" {
		return name
	}
	return participantID
}

// PublishState queues a full state push for the room.
func (cm *ConnectionManager) PublishState(roomID string, state game.PublicState) {
	cm.enqueue(roomID, "", newEnvelope(roomID, TypeState, state))
}

// PublishEvent queues a cue for the room.
func (cm *ConnectionManager) PublishEvent(roomID string, ev game.Event) {
	cm.enqueue(roomID, "", newEnvelope(roomID, string(ev.Type), ev.Data))
}

// AddChatMessage queues a game-log entry for the room.
func (cm *ConnectionManager) AddChatMessage(roomID string, msg game.ChatMessage) {
	cm.enqueue(roomID, "", newEnvelope(roomID, TypeChat, ChatData{
		ChatMessage: msg,
		Name:        cm.DisplayName(roomID, msg.ID),
		Timestamp:   time.Now().UnixMilli(),
	}))
}

// SendToParticipant queues a message for one participant's connections.
func (cm *ConnectionManager) SendToParticipant(roomID, participantID string, env *Envelope) {
	cm.enqueue(roomID, participantID, env)
}

func (cm *ConnectionManager) enqueue(roomID, participantID string, env *Envelope) {
	select {
	case cm.broadcastCh <- BroadcastMessage{RoomID: roomID, Envelope: env, ParticipantID: participantID}:
	default:
		log.Warn().Str("room_id", roomID).Str("type", env.Type).Msg("broadcast channel full, dropping message")
	}
}

// handleBroadcast marshals once and delivers without blocking. Sends happen
// under the read lock so they cannot race with unregisterConnection closing
// a Send channel.
func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	data, err := json.Marshal(message.Envelope)
	if err != nil {
		log.Error().Err(err).Str("type", message.Envelope.Type).Msg("failed to marshal envelope for broadcast")
		return
	}

	var (
		sent int
		slow []*Connection
	)
	cm.mu.RLock()
	for conn := range cm.roomConnections[message.RoomID] {
		if message.ParticipantID != "" && conn.ParticipantID != message.ParticipantID {
			continue
		}
		select {
		case conn.Send <- data:
			sent++
		default:
			slow = append(slow, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range slow {
		log.Warn().
			Str("connection_id", conn.ID).
			Str("participant_id", conn.ParticipantID).
			Msg("connection send buffer full, closing connection")
		// The leave waits on the room's session lock, which must not stall
		// broadcasts for every other room.
		if cm.removeConnection(conn) {
			go cm.notifyLeave(conn.RoomID, conn.ParticipantID)
		}
		if conn.Conn != nil {
			conn.Conn.Close()
		}
	}

	log.Debug().
		Str("type", message.Envelope.Type).
		Str("room_id", message.RoomID).
		Int("connections", sent).
		Msg("envelope broadcasted")
}

// ConnectionStats summarizes open connections.
type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	ActiveRooms      int            `json:"active_rooms"`
	RoomConnections  map[string]int `json:"room_connections"`
}

func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{RoomConnections: make(map[string]int, len(cm.roomConnections))}
	for roomID, connections := range cm.roomConnections {
		stats.TotalConnections += len(connections)
		stats.RoomConnections[roomID] = len(connections)
	}
	stats.ActiveRooms = len(cm.roomConnections)
	return stats
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		_ = c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
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

		if c.Manager.handler != nil {
			c.Manager.handler.HandleMessage(c.ctx, c, message)
		}
		_ = c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

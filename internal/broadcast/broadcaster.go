package broadcast

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/crowdcast/internal/metrics"
)

const (
	commandTimeout = 5 * time.Second  // actor command timeout
	stopTimeout    = 10 * time.Second // graceful shutdown timeout
)

type roomClients map[*websocket.Conn]*clientWriter

// broadcasterCmd is the command interface for the Broadcaster actor.
type broadcasterCmd interface{ isBroadcasterCmd() }

type baseBroadcasterCmd struct{}

func (baseBroadcasterCmd) isBroadcasterCmd() {}

type registerCmd struct {
	baseBroadcasterCmd
	roomCode     string
	connection   *websocket.Conn
	errorChannel chan error
}

type unregisterCmd struct {
	baseBroadcasterCmd
	roomCode   string
	connection *websocket.Conn
}

type broadcastCmd struct {
	baseBroadcasterCmd
	roomCode string
	data     []byte
}

type sendToCmd struct {
	baseBroadcasterCmd
	roomCode   string
	connection *websocket.Conn
	data       []byte
}

type clientCountCmd struct {
	baseBroadcasterCmd
	roomCode     string
	replyChannel chan int
}

type stopCmd struct {
	baseBroadcasterCmd
}

// Broadcaster owns the room membership registry and fans messages out to
// every client registered under a room code.
type Broadcaster struct {
	cmdCh             chan broadcasterCmd
	clock             clockwork.Clock
	rooms             map[string]roomClients
	done              chan struct{}
	stopTimeout       time.Duration
	maxClientsPerRoom int
}

// NewBroadcaster creates the broadcaster and starts its actor goroutine.
// maxClientsPerRoom limits connections per room (prevents resource exhaustion).
func NewBroadcaster(clock clockwork.Clock, maxClientsPerRoom int) *Broadcaster {
	b := &Broadcaster{
		cmdCh:             make(chan broadcasterCmd, 256),
		clock:             clock,
		rooms:             make(map[string]roomClients),
		done:              make(chan struct{}),
		stopTimeout:       stopTimeout,
		maxClientsPerRoom: maxClientsPerRoom,
	}
	go b.run()
	return b
}

// Register adds a connection to a room, creating the room entry if absent.
// Returns an error only if the room is full.
func (b *Broadcaster) Register(roomCode string, conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	b.cmdCh <- registerCmd{roomCode: roomCode, connection: conn, errorChannel: errCh}

	// Timeout prevents blocking forever if the actor is stuck
	timer := b.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.Chan():
		return fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// Unregister removes a connection from a room.
func (b *Broadcaster) Unregister(roomCode string, conn *websocket.Conn) {
	b.cmdCh <- unregisterCmd{roomCode: roomCode, connection: conn}
}

// Broadcast delivers an event to every client currently in the room.
// Per-recipient failures never prevent delivery to the remaining recipients.
func (b *Broadcaster) Broadcast(roomCode string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal broadcast message", "room_code", roomCode, "error", err)
		return
	}
	b.cmdCh <- broadcastCmd{roomCode: roomCode, data: data}
}

// SendTo delivers an event to a single client in the room. Used for
// sender-scoped error replies so they share the connection's writer.
func (b *Broadcaster) SendTo(roomCode string, conn *websocket.Conn, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal reply message", "room_code", roomCode, "error", err)
		return
	}
	b.cmdCh <- sendToCmd{roomCode: roomCode, connection: conn, data: data}
}

// ClientCount returns the number of connected clients for a room.
// Returns -1 if the command times out.
func (b *Broadcaster) ClientCount(roomCode string) int {
	replyCh := make(chan int, 1)
	b.cmdCh <- clientCountCmd{roomCode: roomCode, replyChannel: replyCh}

	timer := b.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("ClientCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop shuts down the broadcaster, closing all client connections.
// Blocks until the actor goroutine has exited or the timeout is reached.
func (b *Broadcaster) Stop() {
	b.cmdCh <- stopCmd{}

	timeout := b.clock.NewTimer(b.stopTimeout)
	defer timeout.Stop()

	select {
	case <-b.done:
		slog.Info("Broadcaster stopped gracefully")
	case <-timeout.Chan():
		slog.Warn("Broadcaster stop timeout exceeded, forcing exit", "timeout", b.stopTimeout)
		metrics.BroadcasterStopTimeoutsTotal.Inc()
		close(b.done)
	}
}

func (b *Broadcaster) run() {
	defer close(b.done)

	for cmd := range b.cmdCh {
		switch c := cmd.(type) {
		case registerCmd:
			b.handleRegister(c)
		case unregisterCmd:
			b.handleUnregister(c)
		case broadcastCmd:
			b.handleBroadcast(c)
		case sendToCmd:
			b.handleSendTo(c)
		case clientCountCmd:
			c.replyChannel <- len(b.rooms[c.roomCode])
		case stopCmd:
			b.handleStop()
			return
		default:
			slog.Warn("Broadcaster received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (b *Broadcaster) handleRegister(c registerCmd) {
	clients, exists := b.rooms[c.roomCode]
	if !exists {
		clients = make(roomClients)
		b.rooms[c.roomCode] = clients
	}

	if len(clients) >= b.maxClientsPerRoom {
		slog.Warn("Rejecting client: room full", "room_code", c.roomCode, "max_clients", b.maxClientsPerRoom)
		c.connection.Close()
		c.errorChannel <- fmt.Errorf("max clients per room (%d) reached", b.maxClientsPerRoom)
		return
	}

	clients[c.connection] = newClientWriter(c.connection, b.clock)

	metrics.BroadcasterActiveRooms.Set(float64(len(b.rooms)))
	metrics.BroadcasterConnectedClients.Inc()

	slog.Debug("Client registered", "room_code", c.roomCode, "total_clients", len(clients))
	c.errorChannel <- nil
}

func (b *Broadcaster) handleUnregister(c unregisterCmd) {
	clients, exists := b.rooms[c.roomCode]
	if !exists {
		return
	}

	cw, exists := clients[c.connection]
	if !exists {
		return
	}

	cw.stop()
	delete(clients, c.connection)
	metrics.BroadcasterConnectedClients.Dec()

	if len(clients) == 0 {
		delete(b.rooms, c.roomCode)
		metrics.BroadcasterActiveRooms.Set(float64(len(b.rooms)))
		slog.Info("Last client left room", "room_code", c.roomCode)
	} else {
		slog.Debug("Client unregistered", "room_code", c.roomCode, "remaining_clients", len(clients))
	}
}

func (b *Broadcaster) handleBroadcast(c broadcastCmd) {
	clients, exists := b.rooms[c.roomCode]
	if !exists {
		return
	}

	// Single pass over the current membership; a full send buffer marks the
	// client for eviction but never blocks delivery to the others.
	var slow []*websocket.Conn
	for conn, writer := range clients {
		select {
		case writer.sendChannel <- c.data:
		default:
			slow = append(slow, conn)
		}
	}

	for _, conn := range slow {
		slog.Warn("Disconnecting slow client", "room_code", c.roomCode)
		metrics.BroadcasterSlowClientsEvicted.Inc()
		b.handleUnregister(unregisterCmd{roomCode: c.roomCode, connection: conn})
	}
}

func (b *Broadcaster) handleSendTo(c sendToCmd) {
	writer, exists := b.rooms[c.roomCode][c.connection]
	if !exists {
		return
	}

	select {
	case writer.sendChannel <- c.data:
	default:
		slog.Warn("Reply dropped: client send buffer full", "room_code", c.roomCode)
	}
}

func (b *Broadcaster) handleStop() {
	totalClients := 0
	for _, clients := range b.rooms {
		totalClients += len(clients)
	}

	slog.Info("Broadcaster shutting down", "rooms", len(b.rooms), "total_clients", totalClients)

	for roomCode, clients := range b.rooms {
		for _, cw := range clients {
			cw.stopGraceful("Server shutting down")
		}
		delete(b.rooms, roomCode)
	}
	metrics.BroadcasterActiveRooms.Set(0)

	slog.Info("Broadcaster shutdown complete", "disconnected_clients", totalClients)
}

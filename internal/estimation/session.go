package estimation

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// SessionBroadcaster is the registry surface a session needs.
type SessionBroadcaster interface {
	Register(roomCode string, conn *websocket.Conn) error
	Unregister(roomCode string, conn *websocket.Conn)
	Broadcast(roomCode string, event any)
	SendTo(roomCode string, conn *websocket.Conn, event any)
	ClientCount(roomCode string) int
}

// Session is one authenticated participant's WebSocket connection to a room.
// It owns the read loop; all writes go through the broadcaster's per-client
// writer, including sender-scoped replies.
type Session struct {
	roomCode    string
	roomID      uuid.UUID
	userID      uuid.UUID
	conn        *websocket.Conn
	broadcaster SessionBroadcaster
	dispatcher  *Dispatcher
	log         *slog.Logger
}

func NewSession(roomCode string, roomID, userID uuid.UUID, conn *websocket.Conn, broadcaster SessionBroadcaster, dispatcher *Dispatcher) *Session {
	return &Session{
		roomCode:    roomCode,
		roomID:      roomID,
		userID:      userID,
		conn:        conn,
		broadcaster: broadcaster,
		dispatcher:  dispatcher,
		log:         slog.With("room_code", roomCode, "user_id", userID.String()),
	}
}

func (s *Session) RoomCode() string { return s.roomCode }

func (s *Session) RoomID() uuid.UUID { return s.roomID }

func (s *Session) UserID() uuid.UUID { return s.userID }

// Reply sends an event to this participant only.
func (s *Session) Reply(event any) {
	s.broadcaster.SendTo(s.roomCode, s.conn, event)
}

// Run registers the connection and drives the read loop until the client
// leaves, disconnects, or ctx is cancelled. Always broadcasts the departure
// on the way out.
func (s *Session) Run(ctx context.Context) error {
	if err := s.broadcaster.Register(s.roomCode, s.conn); err != nil {
		s.log.Warn("Session rejected", "error", err)
		_ = s.conn.Close()
		return err
	}

	// Closing the connection is the only way to unblock ReadMessage
	stop := context.AfterFunc(ctx, func() { _ = s.conn.Close() })
	defer stop()

	s.log.Info("Session started")

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("Session read error", "error", err)
			}
			break
		}

		if leave := s.dispatcher.Dispatch(ctx, s, raw); leave {
			break
		}
	}

	s.broadcaster.Unregister(s.roomCode, s.conn)
	count := s.broadcaster.ClientCount(s.roomCode)
	if count >= 0 {
		s.broadcaster.Broadcast(s.roomCode, NewUserLeft(s.userID.String(), count))
	}

	s.log.Info("Session ended")
	return nil
}

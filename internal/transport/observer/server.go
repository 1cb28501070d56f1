package observer

import (
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"fogbank/internal/protocol"
)

// Server fans the per-tick frame out to subscribed websocket observers. It
// is the in-process consumer of the sampling cache: the tick loop hands it
// one encoded frame per tick and slow observers miss frames rather than
// stalling anything.
type Server struct {
	log     *log.Logger
	welcome []byte

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu       sync.Mutex
	sessions map[uint64]chan []byte
}

func NewServer(logger *log.Logger, welcome []byte) *Server {
	return &Server{
		log:     logger,
		welcome: welcome,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		sessions: make(map[uint64]chan []byte),
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first, on the current version.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil || base.Type != protocol.TypeSubscribe || base.ProtocolVersion != protocol.Version {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"),
				time.Now().Add(time.Second))
			return
		}

		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, s.welcome); err != nil {
			return
		}

		id := s.nextID.Add(1)
		out := make(chan []byte, 4)
		s.mu.Lock()
		s.sessions[id] = out
		s.mu.Unlock()
		s.log.Printf("observer O%d subscribed", id)

		done := make(chan struct{})

		// Writer goroutine.
		go func() {
			defer close(done)
			for b := range out {
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return
				}
			}
		}()

		// Reader loop: observers send nothing after the handshake; we only
		// watch for the close.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		// Unregister under the lock before closing: Broadcast sends while
		// holding it, so no send can race the close.
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		close(out)
		<-done
		s.log.Printf("observer O%d gone", id)
	}
}

// Broadcast hands the frame to every session, keeping only the latest when a
// session's buffer is full.
func (s *Server) Broadcast(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, out := range s.sessions {
		sendLatest(out, frame)
	}
}

func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}

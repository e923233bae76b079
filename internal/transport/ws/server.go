// Package ws exposes the simulation to the visualization front-end
// over a websocket: HELLO/WELCOME handshake, then commands in and
// tick reports/snapshots out.
package ws

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"dronegrid/internal/protocol"
	"dronegrid/internal/sim/world"
)

const runTicksMax = 10000

type Server struct {
	log      *log.Logger
	upgrader websocket.Upgrader

	// The world is single-threaded by design; the mutex serializes
	// viewer connections against it.
	mu    sync.Mutex
	world *world.World
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if !s.handshake(conn) {
			return
		}

		for {
			_ = conn.SetReadDeadline(time.Now().Add(10 * time.Minute))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeCmd {
				s.writeError(conn, protocol.ErrProtoBadRequest, "expected CMD")
				continue
			}
			var cmd protocol.CmdMsg
			if err := json.Unmarshal(msg, &cmd); err != nil || cmd.ProtocolVersion != protocol.Version {
				s.writeError(conn, protocol.ErrProtoBadRequest, "bad CMD payload")
				continue
			}
			if err := s.execute(conn, cmd); err != nil {
				return
			}
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) bool {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return false
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"),
			time.Now().Add(time.Second))
		return false
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil || hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad HELLO"),
			time.Now().Add(time.Second))
		return false
	}

	s.mu.Lock()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		WorldParams:     s.world.Params(),
		Tick:            s.world.CurrentTick(),
	}
	s.mu.Unlock()
	return s.writeJSON(conn, welcome) == nil
}

// execute runs one viewer command. A returned error tears the
// connection down; command-level failures go back as ERROR messages.
func (s *Server) execute(conn *websocket.Conn, cmd protocol.CmdMsg) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch cmd.Op {
	case protocol.OpStep:
		rep, err := s.world.Step()
		if err != nil {
			return s.reportError(conn, err)
		}
		return s.writeJSON(conn, tickMsg(rep))

	case protocol.OpRun:
		n := cmd.Ticks
		if n <= 0 {
			n = 1
		}
		if n > runTicksMax {
			n = runTicksMax
		}
		reports, err := s.world.Run(n)
		for _, rep := range reports {
			if werr := s.writeJSON(conn, tickMsg(rep)); werr != nil {
				return werr
			}
		}
		if err != nil {
			return s.reportError(conn, err)
		}
		return nil

	case protocol.OpPause:
		return s.reportError(conn, s.world.Pause())

	case protocol.OpResume:
		return s.reportError(conn, s.world.Resume())

	case protocol.OpReset:
		if err := s.world.Reset(); err != nil {
			return s.reportError(conn, err)
		}
		return s.writeSnapshot(conn)

	case protocol.OpSnapshot:
		return s.writeSnapshot(conn)

	case protocol.OpStop:
		s.world.Stop()
		return nil

	default:
		return s.writeError(conn, protocol.ErrBadCommand, "unknown op: "+cmd.Op)
	}
}

func (s *Server) writeSnapshot(conn *websocket.Conn) error {
	return s.writeJSON(conn, protocol.SnapshotMsg{
		Type:            protocol.TypeSnapshot,
		ProtocolVersion: protocol.Version,
		Tick:            s.world.CurrentTick(),
		Grid:            s.world.GridSnapshot(),
		Registry:        s.world.RegistrySnapshot(),
	})
}

func (s *Server) reportError(conn *websocket.Conn, err error) error {
	if err == nil {
		return nil
	}
	code := protocol.ErrInternal
	if errors.Is(err, world.ErrStopped) {
		code = protocol.ErrStopped
	}
	return s.writeError(conn, code, err.Error())
}

func (s *Server) writeError(conn *websocket.Conn, code, detail string) error {
	return s.writeJSON(conn, protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Detail:          detail,
	})
}

func (s *Server) writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		if s.log != nil {
			s.log.Printf("ws write: %v", err)
		}
		return err
	}
	return nil
}

func tickMsg(rep protocol.TickReport) protocol.TickMsg {
	return protocol.TickMsg{
		Type:            protocol.TypeTick,
		ProtocolVersion: protocol.Version,
		TickReport:      rep,
	}
}

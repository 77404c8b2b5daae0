package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"tilerealm.gg/internal/protocol"
	"tilerealm.gg/internal/sim/zone"
)

const (
	handshakeWait = 5 * time.Second
	writeWait     = 5 * time.Second
	readWait      = 60 * time.Second

	// Inbound message budget per connection. A 20 Hz client sending one
	// intent per tick sits well under this.
	msgRate  = 40
	msgBurst = 80

	outBuffer = 64
)

type Server struct {
	zone *zone.Zone
	log  *zap.SugaredLogger

	upgrader websocket.Upgrader
}

func NewServer(z *zone.Zone, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Server{
		zone: z,
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
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

		participantID, out := s.handshake(conn)
		if participantID == "" {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine. A closed out channel means the zone removed
		// this participant (disconnect or kick).
		go func() {
			defer conn.Close()
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		limiter := rate.NewLimiter(msgRate, msgBurst)

		// Reader loop: decode intents and hand them to the zone inbox.
		// Nothing here touches simulation state directly.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readWait))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			if !limiter.Allow() {
				continue
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}

			var kind zone.IntentKind
			switch base.Type {
			case protocol.TypeMove:
				kind = zone.IntentMove
			case protocol.TypeFace:
				kind = zone.IntentFace
			default:
				continue
			}
			var in protocol.IntentMsg
			if err := json.Unmarshal(msg, &in); err != nil {
				continue
			}
			s.zone.Inbox() <- zone.IntentEnvelope{
				ParticipantID: participantID,
				Intent:        zone.Intent{Kind: kind, X: in.X, Y: in.Y, Dir: in.D},
			}
		}

		s.zone.Leave() <- zone.LeaveRequest{ID: participantID, Out: out}
	}
}

func (s *Server) handshake(conn *websocket.Conn) (participantID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeWait))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected hello"),
			time.Now().Add(time.Second))
		return "", nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}
	if hello.Name == "" {
		hello.Name = "player"
	}

	out = make(chan []byte, outBuffer)

	// Reconnect with a resume token re-attaches to the live participant.
	var resp zone.JoinResponse
	if hello.Resume != "" {
		respCh := make(chan zone.JoinResponse, 1)
		s.zone.Attach() <- zone.AttachRequest{
			Resume:    hello.Resume,
			SessionID: uuid.NewString(),
			Out:       out,
			Resp:      respCh,
		}
		resp = <-respCh
	}
	if !resp.OK {
		respCh := make(chan zone.JoinResponse, 1)
		s.zone.Join() <- zone.JoinRequest{
			Name:      hello.Name,
			Map:       hello.Map,
			SessionID: uuid.NewString(),
			Resume:    uuid.NewString(),
			Out:       out,
			Resp:      respCh,
		}
		resp = <-respCh
	}
	if !resp.OK {
		return "", nil
	}

	if err := writeJSON(conn, resp.Welcome); err != nil {
		return "", nil
	}
	s.log.Infow("session started", "participant", resp.Welcome.ID, "name", hello.Name, "map", resp.Welcome.Map)
	return resp.Welcome.ID, out
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, b)
}

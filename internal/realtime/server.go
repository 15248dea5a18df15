package realtime

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/angelmondragon/parcelhub-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/parcelhub-backend/pkg/errors"
	"github.com/angelmondragon/parcelhub-backend/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	actionJoin  = "join"
	actionLeave = "leave"

	eventJoined = "joined"
	eventLeft   = "left"
	eventError  = "error"
)

type roomAuthorizer interface {
	CanJoin(ctx context.Context, actor orders.Actor, room string) error
}

// clientMessage is what a client may send.
type clientMessage struct {
	Action string `json:"action"`
	Room   string `json:"room"`
}

// Server upgrades authenticated requests and runs the per-connection pumps.
type Server struct {
	registry   *Registry
	authorizer roomAuthorizer
	upgrader   websocket.Upgrader
	logg       *logger.Logger
}

// NewServer builds a websocket server. An origin list of "*" accepts any origin.
func NewServer(registry *Registry, authorizer roomAuthorizer, allowedOrigins []string, logg *logger.Logger) (*Server, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry required")
	}
	if authorizer == nil {
		return nil, fmt.Errorf("room authorizer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Server{
		registry:   registry,
		authorizer: authorizer,
		logg:       logg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}, nil
}

// Serve upgrades the request for an already authenticated actor and blocks until the
// connection closes. User-addressed events arrive without joining any room.
func (s *Server) Serve(w http.ResponseWriter, r *http.Request, actor orders.Actor) error {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := NewClient(actor.UserID, actor.Role)
	s.registry.Register(client)

	ctx := s.logg.WithFields(context.WithoutCancel(r.Context()), map[string]any{
		"client_id": client.ID,
		"user_id":   actor.UserID.String(),
		"role":      actor.Role.String(),
	})
	s.logg.Info(ctx, "realtime client connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.writePump(conn, client)
	}()
	s.readPump(ctx, conn, client, actor)

	s.registry.Deregister(client)
	<-done
	s.logg.Info(ctx, "realtime client disconnected")
	return nil
}

func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, client *Client, actor orders.Actor) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logCtx := s.logg.WithField(ctx, "error", err.Error())
				s.logg.Warn(logCtx, "realtime read failed")
			}
			return
		}
		s.handle(ctx, client, actor, msg)
	}
}

func (s *Server) handle(ctx context.Context, client *Client, actor orders.Actor, msg clientMessage) {
	room := strings.TrimSpace(msg.Room)
	switch strings.ToLower(strings.TrimSpace(msg.Action)) {
	case actionJoin:
		if err := s.authorizer.CanJoin(ctx, actor, room); err != nil {
			s.reply(client, Event{Name: eventError, Room: room, Data: errorPayload(err)})
			return
		}
		s.registry.Join(client, room)
		s.reply(client, Event{Name: eventJoined, Room: room})
	case actionLeave:
		s.registry.Leave(client, room)
		s.reply(client, Event{Name: eventLeft, Room: room})
	default:
		s.reply(client, Event{Name: eventError, Data: map[string]string{"message": "unknown action"}})
	}
}

func (s *Server) reply(client *Client, evt Event) {
	select {
	case client.send <- evt:
	default:
	}
}

func (s *Server) writePump(conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case evt, ok := <-client.Outbound():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func errorPayload(err error) map[string]string {
	if typed := pkgerrors.As(err); typed != nil {
		return map[string]string{"code": string(typed.Code()), "message": typed.Message()}
	}
	return map[string]string{"message": "request failed"}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := map[string]struct{}{}
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(origin, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.TrimRight(origin, "/")]
		return ok
	}
}

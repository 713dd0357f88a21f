// Package server is the WebSocket gateway: it owns the live-match registry,
// translates client messages into match operations, and relays match events
// back over the participants' connections.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/astralis-game/server/internal/config"
	"github.com/astralis-game/server/internal/constellation"
	"github.com/astralis-game/server/internal/grid"
	"github.com/astralis-game/server/internal/match"
	"github.com/astralis-game/server/internal/models"
	"github.com/astralis-game/server/internal/rules"
)

const writeTimeout = 5 * time.Second

// Server routes websocket clients to their matches.
type Server struct {
	cfg     *config.Config
	catalog *constellation.Catalog
	store   *MatchStore
	log     *logrus.Entry
}

func New(cfg *config.Config, catalog *constellation.Catalog) *Server {
	return &Server{
		cfg:     cfg,
		catalog: catalog,
		store:   NewMatchStore(),
		log:     logrus.WithField("component", "server"),
	}
}

// RegisterRoutes builds the HTTP handler.
func (s *Server) RegisterRoutes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.websocketHandler)
	return s.corsMiddleware(mux)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientMessage is one inbound websocket frame.
type ClientMessage struct {
	Type          string    `json:"type"` // create | join | start | move | kick
	MatchID       uuid.UUID `json:"matchId,omitempty"`
	ParticipantID uuid.UUID `json:"participantId,omitempty"`

	// Placement fields for "move".
	Row              int      `json:"row"`
	Col              int      `json:"col"`
	Card             string   `json:"card,omitempty"` // encoded constellation key
	RotatedClockwise int      `json:"rotatedClockwise"`
	Mirrored         bool     `json:"mirrored"`
	IgnoredRules     []string `json:"ignoredRules,omitempty"`
	Specials         []string `json:"specials,omitempty"`

	// Settings for "create". Nil uses the configured defaults.
	Settings *models.GameSettings `json:"settings,omitempty"`
}

// ServerMessage is one outbound websocket frame: an event, a direct result,
// or an error payload.
type ServerMessage struct {
	Type   string            `json:"type"`
	Event  *match.MatchEvent `json:"event,omitempty"`
	Result any               `json:"result,omitempty"`
	Error  *models.GameError `json:"error,omitempty"`
}

func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("userId"))
	if err != nil {
		http.Error(w, "userId query parameter must be a UUID", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		s.log.WithError(err).Warn("websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusGoingAway, "server closing websocket")

	log := s.log.WithField("user", userID)
	log.Info("client connected")

	ctx := r.Context()
	var seated *seat
	defer func() {
		if seated != nil {
			seated.match.HandleDisconnect(seated.participantID)
		}
		log.Info("client disconnected")
	}()

	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return
		}
		if reply, newSeat := s.dispatch(conn, userID, msg, seated); reply != nil {
			if newSeat != nil {
				seated = newSeat
			}
			if err := writeMessage(ctx, conn, *reply); err != nil {
				log.WithError(err).Warn("write failed")
				return
			}
		}
	}
}

// seat ties a connection to its participant in one match.
type seat struct {
	match         *match.Match
	participantID uuid.UUID
}

// dispatch executes one client message and returns the direct reply, plus
// the seat if the message seated the user in a match.
func (s *Server) dispatch(conn *websocket.Conn, userID uuid.UUID, msg ClientMessage, seated *seat) (*ServerMessage, *seat) {
	switch msg.Type {
	case "create":
		m := s.createMatch(userID, msg.Settings)
		return &ServerMessage{Type: "created", Result: m.State}, nil

	case "join":
		m := s.store.Get(msg.MatchID)
		if m == nil {
			return errorMessage(models.NotFound(models.ErrMatchNotFound, "no such match")), nil
		}
		p, gameErr := m.Join(userID)
		if gameErr != nil {
			return errorMessage(gameErr), nil
		}
		m.HandleConnect(p.ID, conn)
		return &ServerMessage{Type: "joined", Result: p}, &seat{match: m, participantID: p.ID}

	case "start":
		m := s.store.Get(msg.MatchID)
		if m == nil {
			return errorMessage(models.NotFound(models.ErrMatchNotFound, "no such match")), nil
		}
		if gameErr := m.Start(userID); gameErr != nil {
			return errorMessage(gameErr), nil
		}
		return &ServerMessage{Type: "started", Result: m.State}, nil

	case "kick":
		m := s.store.Get(msg.MatchID)
		if m == nil {
			return errorMessage(models.NotFound(models.ErrMatchNotFound, "no such match")), nil
		}
		if gameErr := m.Kick(userID, msg.ParticipantID); gameErr != nil {
			return errorMessage(gameErr), nil
		}
		return &ServerMessage{Type: "kicked"}, nil

	case "move":
		if seated == nil {
			return errorMessage(models.NotFound(models.ErrParticipantNotFound, "join a match before moving")), nil
		}
		req, gameErr := buildMoveRequest(seated.participantID, msg)
		if gameErr != nil {
			return errorMessage(gameErr), nil
		}
		result, gameErr := seated.match.MakeMove(req)
		if gameErr != nil {
			return errorMessage(gameErr), nil
		}
		return &ServerMessage{Type: "moved", Result: result}, nil

	default:
		return errorMessage(models.Validation(models.ErrInternal, "unknown message type")), nil
	}
}

// createMatch builds a match with defaults filled in and wires its
// broadcasts to the participants' connections.
func (s *Server) createMatch(userID uuid.UUID, settings *models.GameSettings) *match.Match {
	if settings == nil {
		settings = &models.GameSettings{}
	}
	if settings.MapSize == 0 {
		settings.MapSize = s.cfg.DefaultMapSize
	}
	if settings.MaxTurns == 0 {
		settings.MaxTurns = s.cfg.DefaultMaxTurns
	}
	if settings.TurnTimeMS == 0 {
		settings.TurnTimeMS = s.cfg.DefaultTurnTimeMS
	}

	m := match.New(userID, settings, s.catalog)
	m.BroadcastFn = func(ev match.MatchEvent) {
		for _, p := range m.Participants {
			if p.Conn != nil {
				s.writeEvent(p.Conn, ev)
			}
		}
	}
	m.BroadcastToPlayerFn = func(participantID uuid.UUID, ev match.MatchEvent) {
		for _, p := range m.Participants {
			if p.ID == participantID && p.Conn != nil {
				s.writeEvent(p.Conn, ev)
			}
		}
	}
	s.store.Add(m)
	s.log.WithField("match", m.State.ID).Info("match created")
	return m
}

func (s *Server) writeEvent(conn *websocket.Conn, ev match.MatchEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := writeMessage(ctx, conn, ServerMessage{Type: "event", Event: &ev}); err != nil {
		s.log.WithError(err).WithField("event", ev.Type).Debug("event write failed")
	}
}

func writeMessage(ctx context.Context, conn *websocket.Conn, msg ServerMessage) error {
	return wsjson.Write(ctx, conn, msg)
}

func errorMessage(gameErr *models.GameError) *ServerMessage {
	return &ServerMessage{Type: "error", Error: gameErr}
}

// buildMoveRequest decodes the wire placement into the engine's move shape.
func buildMoveRequest(participantID uuid.UUID, msg ClientMessage) (match.MoveRequest, *models.GameError) {
	card, err := constellation.Decode(msg.Card)
	if err != nil {
		return match.MoveRequest{}, models.Validation(models.ErrPlacementRuleViolated, "malformed constellation key")
	}
	ignored := make([]rules.PlacementRuleType, len(msg.IgnoredRules))
	for i, name := range msg.IgnoredRules {
		ignored[i] = rules.PlacementRuleType(name)
	}
	specials := make([]models.SpecialType, len(msg.Specials))
	for i, name := range msg.Specials {
		specials[i] = models.SpecialType(name)
	}
	return match.MoveRequest{
		ParticipantID: participantID,
		Placement: rules.PlacementRequest{
			Target:        grid.Coord{Row: msg.Row, Col: msg.Col},
			Constellation: card,
			Transformation: grid.Transformation{
				RotatedClockwise: msg.RotatedClockwise,
				Mirrored:         msg.Mirrored,
			},
			IgnoredRules: ignored,
			Specials:     specials,
		},
	}, nil
}

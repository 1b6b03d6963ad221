// internal/transport/ws.go
package transport

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/sirupsen/logrus"

	"github.com/sigmahub/trivia-engine/internal/config"
	"github.com/sigmahub/trivia-engine/internal/engine"
	"github.com/sigmahub/trivia-engine/internal/models"
	"github.com/sigmahub/trivia-engine/internal/store"
)

// Server is the websocket and HTTP edge. It translates socket frames into
// action envelopes and leaves every game decision to the executor.
type Server struct {
	cfg      *config.Config
	log      *logrus.Logger
	hub      *SocketHub
	executor *engine.Executor
	games    *store.GameStore
}

// NewServer wires the transport edge.
func NewServer(cfg *config.Config, log *logrus.Logger, hub *SocketHub, executor *engine.Executor, games *store.GameStore) *Server {
	return &Server{cfg: cfg, log: log, hub: hub, executor: executor, games: games}
}

// Routes registers the HTTP surface on a mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /games", s.handleCreateGame)
	mux.HandleFunc("GET /games/resolve", s.handleResolveCode)
	mux.HandleFunc("GET /ws", s.handleWS)
}

type createGameRequest struct {
	Rounds []models.Round `json:"rounds"`
}

type createGameResponse struct {
	GameID   uuid.UUID `json:"gameId"`
	JoinCode string    `json:"joinCode"`
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed body", http.StatusBadRequest)
		return
	}
	if len(req.Rounds) == 0 {
		http.Error(w, "package has no rounds", http.StatusBadRequest)
		return
	}
	g, err := s.games.Create(r.Context(), req.Rounds)
	if err != nil {
		s.log.WithError(err).Error("transport: create game failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(createGameResponse{GameID: g.ID, JoinCode: g.JoinCode})
}

func (s *Server) handleResolveCode(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}
	gameID, err := s.games.Resolve(r.Context(), code)
	if err != nil {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]uuid.UUID{"gameId": gameID})
}

// handleWS upgrades the connection and pumps frames until the client goes
// away. Every inbound frame is one action; the game id comes from the
// connection, never from the frame.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	gameID, err := uuid.Parse(r.URL.Query().Get("gameId"))
	if err != nil {
		http.Error(w, "missing or malformed gameId", http.StatusBadRequest)
		return
	}
	userID, err := VerifyToken(s.cfg.JWTSecret, r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("transport: websocket accept failed")
		return
	}

	socketID, err := gonanoid.New()
	if err != nil {
		conn.Close(websocket.StatusInternalError, "socket id")
		return
	}
	sock := &wsSocket{
		id:       socketID,
		gameID:   gameID,
		conn:     conn,
		playerID: userID,
		role:     models.RoleSpectator,
	}
	s.hub.add(sock)

	log := s.log.WithFields(logrus.Fields{
		"gameId":   gameID,
		"socketId": socketID,
		"userId":   userID,
	})
	log.Info("transport: socket connected")

	defer func() {
		s.hub.remove(sock)
		conn.Close(websocket.StatusNormalClosure, "")
		s.disconnect(gameID, socketID, userID, log)
	}()

	s.readLoop(r.Context(), sock, log)
}

// frame is the client-facing action shape; the trusted fields are stamped
// server-side.
type frame struct {
	Type    models.ActionType `json:"type"`
	Payload json.RawMessage   `json:"payload,omitempty"`
}

func (s *Server) readLoop(ctx context.Context, sock *wsSocket, log *logrus.Entry) {
	for {
		_, data, err := sock.conn.Read(ctx)
		if err != nil {
			log.WithError(err).Debug("transport: socket closed")
			return
		}
		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			log.WithError(err).Debug("transport: malformed frame")
			continue
		}

		env := models.ActionEnvelope{
			Type:     f.Type,
			GameID:   sock.gameID,
			Payload:  f.Payload,
			SocketID: sock.id,
		}
		out, err := s.executor.Execute(ctx, env)
		if err != nil {
			// Already reported to this socket by the executor.
			continue
		}
		// The join path tells us who this socket became.
		if p, ok := out.Response.(*models.Player); ok && p != nil {
			sock.setIdentity(p.ID, p.Role)
		}
	}
}

// disconnect synthesizes the departure action for a dropped socket.
func (s *Server) disconnect(gameID uuid.UUID, socketID string, userID uuid.UUID, log *logrus.Entry) {
	payload, err := json.Marshal(map[string]uuid.UUID{"playerId": userID})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if _, err := s.executor.Execute(ctx, models.ActionEnvelope{
		Type:     models.ActionPlayerDisconnect,
		GameID:   gameID,
		Payload:  payload,
		SocketID: socketID,
	}); err != nil {
		log.WithError(err).Debug("transport: disconnect action failed")
	}
}

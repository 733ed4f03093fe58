// Package httpapi exposes the room operations over HTTP and upgrades
// the sync channel to WebSocket.
package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Nateight8/neolink-sub000/internal/clock"
	"github.com/Nateight8/neolink-sub000/internal/hub"
	"github.com/Nateight8/neolink-sub000/internal/obslog"
	"github.com/Nateight8/neolink-sub000/internal/room"
	"github.com/Nateight8/neolink-sub000/internal/rules"
	"github.com/Nateight8/neolink-sub000/pkg/roomdto"
)

const identityHeader = "X-User-Id"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type Server struct {
	rooms *room.Store
	hub   *hub.Hub
}

func NewServer(rooms *room.Store, h *hub.Hub) *Server {
	return &Server{rooms: rooms, hub: h}
}

// Router builds the gin engine with all room routes mounted.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.POST("/rooms", s.handleCreateRoom)
		api.GET("/rooms/:id", s.handleGetRoom)
		api.POST("/rooms/:id/join", s.handleJoin)
		api.POST("/rooms/:id/moves", s.handleMove)
		api.POST("/rooms/:id/resign", s.handleResign)
		api.POST("/rooms/:id/draw", s.handleOfferDraw)
		api.POST("/rooms/:id/abort", s.handleAbort)
		api.GET("/rooms/:id/ws", s.handleSync)
	}
	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleCreateRoom(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req roomdto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, roomdto.CodeBadRequest, "invalid request body")
		return
	}
	if req.TimeControl.BaseSeconds <= 0 {
		writeError(c, http.StatusBadRequest, roomdto.CodeBadRequest, "time control base must be positive")
		return
	}

	tc := clock.TimeControl{
		BaseSeconds:      req.TimeControl.BaseSeconds,
		IncrementSeconds: req.TimeControl.IncrementSeconds,
	}
	opts := room.CreateOptions{Color: req.Color, Rated: req.Rated}
	if req.Bot != nil {
		opts.Bot = &room.BotSeatRequest{Difficulty: req.Bot.Difficulty}
		// The bot fills the seat the creator does not take. "random" stays
		// unresolved here so the store's coin flip decides.
		switch strings.ToLower(strings.TrimSpace(req.Bot.Color)) {
		case "white":
			opts.Color = string(rules.Black)
		case "black":
			opts.Color = string(rules.White)
		case "", "random":
		default:
			writeError(c, http.StatusBadRequest, roomdto.CodeBadRequest, "bot color must be white, black or random")
			return
		}
	}

	rm, err := s.rooms.Create(c.Request.Context(), identity, tc, opts)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, roomdto.CreateRoomResponse{
		RoomID:  rm.ID,
		JoinURL: "/api/rooms/" + rm.ID + "/join",
		Status:  string(rm.Status),
		Creator: rm.Creator,
	})
}

func (s *Server) handleGetRoom(c *gin.Context) {
	rm, err := s.rooms.Get(c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, rm.Snapshot())
}

func (s *Server) handleJoin(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	rm, err := s.rooms.Join(c.Request.Context(), c.Param("id"), identity)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, rm.Snapshot())
}

func (s *Server) handleMove(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req roomdto.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, roomdto.CodeBadRequest, "invalid request body")
		return
	}
	intent := rules.MoveIntent{From: req.From, To: req.To, Promotion: req.Promotion}
	rm, err := s.rooms.SubmitMove(c.Request.Context(), c.Param("id"), identity, intent)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, rm.Snapshot())
}

func (s *Server) handleResign(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	rm, err := s.rooms.Resign(c.Request.Context(), c.Param("id"), identity)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, rm.Snapshot())
}

func (s *Server) handleOfferDraw(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	rm, err := s.rooms.OfferDraw(c.Request.Context(), c.Param("id"), identity)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, rm.Snapshot())
}

func (s *Server) handleAbort(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	rm, err := s.rooms.Abort(c.Request.Context(), c.Param("id"), identity)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, rm.Snapshot())
}

// handleSync registers the caller as a spectator unless they already
// hold a seat, then hands the upgraded connection to the hub. The first
// frame on the socket is always the current snapshot.
func (s *Server) handleSync(c *gin.Context) {
	identity := c.GetHeader(identityHeader)
	if identity == "" {
		identity = c.Query("identity")
	}
	if identity == "" {
		writeError(c, http.StatusUnauthorized, roomdto.CodeBadRequest, "identity is required")
		return
	}

	rm, err := s.rooms.Watch(c.Request.Context(), c.Param("id"), identity)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		obslog.L().Warn("ws_upgrade_failed", zap.String("room_id", rm.ID), zap.Error(err))
		return
	}
	s.hub.Subscribe(rm.ID, conn, rm.Snapshot())
}

func requireIdentity(c *gin.Context) (string, bool) {
	identity := c.GetHeader(identityHeader)
	if identity == "" {
		writeError(c, http.StatusUnauthorized, roomdto.CodeBadRequest, "missing "+identityHeader+" header")
		return "", false
	}
	return identity, true
}

func writeError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, roomdto.DomainError{Code: code, Message: message})
}

func writeDomainError(c *gin.Context, err error) {
	status, code := classify(err)
	writeError(c, status, code, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return http.StatusNotFound, roomdto.CodeRoomNotFound
	case errors.Is(err, room.ErrRoomFull):
		return http.StatusConflict, roomdto.CodeRoomFull
	case errors.Is(err, room.ErrRoomFinished):
		return http.StatusConflict, roomdto.CodeRoomFinished
	case errors.Is(err, room.ErrRoomNotReady):
		return http.StatusConflict, roomdto.CodeRoomNotReady
	case errors.Is(err, room.ErrNotAPlayer):
		return http.StatusForbidden, roomdto.CodeNotAPlayer
	case errors.Is(err, room.ErrNotYourTurn):
		return http.StatusConflict, roomdto.CodeNotYourTurn
	case errors.Is(err, room.ErrInvalidMove):
		return http.StatusUnprocessableEntity, roomdto.CodeInvalidMove
	case errors.Is(err, room.ErrNotCreator):
		return http.StatusForbidden, roomdto.CodeNotCreator
	case errors.Is(err, room.ErrTimeForfeit):
		return http.StatusConflict, roomdto.CodeTimeForfeit
	default:
		return http.StatusBadRequest, roomdto.CodeBadRequest
	}
}

package room

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Nateight8/neolink-sub000/internal/clock"
	"github.com/Nateight8/neolink-sub000/internal/obslog"
	"github.com/Nateight8/neolink-sub000/internal/rules"
	"github.com/Nateight8/neolink-sub000/pkg/roomdto"
)

// Broadcaster fans an authoritative snapshot out to every connection joined to
// a room. Rejections never reach it.
type Broadcaster interface {
	Broadcast(roomID string, snap *roomdto.Snapshot)
}

// Persister is the write-through durable store for live rooms.
type Persister interface {
	SaveRoom(ctx context.Context, r *Room) error
}

// Archiver records finished rooms once, outside the hot path shape.
type Archiver interface {
	SaveResult(ctx context.Context, r *Room) error
}

// MoveFinder produces a move for the automated seat. Implementations must
// always return a legal move within their budget; failures fall back to a
// random legal move inside the agent, never here.
type MoveFinder interface {
	RequestMove(ctx context.Context, fen string, historyUCI []string, difficulty int) (rules.MoveIntent, error)
}

type Options struct {
	Broadcaster Broadcaster
	Persister   Persister
	Archiver    Archiver
	Bot         MoveFinder
	Now         func() time.Time // test hook; defaults to time.Now
}

// CreateOptions shape the seat assignment at room creation.
type CreateOptions struct {
	Color string // "white", "black" or "" / "random"
	Rated bool
	Bot   *BotSeatRequest
}

type BotSeatRequest struct {
	Difficulty int
}

// Store owns every live room. Each room is guarded by its own mutex so all
// mutations of one room are serialized while different rooms proceed in
// parallel (single-writer discipline).
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*entry

	broadcaster Broadcaster
	persister   Persister
	archiver    Archiver
	bot         MoveFinder
	now         func() time.Time
}

type entry struct {
	mu        sync.Mutex
	room      *Room
	cancelBot context.CancelFunc
}

func NewStore(opts Options) *Store {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		rooms:       make(map[string]*entry),
		broadcaster: opts.Broadcaster,
		persister:   opts.Persister,
		archiver:    opts.Archiver,
		bot:         opts.Bot,
		now:         now,
	}
}

// Restore re-registers a previously persisted room, used on process start to
// resume live games from the durable store. A bot room restored on the bot's
// turn resumes the search immediately; otherwise it would wait forever for a
// move trigger that already happened before the restart.
func (s *Store) Restore(r *Room) {
	if r == nil || r.ID == "" {
		return
	}
	e := &entry{room: r.Clone()}
	s.mu.Lock()
	s.rooms[r.ID] = e
	s.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.room.Status != StatusOngoing || e.room.BotSeat == nil {
		return
	}
	sideToMove, err := e.room.SideToMove()
	if err != nil {
		obslog.L().Error("room_restore_error", zap.String("room_id", e.room.ID), zap.Error(err))
		return
	}
	if sideToMove == e.room.BotSeat.Color {
		s.dispatchBot(context.Background(), e)
	}
}

// Create allocates a room for creator. Human rooms start waiting; rooms with a
// bot seat have no waiting phase and go straight to ongoing.
func (s *Store) Create(ctx context.Context, creator string, tc clock.TimeControl, opts CreateOptions) (*Room, error) {
	creator = strings.TrimSpace(creator)
	if creator == "" {
		return nil, fmt.Errorf("creator identity required")
	}
	if tc.BaseSeconds <= 0 {
		return nil, fmt.Errorf("time control base must be positive")
	}
	if opts.Bot != nil && (opts.Bot.Difficulty < 1 || opts.Bot.Difficulty > 20) {
		return nil, fmt.Errorf("bot difficulty %d out of range 1-20", opts.Bot.Difficulty)
	}

	now := s.now()
	creatorColor := pickColor(opts.Color)

	r := &Room{
		ID:          uuid.NewString(),
		Status:      StatusWaiting,
		Creator:     creator,
		Players:     []Player{{Identity: creator, Color: creatorColor}},
		Spectators:  make(map[string]struct{}),
		Position:    rules.InitialFEN,
		TimeControl: tc,
		Rated:       opts.Rated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if opts.Bot != nil {
		botColor := creatorColor.Opponent()
		r.BotSeat = &BotSeat{Color: botColor, Difficulty: opts.Bot.Difficulty}
		r.Players = append(r.Players, Player{Identity: BotIdentity(r.ID), Color: botColor, Bot: true})
		r.Status = StatusOngoing
		r.Clocks = clock.NewState(tc, now)
	}

	e := &entry{room: r}
	s.mu.Lock()
	s.rooms[r.ID] = e
	s.mu.Unlock()

	e.mu.Lock()
	s.persist(ctx, r)
	snap := r.Snapshot()
	out := r.Clone()
	if r.Status == StatusOngoing && r.BotSeat.Color == rules.White {
		s.dispatchBot(ctx, e)
	}
	e.mu.Unlock()

	s.emit(r.ID, snap)
	obslog.L().Info("room_create",
		zap.String("room_id", r.ID),
		zap.String("creator", creator),
		zap.String("creator_color", string(creatorColor)),
		zap.Bool("bot", opts.Bot != nil),
		zap.Int("base_seconds", tc.BaseSeconds),
		zap.Int("increment_seconds", tc.IncrementSeconds),
	)
	return out, nil
}

// Join seats identity on the remaining color and starts the game. The clock
// window for white opens at join time.
func (s *Store) Join(ctx context.Context, roomID, identity string) (*Room, error) {
	identity = strings.TrimSpace(identity)
	e, err := s.entryFor(roomID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.room

	if r.Status.Terminal() {
		return nil, ErrRoomFinished
	}
	if _, ok := r.PlayerByIdentity(identity); ok {
		return r.Clone(), nil
	}
	if len(r.Players) >= 2 {
		return nil, ErrRoomFull
	}
	if identity == "" {
		return nil, fmt.Errorf("identity required")
	}

	now := s.now()
	remaining := rules.White
	if r.Players[0].Color == rules.White {
		remaining = rules.Black
	}
	delete(r.Spectators, identity)
	r.Players = append(r.Players, Player{Identity: identity, Color: remaining})
	r.Status = StatusOngoing
	r.Clocks = clock.NewState(r.TimeControl, now)
	r.UpdatedAt = now

	s.persist(ctx, r)
	s.emit(r.ID, r.Snapshot())
	obslog.L().Info("room_join",
		zap.String("room_id", r.ID),
		zap.String("identity", identity),
		zap.String("color", string(remaining)),
	)
	return r.Clone(), nil
}

// Watch registers identity as a spectator. Players are never demoted.
func (s *Store) Watch(ctx context.Context, roomID, identity string) (*Room, error) {
	identity = strings.TrimSpace(identity)
	e, err := s.entryFor(roomID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.room
	if identity != "" {
		if _, ok := r.PlayerByIdentity(identity); !ok {
			if r.Spectators == nil {
				r.Spectators = make(map[string]struct{})
			}
			r.Spectators[identity] = struct{}{}
			s.persist(ctx, r)
		}
	}
	return r.Clone(), nil
}

// Get returns a copy of the current authoritative state.
func (s *Store) Get(roomID string) (*Room, error) {
	e, err := s.entryFor(roomID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.room.Clone(), nil
}

// SubmitMove is the single mutation entry point for moves. It sequences role
// resolution, the clock-expiry check, legality, clock commit and terminal
// detection, then persists and broadcasts. Every rejection is side-effect-free.
func (s *Store) SubmitMove(ctx context.Context, roomID, identity string, intent rules.MoveIntent) (*Room, error) {
	e, err := s.entryFor(roomID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.room

	switch r.Status {
	case StatusOngoing:
	case StatusWaiting:
		return nil, ErrRoomNotReady
	default:
		return nil, ErrRoomFinished
	}

	role := Resolve(r, strings.TrimSpace(identity))
	if role.Kind != RolePlayer {
		return nil, ErrNotAPlayer
	}
	sideToMove, err := r.SideToMove()
	if err != nil {
		return nil, fmt.Errorf("derive side to move: %w", err)
	}
	if role.Color != sideToMove {
		return nil, ErrNotYourTurn
	}

	now := s.now()
	if r.Clocks.Expired(sideToMove, now) {
		winner, _ := r.PlayerByColor(sideToMove.Opponent())
		s.finish(ctx, e, Result{Status: ResultTimeForfeit, Winner: winner.Identity}, now)
		obslog.L().Info("room_forfeit",
			zap.String("room_id", r.ID),
			zap.String("flagged", string(sideToMove)),
			zap.String("winner", winner.Identity),
		)
		return nil, ErrTimeForfeit
	}

	res, err := rules.ApplyMove(r.Position, intent)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMove, err)
	}

	r.Position = res.FEN
	r.Clocks = clock.Commit(r.Clocks, sideToMove, now, r.TimeControl)
	r.MoveHistory = append(r.MoveHistory, MoveRecord{
		From:        strings.ToLower(strings.TrimSpace(intent.From)),
		To:          strings.ToLower(strings.TrimSpace(intent.To)),
		Promotion:   strings.ToLower(strings.TrimSpace(intent.Promotion)),
		SAN:         res.SAN,
		UCI:         res.UCI,
		Color:       sideToMove,
		Captured:    res.Captured,
		CommittedAt: now,
	})
	r.DrawOfferBy = ""
	r.UpdatedAt = now

	if res.Terminal != rules.TerminalNone {
		s.finish(ctx, e, resultFromTerminal(r, res.Terminal, sideToMove), now)
	} else {
		s.persist(ctx, r)
		s.emit(r.ID, r.Snapshot())
		if r.BotSeat != nil && r.BotSeat.Color == sideToMove.Opponent() {
			s.dispatchBot(ctx, e)
		}
	}

	obslog.L().Info("room_move",
		zap.String("room_id", r.ID),
		zap.String("identity", strings.TrimSpace(identity)),
		zap.String("uci", res.UCI),
		zap.String("san", res.SAN),
		zap.String("status", string(r.Status)),
	)
	return r.Clone(), nil
}

// Resign ends an ongoing room in favor of the opponent.
func (s *Store) Resign(ctx context.Context, roomID, identity string) (*Room, error) {
	e, err := s.entryFor(roomID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.room

	if r.Status != StatusOngoing {
		if r.Status == StatusWaiting {
			return nil, ErrRoomNotReady
		}
		return nil, ErrRoomFinished
	}
	role := Resolve(r, strings.TrimSpace(identity))
	if role.Kind != RolePlayer {
		return nil, ErrNotAPlayer
	}

	winner, _ := r.PlayerByColor(role.Color.Opponent())
	s.finish(ctx, e, Result{Status: ResultResignation, Winner: winner.Identity}, s.now())
	obslog.L().Info("room_resign",
		zap.String("room_id", r.ID),
		zap.String("resigner", strings.TrimSpace(identity)),
		zap.String("winner", winner.Identity),
	)
	return r.Clone(), nil
}

// OfferDraw records a draw offer; when both players have a pending offer the
// room ends drawn by agreement. Any committed move clears a pending offer.
func (s *Store) OfferDraw(ctx context.Context, roomID, identity string) (*Room, error) {
	e, err := s.entryFor(roomID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.room

	if r.Status != StatusOngoing {
		if r.Status == StatusWaiting {
			return nil, ErrRoomNotReady
		}
		return nil, ErrRoomFinished
	}
	identity = strings.TrimSpace(identity)
	role := Resolve(r, identity)
	if role.Kind != RolePlayer {
		return nil, ErrNotAPlayer
	}

	now := s.now()
	if r.DrawOfferBy != "" && r.DrawOfferBy != identity {
		s.finish(ctx, e, Result{Status: ResultDraw}, now)
		obslog.L().Info("room_draw_agreed", zap.String("room_id", r.ID))
		return r.Clone(), nil
	}
	r.DrawOfferBy = identity
	r.UpdatedAt = now
	s.persist(ctx, r)
	s.emit(r.ID, r.Snapshot())
	return r.Clone(), nil
}

// Abort cancels a waiting room. Only the creator may abort, and only before
// an opponent joins.
func (s *Store) Abort(ctx context.Context, roomID, identity string) (*Room, error) {
	e, err := s.entryFor(roomID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.room

	if r.Status != StatusWaiting {
		return nil, ErrRoomFinished
	}
	if strings.TrimSpace(identity) != r.Creator {
		return nil, ErrNotCreator
	}

	now := s.now()
	r.Status = StatusAborted
	r.Result = &Result{Status: ResultAbort}
	r.UpdatedAt = now
	if e.cancelBot != nil {
		e.cancelBot()
		e.cancelBot = nil
	}
	s.persist(ctx, r)
	s.emit(r.ID, r.Snapshot())
	obslog.L().Info("room_abort", zap.String("room_id", r.ID))
	return r.Clone(), nil
}

// finish performs the single waiting/ongoing → finished transition: result
// set once, pending bot search cancelled, state persisted, snapshot broadcast,
// archive written. Caller holds the entry lock.
func (s *Store) finish(ctx context.Context, e *entry, result Result, now time.Time) {
	r := e.room
	r.Status = StatusFinished
	r.Result = &result
	r.DrawOfferBy = ""
	r.UpdatedAt = now
	if e.cancelBot != nil {
		e.cancelBot()
		e.cancelBot = nil
	}
	s.persist(ctx, r)
	s.emit(r.ID, r.Snapshot())
	if s.archiver != nil {
		if err := s.archiver.SaveResult(ctx, r.Clone()); err != nil {
			obslog.L().Error("room_archive_error", zap.String("room_id", r.ID), zap.Error(err))
		}
	}
}

// dispatchBot launches one cancellable search for the bot seat. The result
// re-enters SubmitMove under the bot identity, so a stale or duplicate result
// fails the usual status and turn checks. Caller holds the entry lock.
func (s *Store) dispatchBot(ctx context.Context, e *entry) {
	if s.bot == nil {
		return
	}
	r := e.room
	seat := r.BotSeat
	if seat == nil || r.Status != StatusOngoing {
		return
	}
	if e.cancelBot != nil {
		e.cancelBot()
	}
	searchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancelBot = cancel

	roomID := r.ID
	fen := r.Position
	history := r.HistoryUCI()
	difficulty := seat.Difficulty

	go func() {
		defer cancel()
		intent, err := s.bot.RequestMove(searchCtx, fen, history, difficulty)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				obslog.L().Warn("bot_move_error", zap.String("room_id", roomID), zap.Error(err))
			}
			return
		}
		if _, err := s.SubmitMove(searchCtx, roomID, BotIdentity(roomID), intent); err != nil {
			// room finished or turn moved on while searching; discard
			obslog.L().Debug("bot_move_discarded", zap.String("room_id", roomID), zap.Error(err))
			return
		}
		obslog.L().Info("bot_move", zap.String("room_id", roomID), zap.String("uci", intent.UCI()))
	}()
}

func (s *Store) entryFor(roomID string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.rooms[strings.TrimSpace(roomID)]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrRoomNotFound
	}
	return e, nil
}

func (s *Store) persist(ctx context.Context, r *Room) {
	if s.persister == nil {
		return
	}
	if err := s.persister.SaveRoom(ctx, r.Clone()); err != nil {
		obslog.L().Error("room_persist_error", zap.String("room_id", r.ID), zap.Error(err))
	}
}

func (s *Store) emit(roomID string, snap *roomdto.Snapshot) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.Broadcast(roomID, snap)
}

func resultFromTerminal(r *Room, terminal rules.Terminal, mover rules.Color) Result {
	switch terminal {
	case rules.TerminalCheckmate:
		winner, _ := r.PlayerByColor(mover)
		return Result{Status: ResultCheckmate, Winner: winner.Identity}
	case rules.TerminalStalemate:
		return Result{Status: ResultStalemate}
	default:
		return Result{Status: ResultDraw}
	}
}

// pickColor honors an explicit choice and flips a crypto coin otherwise.
func pickColor(choice string) rules.Color {
	switch strings.ToLower(strings.TrimSpace(choice)) {
	case "white", "w":
		return rules.White
	case "black", "b":
		return rules.Black
	}
	if n, _ := rand.Int(rand.Reader, big.NewInt(2)); n != nil && n.Int64() == 0 {
		return rules.Black
	}
	return rules.White
}

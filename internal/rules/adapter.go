package rules

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// InitialFEN is the canonical starting position.
const InitialFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var (
	ErrIllegalMove     = errors.New("illegal move")
	ErrInvalidPosition = errors.New("invalid position")
	ErrNoLegalMoves    = errors.New("no legal moves available")
)

// Color identifies a chess side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

// Terminal classifies a position after a move has been applied.
type Terminal string

const (
	TerminalNone             Terminal = ""
	TerminalCheckmate        Terminal = "checkmate"
	TerminalStalemate        Terminal = "stalemate"
	TerminalDrawThreefold    Terminal = "draw_threefold"
	TerminalDrawInsufficient Terminal = "draw_insufficient_material"
	TerminalDrawFiftyMove    Terminal = "draw_fifty_move"
)

func (t Terminal) IsDraw() bool {
	switch t {
	case TerminalStalemate, TerminalDrawThreefold, TerminalDrawInsufficient, TerminalDrawFiftyMove:
		return true
	}
	return false
}

// MoveIntent is a from/to square pair with an optional promotion piece letter
// (q, r, b, n). It is the only move shape accepted from callers.
type MoveIntent struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// UCI renders the intent in long algebraic form, e.g. "e2e4" or "e7e8q".
func (m MoveIntent) UCI() string {
	return strings.ToLower(strings.TrimSpace(m.From) + strings.TrimSpace(m.To) + strings.TrimSpace(m.Promotion))
}

// IntentFromUCI splits a long-algebraic move string back into an intent.
func IntentFromUCI(uci string) (MoveIntent, error) {
	s := strings.ToLower(strings.TrimSpace(uci))
	if len(s) != 4 && len(s) != 5 {
		return MoveIntent{}, fmt.Errorf("%w: %q", ErrIllegalMove, uci)
	}
	intent := MoveIntent{From: s[0:2], To: s[2:4]}
	if len(s) == 5 {
		intent.Promotion = s[4:5]
	}
	return intent, nil
}

// MoveResult is the outcome of applying one legal move.
type MoveResult struct {
	FEN      string
	SAN      string
	UCI      string
	Captured string // captured piece letter (p,n,b,r,q), empty when none
	Terminal Terminal
}

// ApplyMove validates intent against fen and returns the successor position.
// The adapter holds no state between calls; history lives with the caller.
func ApplyMove(fen string, intent MoveIntent) (MoveResult, error) {
	game, err := gameFromFEN(fen)
	if err != nil {
		return MoveResult{}, err
	}

	pos := game.Position()
	uci := intent.UCI()
	if uci == "" {
		return MoveResult{}, ErrIllegalMove
	}

	mv, err := nchess.UCINotation{}.Decode(pos, uci)
	if err != nil {
		return MoveResult{}, fmt.Errorf("%w: %s", ErrIllegalMove, uci)
	}
	captured := capturedLetter(pos, mv)
	san := nchess.AlgebraicNotation{}.Encode(pos, mv)
	if err := game.Move(mv, nil); err != nil {
		return MoveResult{}, fmt.Errorf("%w: %s", ErrIllegalMove, uci)
	}

	return MoveResult{
		FEN:      game.FEN(),
		SAN:      san,
		UCI:      uci,
		Captured: captured,
		Terminal: terminalFromGame(game),
	}, nil
}

// Replay applies intents in order from the initial position and returns the
// final FEN. Used to verify that a stored history reproduces a stored position.
func Replay(intents []MoveIntent) (string, error) {
	fen := InitialFEN
	for i, intent := range intents {
		res, err := ApplyMove(fen, intent)
		if err != nil {
			return "", fmt.Errorf("replay ply %d (%s): %w", i+1, intent.UCI(), err)
		}
		fen = res.FEN
	}
	return fen, nil
}

// SideToMove extracts the color on turn from fen.
func SideToMove(fen string) (Color, error) {
	game, err := gameFromFEN(fen)
	if err != nil {
		return "", err
	}
	return colorFrom(game.Position().Turn()), nil
}

// LegalMoves enumerates every legal move in fen as intents.
func LegalMoves(fen string) ([]MoveIntent, error) {
	game, err := gameFromFEN(fen)
	if err != nil {
		return nil, err
	}
	valid := game.ValidMoves()
	intents := make([]MoveIntent, 0, len(valid))
	for i := range valid {
		intent, err := IntentFromUCI(valid[i].String())
		if err != nil {
			continue
		}
		intents = append(intents, intent)
	}
	return intents, nil
}

// RandomLegalMove picks a uniformly random legal move, the stall-proof
// fallback when a bot search fails or times out.
func RandomLegalMove(fen string) (MoveIntent, error) {
	intents, err := LegalMoves(fen)
	if err != nil {
		return MoveIntent{}, err
	}
	if len(intents) == 0 {
		return MoveIntent{}, ErrNoLegalMoves
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(intents))))
	if err != nil {
		return intents[0], nil
	}
	return intents[n.Int64()], nil
}

func gameFromFEN(fen string) (*nchess.Game, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" || fen == InitialFEN {
		return nchess.NewGame(), nil
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPosition, err)
	}
	return nchess.NewGame(opt), nil
}

func terminalFromGame(game *nchess.Game) Terminal {
	if game.Outcome() == nchess.NoOutcome {
		return TerminalNone
	}
	switch game.Method() {
	case nchess.Checkmate:
		return TerminalCheckmate
	case nchess.Stalemate:
		return TerminalStalemate
	case nchess.ThreefoldRepetition, nchess.FivefoldRepetition:
		return TerminalDrawThreefold
	case nchess.FiftyMoveRule, nchess.SeventyFiveMoveRule:
		return TerminalDrawFiftyMove
	case nchess.InsufficientMaterial:
		return TerminalDrawInsufficient
	default:
		return TerminalDrawInsufficient
	}
}

func capturedLetter(pos *nchess.Position, mv *nchess.Move) string {
	if mv.HasTag(nchess.EnPassant) {
		return "p"
	}
	if !mv.HasTag(nchess.Capture) {
		return ""
	}
	piece := pos.Board().Piece(mv.S2())
	switch piece.Type() {
	case nchess.Pawn:
		return "p"
	case nchess.Knight:
		return "n"
	case nchess.Bishop:
		return "b"
	case nchess.Rook:
		return "r"
	case nchess.Queen:
		return "q"
	case nchess.King:
		return "k"
	}
	return ""
}

func colorFrom(c nchess.Color) Color {
	if c == nchess.White {
		return White
	}
	return Black
}

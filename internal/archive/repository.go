// Package archive records finished games in Postgres, including a PGN
// transcript built from the committed move history.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/Nateight8/neolink-sub000/internal/room"
	"github.com/Nateight8/neolink-sub000/internal/rules"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("database URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveResult upserts the final state of a finished room. Idempotent on
// room id so retries after a transient failure are safe.
func (r *Repository) SaveResult(ctx context.Context, rm *room.Room) error {
	if r == nil || r.db == nil || rm == nil || rm.Result == nil {
		return nil
	}

	white, _ := rm.PlayerByColor(rules.White)
	black, _ := rm.PlayerByColor(rules.Black)

	pgnResult := pgnResultFor(rm)
	pgn := buildPGN(rm, white.Identity, black.Identity, pgnResult)

	movesUCIRaw, _ := json.Marshal(rm.HistoryUCI())
	sans := make([]string, 0, len(rm.MoveHistory))
	for _, mv := range rm.MoveHistory {
		sans = append(sans, mv.SAN)
	}
	movesSANRaw, _ := json.Marshal(sans)

	duration := rm.UpdatedAt.Sub(rm.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	q := `INSERT INTO chess_rooms (
	    room_id, white_id, black_id,
	    time_control, rated,
	    result, result_winner, final_position,
	    moves_uci, moves_san, pgn,
	    started_at, ended_at, duration_ms
	  ) VALUES (
	    $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
	  ) ON CONFLICT (room_id) DO UPDATE SET
	    white_id=EXCLUDED.white_id,
	    black_id=EXCLUDED.black_id,
	    time_control=EXCLUDED.time_control,
	    rated=EXCLUDED.rated,
	    result=EXCLUDED.result,
	    result_winner=EXCLUDED.result_winner,
	    final_position=EXCLUDED.final_position,
	    moves_uci=EXCLUDED.moves_uci,
	    moves_san=EXCLUDED.moves_san,
	    pgn=EXCLUDED.pgn,
	    started_at=EXCLUDED.started_at,
	    ended_at=EXCLUDED.ended_at,
	    duration_ms=EXCLUDED.duration_ms`

	_, err := r.db.ExecContext(ctx, q,
		rm.ID,
		white.Identity, black.Identity,
		timeControlLabel(rm), rm.Rated,
		string(rm.Result.Status), rm.Result.Winner, rm.Position,
		string(movesUCIRaw), string(movesSANRaw), pgn,
		rm.CreatedAt, rm.UpdatedAt, duration,
	)
	return err
}

func pgnResultFor(rm *room.Room) string {
	res := rm.Result
	if res == nil {
		return "*"
	}
	if res.Winner != "" {
		if p, ok := rm.PlayerByColor(rules.White); ok && p.Identity == res.Winner {
			return "1-0"
		}
		return "0-1"
	}
	switch res.Status {
	case room.ResultDraw, room.ResultStalemate:
		return "1/2-1/2"
	default:
		return "*"
	}
}

func timeControlLabel(rm *room.Room) string {
	return fmt.Sprintf("%d+%d", rm.TimeControl.BaseSeconds, rm.TimeControl.IncrementSeconds)
}

func buildPGN(rm *room.Room, whiteName, blackName, pgnResult string) string {
	var b strings.Builder
	date := rm.UpdatedAt
	if date.IsZero() {
		date = time.Now()
	}
	b.WriteString("[Event \"Neolink Room\"]\n")
	b.WriteString("[Site \"neolink\"]\n")
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePGN(whiteName)))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePGN(blackName)))
	b.WriteString(fmt.Sprintf("[TimeControl \"%s\"]\n", timeControlLabel(rm)))
	if rm.Result != nil {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(string(rm.Result.Status))))
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", pgnResult))

	for i := 0; i < len(rm.MoveHistory); i += 2 {
		turn := (i / 2) + 1
		b.WriteString(fmt.Sprintf("%d. %s", turn, strings.TrimSpace(rm.MoveHistory[i].SAN)))
		if i+1 < len(rm.MoveHistory) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(rm.MoveHistory[i+1].SAN))
		}
		b.WriteString(" ")
	}
	b.WriteString(pgnResult)
	return b.String()
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}

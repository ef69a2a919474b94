package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"valoripper/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// Repository persists observed match sessions so past games can be reviewed
// after the client has moved on. One row per logical match; repeated polls of
// the same match refresh it in place.
type Repository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewRepository(db *sql.DB, logger zerolog.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Record upserts the session for a match snapshot and replaces its roster.
func (r *Repository) Record(ctx context.Context, state *domain.MatchState) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate nanoid: %w", err)
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, match_id, phase, game_mode, map_name, server, roster_size, observed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (match_id) DO UPDATE SET
			phase = excluded.phase,
			game_mode = excluded.game_mode,
			map_name = excluded.map_name,
			server = excluded.server,
			roster_size = excluded.roster_size,
			observed_at = excluded.observed_at,
			updated_at = excluded.updated_at`,
		id, state.MatchID, string(state.Phase), state.GameMode, state.MapName, state.Server,
		len(state.Allies)+len(state.Opponents), state.ObservedAt, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	// The insert may have hit the conflict path, so read back the real id.
	var sessionID string
	if err := tx.QueryRowContext(ctx, `SELECT id FROM sessions WHERE match_id = ?`, state.MatchID).Scan(&sessionID); err != nil {
		return fmt.Errorf("failed to resolve session id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_players WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to clear roster: %w", err)
	}

	for _, p := range state.Roster() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO session_players (session_id, subject, team, username)
			VALUES (?, ?, ?, ?)`,
			sessionID, p.Subject, p.Team, p.Username,
		)
		if err != nil {
			return fmt.Errorf("failed to insert roster entry: %w", err)
		}
	}

	return tx.Commit()
}

// Recent returns the most recently observed sessions, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, match_id, phase, game_mode, map_name, server, roster_size, observed_at, created_at, updated_at
		FROM sessions
		ORDER BY observed_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var s domain.Session
		var phase string
		if err := rows.Scan(&s.ID, &s.MatchID, &phase, &s.GameMode, &s.MapName, &s.Server, &s.RosterSize, &s.ObservedAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		s.Phase = domain.MatchPhase(phase)
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Roster returns the stored participants of one session.
func (r *Repository) Roster(ctx context.Context, sessionID string) ([]domain.Participant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT subject, team, username
		FROM session_players
		WHERE session_id = ?
		ORDER BY team, username`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query roster: %w", err)
	}
	defer rows.Close()

	var roster []domain.Participant
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.Subject, &p.Team, &p.Username); err != nil {
			return nil, fmt.Errorf("failed to scan roster entry: %w", err)
		}
		roster = append(roster, p)
	}
	return roster, rows.Err()
}

package match

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"valoripper/internal/constants"
	"valoripper/internal/domain"
	"valoripper/internal/riot"

	"github.com/rs/zerolog"
)

var (
	// The player is not in a live match or pregame lobby. Expected between
	// games; callers retry on the next poll instead of treating it as a fault.
	ErrNotInMatch = errors.New("not in a match")
	// A match id was found but neither detail endpoint would serve it.
	ErrMatchUnavailable = errors.New("match details unavailable")
)

type Service struct {
	auth   riot.SessionSource
	client *riot.Client
	logger zerolog.Logger
}

func NewService(auth riot.SessionSource, client *riot.Client, logger zerolog.Logger) *Service {
	return &Service{auth: auth, client: client, logger: logger}
}

// DetectMatch checks the live endpoint first, then pregame. Returns the
// match id and whether it is live, or ErrNotInMatch.
func (s *Service) DetectMatch(ctx context.Context) (bool, string, error) {
	sess, err := s.auth.Ensure(ctx)
	if err != nil {
		return false, "", err
	}

	if id, err := s.client.CurrentGamePlayer(ctx, sess); err == nil && id != "" {
		return true, id, nil
	}

	if id, err := s.client.PregamePlayer(ctx, sess); err == nil && id != "" {
		return false, id, nil
	}

	return false, "", ErrNotInMatch
}

// Snapshot rebuilds the full match state from scratch: detect, fetch detail
// (live endpoint with pregame fallback), normalize, resolve names in one
// batched call.
func (s *Service) Snapshot(ctx context.Context) (*domain.MatchState, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.MatchStateTimeout)
	defer cancel()

	sess, err := s.auth.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	live, matchID, err := s.DetectMatch(ctx)
	if err != nil {
		return nil, err
	}

	phase := domain.PhaseLive
	payload, err := s.client.CurrentGameMatch(ctx, sess, matchID)
	if err != nil {
		payload, err = s.client.PregameMatch(ctx, sess, matchID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrMatchUnavailable, matchID)
		}
		phase = domain.PhasePregame
	} else if !live {
		phase = domain.PhasePregame
	}

	state := s.normalize(ctx, sess, matchID, phase, payload)

	s.logger.Info().
		Str("match_id", matchID).
		Str("phase", string(state.Phase)).
		Str("mode", state.GameMode).
		Str("map", state.MapName).
		Int("roster", len(state.Allies)+len(state.Opponents)).
		Msg("match state rebuilt")

	return state, nil
}

func (s *Service) normalize(ctx context.Context, sess *riot.Session, matchID string, phase domain.MatchPhase, payload *riot.MatchPayload) *domain.MatchState {
	state := &domain.MatchState{
		MatchID:    matchID,
		Phase:      phase,
		GameMode:   cleanGameMode(firstNonEmpty(payload.ModeID, payload.Mode)),
		MapName:    lastSegment(firstNonEmpty(payload.MapID, payload.MapURL)),
		Server:     firstNonEmpty(payload.GamePodID, payload.ProvisioningFlowID, "Unknown"),
		ObservedAt: time.Now(),
	}

	type rawParticipant struct {
		subject string
		ally    bool
	}

	var raw []rawParticipant
	if len(payload.Players) > 0 {
		for _, p := range payload.Players {
			team := strings.ToLower(p.TeamID)
			raw = append(raw, rawParticipant{subject: p.Subject, ally: team == "blue" || team == "ally"})
		}
	} else {
		// Pregame shape: the roster is split into ally and enemy lists and the
		// players themselves carry no usable team label.
		if payload.AllyTeam != nil {
			for _, p := range payload.AllyTeam.Players {
				raw = append(raw, rawParticipant{subject: p.Subject, ally: true})
			}
		}
		if payload.EnemyTeam != nil {
			for _, p := range payload.EnemyTeam.Players {
				raw = append(raw, rawParticipant{subject: p.Subject, ally: false})
			}
		}
	}

	// Self-only modes come back with an empty roster.
	if len(raw) == 0 {
		raw = append(raw, rawParticipant{subject: sess.Subject, ally: true})
	}

	subjects := make([]string, 0, len(raw))
	for _, p := range raw {
		subjects = append(subjects, p.subject)
	}
	names := s.resolveNames(ctx, sess, subjects)

	for _, p := range raw {
		participant := domain.Participant{
			Subject:  p.subject,
			Username: names[p.subject],
		}
		if participant.Username == "" {
			participant.Username = placeholderName(p.subject)
		}
		if p.ally {
			participant.Team = "Ally"
			state.Allies = append(state.Allies, participant)
		} else {
			participant.Team = "Enemy"
			state.Opponents = append(state.Opponents, participant)
		}
	}

	return state
}

// resolveNames performs the single batched name lookup. A failure degrades
// every participant to the placeholder; it never fails the snapshot.
func (s *Service) resolveNames(ctx context.Context, sess *riot.Session, subjects []string) map[string]string {
	names := make(map[string]string, len(subjects))

	entries, err := s.client.PlayerNames(ctx, sess, subjects)
	if err != nil {
		s.logger.Warn().Err(err).Int("subjects", len(subjects)).Msg("batched name lookup failed")
		return names
	}

	for _, e := range entries {
		if username := e.Username(); username != "" {
			names[e.Subject] = username
		}
	}
	return names
}

func placeholderName(subject string) string {
	if len(subject) > 8 {
		subject = subject[:8]
	}
	return "Player_" + subject
}

// cleanGameMode strips the asset-path decorations from a raw mode id, e.g.
// "/Game/GameModes/Bomb/BombGameMode.BombGameMode_C" -> "Bomb".
func cleanGameMode(mode string) string {
	if mode == "" {
		return "Unknown"
	}
	mode = lastSegment(mode)
	if i := strings.Index(mode, "."); i >= 0 {
		mode = mode[:i]
	}
	mode = strings.ReplaceAll(mode, "GameMode_C", "")
	mode = strings.ReplaceAll(mode, "GameMode", "")
	if mode == "" {
		return "Unknown"
	}
	return mode
}

func lastSegment(path string) string {
	if path == "" {
		return "Unknown"
	}
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

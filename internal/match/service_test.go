package match_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"valoripper/internal/domain"
	"valoripper/internal/match"
	"valoripper/internal/riot"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fixedSession struct {
	sess *riot.Session
}

func (f fixedSession) Ensure(context.Context) (*riot.Session, error) {
	return f.sess, nil
}

func testSession() *riot.Session {
	return &riot.Session{
		AccessToken:       "access",
		EntitlementsToken: "ent",
		Subject:           "self-subject-uuid",
		Region:            "eu",
		Shard:             "eu",
	}
}

// newService wires a Service against a local fake of the regional backend.
func newService(t *testing.T, handler http.Handler) *match.Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := riot.NewClient(zerolog.Nop())
	client.GlzBase = srv.URL
	client.PdBase = srv.URL

	return match.NewService(fixedSession{sess: testSession()}, client, zerolog.Nop())
}

func writeBody(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func TestSnapshotLiveMatch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /core-game/v1/players/self-subject-uuid", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, `{"MatchID": "live-match-1"}`)
	})
	mux.HandleFunc("GET /core-game/v1/matches/live-match-1", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, `{
			"ModeID": "/Game/GameModes/Bomb/BombGameMode.BombGameMode_C",
			"MapID": "/Game/Maps/Ascent/Ascent",
			"GamePodID": "aresriot.aws-fra1",
			"Players": [
				{"Subject": "self-subject-uuid", "TeamID": "Blue"},
				{"Subject": "mate-subject-uuid", "TeamID": "Blue"},
				{"Subject": "enemy-subject-uuid", "TeamID": "Red"}
			]
		}`)
	})
	mux.HandleFunc("PUT /name-service/v2/players", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, `[
			{"Subject": "self-subject-uuid", "GameName": "Me", "TagLine": "EUW"},
			{"Subject": "mate-subject-uuid", "GameName": "Mate", "TagLine": "007"}
		]`)
	})

	state, err := newService(t, mux).Snapshot(context.Background())
	require.NoError(t, err)

	require.Equal(t, "live-match-1", state.MatchID)
	require.Equal(t, domain.PhaseLive, state.Phase)
	require.Equal(t, "Bomb", state.GameMode)
	require.Equal(t, "Ascent", state.MapName)
	require.Equal(t, "aresriot.aws-fra1", state.Server)

	require.Len(t, state.Allies, 2)
	require.Equal(t, "Me#EUW", state.Allies[0].Username)
	require.Equal(t, "Ally", state.Allies[0].Team)
	require.Equal(t, "Mate#007", state.Allies[1].Username)

	// No name entry came back for the opponent, so they get the placeholder.
	require.Len(t, state.Opponents, 1)
	require.Equal(t, "Player_enemy-su", state.Opponents[0].Username)
	require.Equal(t, "Enemy", state.Opponents[0].Team)
}

func TestSnapshotPregameMatch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /core-game/v1/players/self-subject-uuid", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("GET /pregame/v1/players/self-subject-uuid", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, `{"MatchID": "pre-match-1"}`)
	})
	mux.HandleFunc("GET /core-game/v1/matches/pre-match-1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("GET /pregame/v1/matches/pre-match-1", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, `{
			"Mode": "/Game/GameModes/Deathmatch/DeathmatchGameMode.DeathmatchGameMode_C",
			"MapUrl": "/Game/Maps/Bonsai/Bonsai",
			"AllyTeam": {"TeamID": "Blue", "Players": [{"Subject": "self-subject-uuid"}]},
			"EnemyTeam": {"TeamID": "Red", "Players": [{"Subject": "enemy-subject-uuid"}]}
		}`)
	})
	mux.HandleFunc("PUT /name-service/v2/players", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, `[]`)
	})

	state, err := newService(t, mux).Snapshot(context.Background())
	require.NoError(t, err)

	require.Equal(t, domain.PhasePregame, state.Phase)
	require.Equal(t, "Deathmatch", state.GameMode)
	require.Equal(t, "Bonsai", state.MapName)
	require.Len(t, state.Allies, 1)
	require.Len(t, state.Opponents, 1)
	require.Equal(t, "Player_self-sub", state.Allies[0].Username)
}

func TestSnapshotNotInMatch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := newService(t, mux).Snapshot(context.Background())
	require.ErrorIs(t, err, match.ErrNotInMatch)
}

func TestSnapshotMatchDetailUnavailable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /core-game/v1/players/self-subject-uuid", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, `{"MatchID": "gone-match"}`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := newService(t, mux).Snapshot(context.Background())
	require.ErrorIs(t, err, match.ErrMatchUnavailable)
}

func TestSnapshotEmptyRosterSynthesizesSelf(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /core-game/v1/players/self-subject-uuid", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, `{"MatchID": "range-match"}`)
	})
	mux.HandleFunc("GET /core-game/v1/matches/range-match", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, `{"ModeID": "/Game/GameModes/ShootingRange/ShootingRangeGameMode.ShootingRangeGameMode_C", "Players": []}`)
	})
	mux.HandleFunc("PUT /name-service/v2/players", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, `[{"Subject": "self-subject-uuid", "GameName": "Me", "TagLine": "EUW"}]`)
	})

	state, err := newService(t, mux).Snapshot(context.Background())
	require.NoError(t, err)

	require.Equal(t, "ShootingRange", state.GameMode)
	require.Len(t, state.Allies, 1)
	require.Empty(t, state.Opponents)
	require.Equal(t, "self-subject-uuid", state.Allies[0].Subject)
	require.Equal(t, "Me#EUW", state.Allies[0].Username)
}

func TestSnapshotNameLookupFailureDegradesToPlaceholders(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /core-game/v1/players/self-subject-uuid", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, `{"MatchID": "live-match-2"}`)
	})
	mux.HandleFunc("GET /core-game/v1/matches/live-match-2", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, `{"ModeID": "Bomb", "Players": [{"Subject": "self-subject-uuid", "TeamID": "Blue"}]}`)
	})
	mux.HandleFunc("PUT /name-service/v2/players", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	state, err := newService(t, mux).Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Player_self-sub", state.Allies[0].Username)
}

func TestCleanGameModeEdgeCases(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /core-game/v1/players/self-subject-uuid", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, `{"MatchID": "odd-match"}`)
	})
	mux.HandleFunc("GET /core-game/v1/matches/odd-match", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, `{"Players": [{"Subject": "self-subject-uuid", "TeamID": "Blue"}]}`)
	})
	mux.HandleFunc("PUT /name-service/v2/players", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, `[]`)
	})

	state, err := newService(t, mux).Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Unknown", state.GameMode)
	require.Equal(t, "Unknown", state.MapName)
	require.Equal(t, "Unknown", state.Server)
}

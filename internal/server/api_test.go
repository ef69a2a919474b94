package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"valoripper/internal/aggregate"
	"valoripper/internal/assets"
	"valoripper/internal/catalog"
	"valoripper/internal/config"
	"valoripper/internal/domain"
	"valoripper/internal/hdev"
	"valoripper/internal/history"
	"valoripper/internal/match"
	"valoripper/internal/riot"
	"valoripper/internal/server"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fixedSession struct {
	sess *riot.Session
}

func (f fixedSession) Ensure(context.Context) (*riot.Session, error) {
	return f.sess, nil
}

// newAPI assembles the full handler against an unreachable match backend and
// a disabled stats provider: enough surface for routing and degraded-path
// assertions.
func newAPI(t *testing.T) (*server.API, *history.Repository) {
	t.Helper()

	session := fixedSession{sess: &riot.Session{Subject: "self", Region: "eu", Shard: "eu"}}
	nop := zerolog.Nop()

	deadSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(deadSrv.Close)

	riotClient := riot.NewClient(nop)
	riotClient.GlzBase = deadSrv.URL
	riotClient.PdBase = deadSrv.URL

	store := catalog.NewStore(&config.Config{DataDir: t.TempDir()}, nop)
	store.BaseURL = deadSrv.URL
	resolver := catalog.NewResolver(store, nop)

	agg := aggregate.NewService(session, riotClient, hdev.NewClient(&config.Config{}), resolver, nop)

	db, err := history.NewDB(&config.Config{DBPath: filepath.Join(t.TempDir(), "sessions.db")}, nop)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	sessions := history.NewRepository(db, nop)

	service := match.NewService(session, riotClient, nop)
	poller := match.NewPoller(service, sessions, &config.Config{PollInterval: time.Hour}, nop)

	return server.NewAPI(poller, agg, sessions, assets.NewFetcher(nop), nop), sessions
}

func doRequest(t *testing.T, handler http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestStateBeforeFirstPoll(t *testing.T) {
	api, _ := newAPI(t)

	rec := doRequest(t, api.Handler(), http.MethodGet, "/api/state")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status string             `json:"status"`
		Match  *domain.MatchState `json:"match"`
		Error  string             `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "waiting", resp.Status)
	require.Nil(t, resp.Match)
	require.Empty(t, resp.Error)
}

func TestLoadoutRequiresParams(t *testing.T) {
	api, _ := newAPI(t)
	handler := api.Handler()

	require.Equal(t, http.StatusBadRequest, doRequest(t, handler, http.MethodGet, "/api/loadout").Code)
	require.Equal(t, http.StatusBadRequest, doRequest(t, handler, http.MethodGet, "/api/loadout?match_id=m1").Code)
	require.Equal(t, http.StatusBadRequest, doRequest(t, handler, http.MethodGet, "/api/loadout?subject=s1").Code)
}

func TestLoadoutDegradesToEmptyView(t *testing.T) {
	api, _ := newAPI(t)

	rec := doRequest(t, api.Handler(), http.MethodGet, "/api/loadout?match_id=m1&subject=s1")
	require.Equal(t, http.StatusOK, rec.Code)

	var view domain.LoadoutView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Empty(t, view.PlayerCardURL)
	require.Empty(t, view.Weapons)
	require.Nil(t, view.Melee)
	require.Empty(t, view.Sprays)
}

func TestStatsRequiresName(t *testing.T) {
	api, _ := newAPI(t)
	require.Equal(t, http.StatusBadRequest, doRequest(t, api.Handler(), http.MethodGet, "/api/stats").Code)
}

func TestStatsNoContentWhenUnavailable(t *testing.T) {
	api, _ := newAPI(t)

	// The provider has no API key, so nothing can be aggregated.
	rec := doRequest(t, api.Handler(), http.MethodGet, "/api/stats?name=Me&tag=EUW")
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHistoryEndpoint(t *testing.T) {
	api, sessions := newAPI(t)
	handler := api.Handler()

	rec := doRequest(t, handler, http.MethodGet, "/api/history")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, "[]", rec.Body.String(), "empty history is a JSON array, not null")

	require.NoError(t, sessions.Record(context.Background(), &domain.MatchState{
		MatchID:    "match-1",
		Phase:      domain.PhaseLive,
		GameMode:   "Bomb",
		MapName:    "Ascent",
		Server:     "aresriot.aws-fra1",
		Allies:     []domain.Participant{{Subject: "s1", Team: "Ally", Username: "Me#EUW"}},
		ObservedAt: time.Now(),
	}))

	rec = doRequest(t, handler, http.MethodGet, "/api/history")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []domain.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	require.Equal(t, "match-1", got[0].MatchID)
	require.Equal(t, 1, got[0].RosterSize)
}

func TestAssetEndpoint(t *testing.T) {
	api, _ := newAPI(t)
	handler := api.Handler()

	require.Equal(t, http.StatusBadRequest, doRequest(t, handler, http.MethodGet, "/api/assets").Code)

	imgSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("\x89PNG\r\n\x1a\nfakeimagedata"))
	}))
	defer imgSrv.Close()

	rec := doRequest(t, handler, http.MethodGet, "/api/assets?url="+imgSrv.URL+"/card.png")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = doRequest(t, handler, http.MethodGet, "/api/assets?url="+imgSrv.URL+"/card.png")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAssetEndpointNotFound(t *testing.T) {
	api, _ := newAPI(t)

	deadSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer deadSrv.Close()

	rec := doRequest(t, api.Handler(), http.MethodGet, "/api/assets?url="+deadSrv.URL+"/gone.png")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	api, _ := newAPI(t)
	rec := doRequest(t, api.Handler(), http.MethodPost, "/api/state")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

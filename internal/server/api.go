package server

import (
	"encoding/json"
	"net/http"

	"valoripper/internal/aggregate"
	"valoripper/internal/assets"
	"valoripper/internal/constants"
	"valoripper/internal/domain"
	"valoripper/internal/history"
	"valoripper/internal/match"

	"github.com/rs/zerolog"
)

// API is the local JSON surface the GUI consumer renders from. It never
// talks upstream on the GUI's behalf beyond what the core services expose,
// and upstream faults come back as empty results, not 5xx.
type API struct {
	poller   *match.Poller
	agg      *aggregate.Service
	sessions *history.Repository
	assets   *assets.Fetcher
	logger   zerolog.Logger
}

func NewAPI(poller *match.Poller, agg *aggregate.Service, sessions *history.Repository, fetcher *assets.Fetcher, logger zerolog.Logger) *API {
	return &API{
		poller:   poller,
		agg:      agg,
		sessions: sessions,
		assets:   fetcher,
		logger:   logger,
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/state", a.handleState)
	mux.HandleFunc("GET /api/loadout", a.handleLoadout)
	mux.HandleFunc("GET /api/stats", a.handleStats)
	mux.HandleFunc("GET /api/history", a.handleHistory)
	mux.HandleFunc("GET /api/assets", a.handleAsset)
	return mux
}

type stateResponse struct {
	Status string             `json:"status"`
	Match  *domain.MatchState `json:"match,omitempty"`
	Error  string             `json:"error,omitempty"`
}

func (a *API) handleState(w http.ResponseWriter, r *http.Request) {
	status, state, lastErr := a.poller.Current()
	writeJSON(w, http.StatusOK, stateResponse{
		Status: string(status),
		Match:  state,
		Error:  lastErr,
	})
}

func (a *API) handleLoadout(w http.ResponseWriter, r *http.Request) {
	matchID := r.URL.Query().Get("match_id")
	subject := r.URL.Query().Get("subject")
	if matchID == "" || subject == "" {
		http.Error(w, "match_id and subject are required", http.StatusBadRequest)
		return
	}

	view := a.agg.Loadout(r.Context(), matchID, subject)

	// Warm the asset cache so the popup's image requests hit it.
	a.assets.Prefetch(r.Context(), view.ImageURLs())

	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	tag := r.URL.Query().Get("tag")

	summary := a.agg.Stats(r.Context(), name, tag)
	if summary == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessions, err := a.sessions.Recent(r.Context(), constants.RecentSessionLimit)
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to load session history")
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}
	if sessions == nil {
		sessions = []domain.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (a *API) handleAsset(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}

	body, err := a.assets.Get(r.Context(), url)
	if err != nil {
		a.logger.Debug().Err(err).Str("url", url).Msg("asset unavailable")
		http.Error(w, "asset unavailable", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(body))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

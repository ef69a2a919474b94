package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"valoripper/internal/config"
	"valoripper/internal/constants"
	"valoripper/internal/riot"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// Type names one static reference catalog. The name doubles as the snapshot
// filename, the endpoint is the public API path that serves it.
type Type struct {
	Name     string
	Endpoint string
}

var (
	WeaponSkins = Type{Name: "weapon_skins", Endpoint: "weapons/skins"}
	PlayerCards = Type{Name: "playercards", Endpoint: "playercards"}
	Sprays      = Type{Name: "sprays", Endpoint: "sprays"}
	Agents      = Type{Name: "agents", Endpoint: "agents"}
)

// AllTypes are the catalogs EnsureStaticData keeps warm.
var AllTypes = []Type{WeaponSkins, PlayerCards, Sprays, Agents}

// Store keeps one pretty-printed JSON snapshot per catalog type on disk.
// A refresh always replaces the whole snapshot; there is no partial update.
type Store struct {
	dataDir string
	logger  zerolog.Logger
	http    *fasthttp.Client

	// BaseURL overrides the public catalog API, used by tests.
	BaseURL string
}

func NewStore(cfg *config.Config, logger zerolog.Logger) *Store {
	return &Store{
		dataDir: cfg.DataDir,
		logger:  logger,
		http: &fasthttp.Client{
			ReadTimeout:  constants.CatalogTimeout,
			WriteTimeout: constants.CatalogTimeout,
		},
	}
}

func (s *Store) snapshotPath(t Type) string {
	return filepath.Join(s.dataDir, t.Name+".json")
}

func (s *Store) baseURL() string {
	if s.BaseURL != "" {
		return s.BaseURL
	}
	return "https://valorant-api.com/v1"
}

// FetchAndCache downloads a catalog and replaces its on-disk snapshot.
func (s *Store) FetchAndCache(ctx context.Context, t Type) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf("%s/%s", s.baseURL(), t.Endpoint))
	req.Header.SetMethod(fasthttp.MethodGet)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(constants.CatalogTimeout)
	}
	if err := s.http.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("failed to fetch %s catalog: %w", t.Name, err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, &riot.StatusError{Code: resp.StatusCode()}
	}

	body := resp.Body()

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		return nil, fmt.Errorf("catalog %s is not valid JSON: %w", t.Name, err)
	}

	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.WriteFile(s.snapshotPath(t), pretty.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s snapshot: %w", t.Name, err)
	}

	s.logger.Info().Str("catalog", t.Name).Int("bytes", pretty.Len()).Msg("catalog snapshot refreshed")
	return append([]byte(nil), body...), nil
}

// LoadCached returns the snapshot bytes, or nil when the snapshot is missing.
// A missing snapshot is not an error.
func (s *Store) LoadCached(t Type) []byte {
	raw, err := os.ReadFile(s.snapshotPath(t))
	if err != nil {
		return nil
	}
	if !json.Valid(raw) {
		s.logger.Warn().Str("catalog", t.Name).Msg("snapshot is unparsable, treating as absent")
		return nil
	}
	return raw
}

// EnsureStaticData fetches every catalog that has no snapshot yet. Static data
// is a best-effort enhancement: failures are logged and swallowed, and one
// catalog failing does not block the others.
func (s *Store) EnsureStaticData(ctx context.Context) {
	for _, t := range AllTypes {
		if s.LoadCached(t) != nil {
			continue
		}
		if _, err := s.FetchAndCache(ctx, t); err != nil {
			s.logger.Warn().Err(err).Str("catalog", t.Name).Msg("catalog fetch failed, continuing without it")
		}
	}
}

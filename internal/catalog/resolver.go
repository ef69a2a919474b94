package catalog

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"valoripper/internal/constants"

	"github.com/rs/zerolog"
)

type envelope[T any] struct {
	Status int `json:"status"`
	Data   []T `json:"data"`
}

type skinEntry struct {
	UUID        string `json:"uuid"`
	DisplayName string `json:"displayName"`
	DisplayIcon string `json:"displayIcon"`
	Levels      []struct {
		UUID        string `json:"uuid"`
		DisplayName string `json:"displayName"`
		DisplayIcon string `json:"displayIcon"`
	} `json:"levels"`
	Chromas []struct {
		UUID        string `json:"uuid"`
		DisplayName string `json:"displayName"`
		DisplayIcon string `json:"displayIcon"`
		FullRender  string `json:"fullRender"`
	} `json:"chromas"`
}

type cardEntry struct {
	UUID        string `json:"uuid"`
	DisplayName string `json:"displayName"`
	LargeArt    string `json:"largeArt"`
	WideArt     string `json:"wideArt"`
}

type sprayCatalogEntry struct {
	UUID                string `json:"uuid"`
	DisplayName         string `json:"displayName"`
	DisplayIcon         string `json:"displayIcon"`
	FullTransparentIcon string `json:"fullTransparentIcon"`
}

type agentEntry struct {
	UUID        string `json:"uuid"`
	DisplayName string `json:"displayName"`
	DisplayIcon string `json:"displayIcon"`
}

// SprayInfo is the resolved view of one equipped spray.
type SprayInfo struct {
	Name     string
	ImageURL string
}

// Resolver maps opaque identifiers to display names and images using the
// snapshot store. The skin map is flattened over every variant (base skin,
// levels, chromas); all keys are lowercased before comparison.
type Resolver struct {
	store  *Store
	logger zerolog.Logger

	mu         sync.Mutex
	skinNames  map[string]string
	skinImages map[string]string
	// Sorted keys make the 8-char-prefix fallback deterministic when several
	// entries share a prefix.
	skinKeys []string
	cards    map[string]cardEntry
	sprays   map[string]sprayCatalogEntry
	agents   map[string]agentEntry
}

func NewResolver(store *Store, logger zerolog.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// ResolveSkinName resolves a skin/level/chroma identifier to its display
// name. Lookup order: exact match, 8-char prefix match, one forced
// rebuild-and-retry when the map is empty, then a placeholder.
func (r *Resolver) ResolveSkinName(ctx context.Context, id string) string {
	if id == "" {
		return "Unknown"
	}
	sid := strings.ToLower(id)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.ensureSkinMaps(ctx, false)
	if name, ok := r.lookupSkinNameLocked(sid); ok {
		return name
	}

	// Exactly one retry after a forced load; unresolvable ids get the
	// placeholder instead of looping.
	if len(r.skinNames) == 0 {
		r.ensureSkinMaps(ctx, true)
		if name, ok := r.lookupSkinNameLocked(sid); ok {
			return name
		}
	}

	r.logger.Debug().Str("skin_id", sid).Msg("skin not found in catalog")
	return "Unknown (" + shortID(sid) + ")"
}

// ResolveSkinImage returns the best image URL for a skin variant, or empty
// when neither the variant nor any parent fallback has one.
func (r *Resolver) ResolveSkinImage(ctx context.Context, id string) string {
	if id == "" {
		return ""
	}
	sid := strings.ToLower(id)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.ensureSkinMaps(ctx, false)
	if url, ok := r.skinImages[sid]; ok {
		return url
	}
	for _, k := range r.skinKeys {
		if samePrefix(k, sid) {
			return r.skinImages[k]
		}
	}
	return ""
}

// ResolveCardImage returns the large art for a player card, exact match only.
func (r *Resolver) ResolveCardImage(ctx context.Context, cardID string) string {
	if cardID == "" {
		return ""
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cards == nil {
		r.cards = loadCatalogMap(ctx, r.store, PlayerCards, r.logger, func(e cardEntry) string { return e.UUID })
	}
	card, ok := r.cards[strings.ToLower(cardID)]
	if !ok {
		return ""
	}
	if card.LargeArt != "" {
		return card.LargeArt
	}
	return card.WideArt
}

// ResolveSprayInfo returns the name and icon for an equipped spray, exact
// match only.
func (r *Resolver) ResolveSprayInfo(ctx context.Context, sprayID string) *SprayInfo {
	if sprayID == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sprays == nil {
		r.sprays = loadCatalogMap(ctx, r.store, Sprays, r.logger, func(e sprayCatalogEntry) string { return e.UUID })
	}
	spray, ok := r.sprays[strings.ToLower(sprayID)]
	if !ok {
		return nil
	}
	url := spray.FullTransparentIcon
	if url == "" {
		url = spray.DisplayIcon
	}
	return &SprayInfo{Name: spray.DisplayName, ImageURL: url}
}

// ResolveAgentName resolves an agent identifier to its display name.
func (r *Resolver) ResolveAgentName(ctx context.Context, agentID string) string {
	if agentID == "" {
		return ""
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.agents == nil {
		r.agents = loadCatalogMap(ctx, r.store, Agents, r.logger, func(e agentEntry) string { return e.UUID })
	}
	if agent, ok := r.agents[strings.ToLower(agentID)]; ok {
		return agent.DisplayName
	}
	return ""
}

var meleeKeywords = []string{"melee", "knife", "blade", "axe", "sword", "dagger", "katana"}

// ClassifyMelee reports whether a weapon identifier belongs to the melee
// slot, by category UUID or by keyword.
func (r *Resolver) ClassifyMelee(weaponID string) bool {
	id := strings.ToLower(weaponID)
	if strings.Contains(id, constants.MeleeCategoryID) {
		return true
	}
	for _, kw := range meleeKeywords {
		if strings.Contains(id, kw) {
			return true
		}
	}
	return false
}

func (r *Resolver) lookupSkinNameLocked(sid string) (string, bool) {
	if name, ok := r.skinNames[sid]; ok {
		return name, true
	}
	for _, k := range r.skinKeys {
		if samePrefix(k, sid) {
			return r.skinNames[k], true
		}
	}
	return "", false
}

// ensureSkinMaps builds the flattened variant maps. With force it refetches
// the catalog even when a snapshot (possibly empty or stale) exists.
func (r *Resolver) ensureSkinMaps(ctx context.Context, force bool) {
	if r.skinNames != nil && !force {
		return
	}

	raw := r.store.LoadCached(WeaponSkins)
	if raw == nil || force {
		fetched, err := r.store.FetchAndCache(ctx, WeaponSkins)
		if err != nil {
			r.logger.Warn().Err(err).Msg("skin catalog unavailable")
			if r.skinNames == nil {
				r.skinNames = map[string]string{}
				r.skinImages = map[string]string{}
			}
			return
		}
		raw = fetched
	}

	var env envelope[skinEntry]
	if err := json.Unmarshal(raw, &env); err != nil {
		r.logger.Warn().Err(err).Msg("skin snapshot is unparsable")
		r.skinNames = map[string]string{}
		r.skinImages = map[string]string{}
		return
	}

	names := make(map[string]string, len(env.Data)*4)
	images := make(map[string]string, len(env.Data)*4)

	for _, skin := range env.Data {
		base := strings.ToLower(skin.UUID)
		if base == "" || skin.DisplayName == "" {
			continue
		}

		fallbackRender := ""
		if len(skin.Chromas) > 0 {
			fallbackRender = skin.Chromas[0].FullRender
		}

		names[base] = skin.DisplayName
		images[base] = firstNonEmpty(skin.DisplayIcon, fallbackRender)

		for _, level := range skin.Levels {
			lid := strings.ToLower(level.UUID)
			if lid == "" {
				continue
			}
			names[lid] = skin.DisplayName
			images[lid] = firstNonEmpty(level.DisplayIcon, fallbackRender, skin.DisplayIcon)
		}

		for _, chroma := range skin.Chromas {
			cid := strings.ToLower(chroma.UUID)
			if cid == "" {
				continue
			}
			// A chroma without its own name inherits the parent skin's.
			names[cid] = firstNonEmpty(chroma.DisplayName, skin.DisplayName)
			images[cid] = firstNonEmpty(chroma.FullRender, chroma.DisplayIcon, skin.DisplayIcon)
		}
	}

	keys := make([]string, 0, len(names))
	for k := range names {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	r.skinNames = names
	r.skinImages = images
	r.skinKeys = keys
	r.logger.Info().Int("variants", len(names)).Msg("skin map built")
}

// loadCatalogMap reads one single-level catalog into a UUID-keyed map,
// fetching it on cache miss. Failures yield an empty map.
func loadCatalogMap[T any](ctx context.Context, store *Store, t Type, logger zerolog.Logger, key func(T) string) map[string]T {
	raw := store.LoadCached(t)
	if raw == nil {
		fetched, err := store.FetchAndCache(ctx, t)
		if err != nil {
			logger.Warn().Err(err).Str("catalog", t.Name).Msg("catalog unavailable")
			return map[string]T{}
		}
		raw = fetched
	}

	var env envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Warn().Err(err).Str("catalog", t.Name).Msg("catalog snapshot is unparsable")
		return map[string]T{}
	}

	out := make(map[string]T, len(env.Data))
	for _, entry := range env.Data {
		out[strings.ToLower(key(entry))] = entry
	}
	return out
}

// samePrefix compares the first 8 characters of two identifiers.
func samePrefix(a, b string) bool {
	return len(a) >= 8 && len(b) >= 8 && a[:8] == b[:8]
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

package domain

import (
	"time"
)

// Phase of the match a snapshot was taken in. A pregame lobby and a live
// match are distinct backend phases for the same logical match.
type MatchPhase string

const (
	PhaseLive    MatchPhase = "live"
	PhasePregame MatchPhase = "pregame"
)

type Participant struct {
	Subject  string `json:"subject"`
	Team     string `json:"team"`
	Username string `json:"username"`
}

// MatchState is rebuilt from scratch on every poll cycle. Both upstream
// payload shapes (flat player list vs. ally/enemy split) normalize into it,
// so nothing downstream branches on shape again.
type MatchState struct {
	MatchID    string        `json:"match_id"`
	Phase      MatchPhase    `json:"phase"`
	GameMode   string        `json:"game_mode"`
	MapName    string        `json:"map_name"`
	Server     string        `json:"server"`
	Allies     []Participant `json:"allies"`
	Opponents  []Participant `json:"opponents"`
	ObservedAt time.Time     `json:"observed_at"`
}

func (m *MatchState) Roster() []Participant {
	roster := make([]Participant, 0, len(m.Allies)+len(m.Opponents))
	roster = append(roster, m.Allies...)
	return append(roster, m.Opponents...)
}

type WeaponEntry struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
}

type SprayEntry struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
}

// LoadoutView is what the popup renders for one player. Any field may be
// empty when the upstream feed that supplies it was unavailable.
type LoadoutView struct {
	PlayerCardURL string        `json:"player_card_url,omitempty"`
	AgentName     string        `json:"agent_name,omitempty"`
	Weapons       []WeaponEntry `json:"weapons"`
	Melee         *WeaponEntry  `json:"melee,omitempty"`
	Sprays        []SprayEntry  `json:"sprays"`
}

// ImageURLs lists every asset the view references, for prefetching.
func (v *LoadoutView) ImageURLs() []string {
	var urls []string
	if v.PlayerCardURL != "" {
		urls = append(urls, v.PlayerCardURL)
	}
	for _, w := range v.Weapons {
		if w.ImageURL != "" {
			urls = append(urls, w.ImageURL)
		}
	}
	if v.Melee != nil && v.Melee.ImageURL != "" {
		urls = append(urls, v.Melee.ImageURL)
	}
	for _, s := range v.Sprays {
		if s.ImageURL != "" {
			urls = append(urls, s.ImageURL)
		}
	}
	return urls
}

// StatsSummary aggregates a bounded window of recent competitive matches.
// Nil pointer fields mean "unknown", which is distinct from zero: a player
// with zero deaths has no KD, not an infinite one.
type StatsSummary struct {
	Rank     string   `json:"rank,omitempty"`
	PeakRank string   `json:"peak_rank,omitempty"`
	WinRate  *float64 `json:"win_rate,omitempty"`
	HSRate   *float64 `json:"hs_rate,omitempty"`
	KD       *float64 `json:"kd,omitempty"`
}

func (s *StatsSummary) Empty() bool {
	return s.Rank == "" && s.PeakRank == "" && s.WinRate == nil && s.HSRate == nil && s.KD == nil
}

// Session is one observed match, persisted so past sessions can be reviewed
// after the client has moved on.
type Session struct {
	ID         string     `json:"id"`
	MatchID    string     `json:"match_id"`
	Phase      MatchPhase `json:"phase"`
	GameMode   string     `json:"game_mode"`
	MapName    string     `json:"map_name"`
	Server     string     `json:"server"`
	RosterSize int        `json:"roster_size"`
	ObservedAt time.Time  `json:"observed_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

package riot

// Session carries the short-lived credentials exchanged from the lockfile
// password plus the routing codes for the regional backend. It is built once
// per process and passed explicitly to every call that needs it.
type Session struct {
	AccessToken       string
	EntitlementsToken string
	Subject           string
	Region            string
	Shard             string
}

// RealRegion resolves the routing region, falling back to the shard and then
// the default when the client reported none.
func (s *Session) RealRegion() string {
	if s.Region != "" && s.Region != "none" {
		return s.Region
	}
	if s.Shard != "" && s.Shard != "none" {
		return s.Shard
	}
	return "eu"
}

type entitlementsResponse struct {
	AccessToken string `json:"accessToken"`
	Token       string `json:"token"`
	Subject     string `json:"subject"`
}

type externalSessionsResponse map[string]struct {
	LaunchConfiguration struct {
		Arguments []string `json:"arguments"`
	} `json:"launchConfiguration"`
}

type playerMatchResponse struct {
	MatchID string `json:"MatchID"`
}

// MatchPayload covers both upstream detail shapes: live matches carry a flat
// Players list, pregame lobbies split the roster into AllyTeam/EnemyTeam.
type MatchPayload struct {
	ModeID             string       `json:"ModeID"`
	Mode               string       `json:"Mode"`
	MapID              string       `json:"MapID"`
	MapURL             string       `json:"MapUrl"`
	GamePodID          string       `json:"GamePodID"`
	ProvisioningFlowID string       `json:"ProvisioningFlowID"`
	Players            []PlayerInfo `json:"Players"`
	AllyTeam           *TeamInfo    `json:"AllyTeam"`
	EnemyTeam          *TeamInfo    `json:"EnemyTeam"`
}

type TeamInfo struct {
	TeamID  string       `json:"TeamID"`
	Players []PlayerInfo `json:"Players"`
}

type PlayerInfo struct {
	Subject        string `json:"Subject"`
	TeamID         string `json:"TeamID"`
	CharacterID    string `json:"CharacterID"`
	PlayerIdentity struct {
		PlayerCardID string `json:"PlayerCardID"`
	} `json:"PlayerIdentity"`
}

type MatchLoadouts struct {
	Loadouts []LoadoutEntry `json:"Loadouts"`
}

type LoadoutEntry struct {
	Subject string `json:"Subject"`
	Loadout struct {
		Items  map[string]LoadoutItem `json:"Items"`
		Sprays []EquippedSpray        `json:"Sprays"`
	} `json:"Loadout"`
}

type LoadoutItem struct {
	Sockets map[string]struct {
		Item struct {
			ID string `json:"ID"`
		} `json:"Item"`
	} `json:"Sockets"`
}

type EquippedSpray struct {
	EquippedSprayID string `json:"EquippedSprayID"`
}

// PlayerLoadout is the personal-loadout feed, the fallback when the per-match
// loadout endpoint is unavailable.
type PlayerLoadout struct {
	Guns     []Gun           `json:"Guns"`
	Sprays   []EquippedSpray `json:"Sprays"`
	Identity struct {
		PlayerCardID string `json:"PlayerCardID"`
	} `json:"Identity"`
}

type Gun struct {
	ID       string `json:"ID"`
	SkinID   string `json:"SkinID"`
	ChromaID string `json:"ChromaID"`
}

type NameEntry struct {
	Subject  string `json:"Subject"`
	GameName string `json:"GameName"`
	TagLine  string `json:"TagLine"`
}

// Username renders the display name the roster shows.
func (n NameEntry) Username() string {
	if n.GameName != "" && n.TagLine != "" {
		return n.GameName + "#" + n.TagLine
	}
	return n.GameName
}

package aggregate

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"

	"valoripper/internal/constants"
	"valoripper/internal/domain"
	"valoripper/internal/hdev"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/errgroup"
)

// Stats aggregates rank, win rate and recent-history figures for one player.
// The three upstream calls are independently failable; any subset of
// populated fields is a valid result. Returns nil only when every call
// yielded nothing.
func (s *Service) Stats(ctx context.Context, name, tag string) *domain.StatsSummary {
	if !s.stats.Enabled() {
		s.logger.Debug().Msg("stats provider disabled, no API key")
		return nil
	}

	// Roster names come through as "name#tag".
	if i := strings.Index(name, "#"); i >= 0 {
		if tag == "" || tag == name[i+1:] {
			tag = name[i+1:]
		}
		name = name[:i]
	}

	key := strings.ToLower(name + "#" + tag)
	if item := s.statsCache.Get(key); item != nil {
		return item.Value()
	}

	ctx, cancel := context.WithTimeout(ctx, constants.StatsTimeout)
	defer cancel()

	region := constants.DefaultRegion
	if sess, err := s.auth.Ensure(ctx); err == nil {
		region = sess.RealRegion()
	}

	summary := &domain.StatsSummary{}

	var mmr *hdev.MMRResponse
	var account *hdev.AccountResponse

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		mmr, err = s.stats.GetMMR(gCtx, region, name, tag)
		if err != nil {
			s.logger.Warn().Err(err).Str("name", name).Str("tag", tag).Msg("mmr lookup failed")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		account, err = s.stats.GetAccount(gCtx, name, tag)
		if err != nil {
			s.logger.Warn().Err(err).Str("name", name).Str("tag", tag).Msg("account lookup failed")
		}
		return nil
	})
	_ = g.Wait()

	if mmr != nil && mmr.Status == 200 {
		s.fillRank(summary, &mmr.Data)
	}

	if account != nil && account.Status == 200 && account.Data.Puuid != "" {
		historyRegion := account.Data.Region
		if historyRegion == "" {
			historyRegion = region
		}
		s.fillHistory(ctx, summary, historyRegion, account.Data.Puuid, name, tag)
	}

	if summary.Empty() {
		return nil
	}

	s.statsCache.Set(key, summary, ttlcache.DefaultTTL)
	return summary
}

func (s *Service) fillRank(summary *domain.StatsSummary, data *hdev.MMRData) {
	tierName := data.Current.Tier.Name
	if tierName != "" && tierName != "Unranked" {
		summary.Rank = tierName + " (" + strconv.Itoa(data.Current.RR) + " RR)"
	} else {
		summary.Rank = "Unranked"
	}

	if data.Peak.Tier.Name != "" {
		summary.PeakRank = data.Peak.Tier.Name
	}

	// The last seasonal entry is the current act.
	if len(data.Seasonal) > 0 {
		act := data.Seasonal[len(data.Seasonal)-1]
		if act.Games > 0 {
			summary.WinRate = round1(float64(act.Wins) / float64(act.Games) * 100)
		}
	}
}

// fillHistory accumulates shot and frag totals over the bounded recent
// competitive history. The "all_players" aggregate roster is skipped so each
// match counts once.
func (s *Service) fillHistory(ctx context.Context, summary *domain.StatsSummary, region, puuid, name, tag string) {
	matches, err := s.stats.GetMatches(ctx, region, puuid, constants.MatchHistorySize)
	if err != nil {
		s.logger.Warn().Err(err).Str("puuid", puuid).Msg("match history lookup failed")
		return
	}
	if matches.Status != 200 {
		return
	}

	var kills, deaths, head, body, leg int
	for _, m := range matches.Data {
		teams := make([]string, 0, len(m.Players))
		for team := range m.Players {
			if team == "all_players" {
				continue
			}
			teams = append(teams, team)
		}
		sort.Strings(teams)

		for _, team := range teams {
			found := false
			for _, p := range m.Players[team] {
				if !strings.EqualFold(p.Name, name) || !strings.EqualFold(p.Tag, tag) {
					continue
				}
				kills += p.Stats.Kills
				deaths += p.Stats.Deaths
				head += p.Stats.Headshots
				body += p.Stats.Bodyshots
				leg += p.Stats.Legshots
				found = true
				break
			}
			if found {
				break
			}
		}
	}

	// Zero denominators mean "unknown", not zero.
	if deaths > 0 {
		summary.KD = round2(float64(kills) / float64(deaths))
	}
	if shots := head + body + leg; shots > 0 {
		summary.HSRate = round1(float64(head) / float64(shots) * 100)
	}
}

func round1(v float64) *float64 {
	r := math.Round(v*10) / 10
	return &r
}

func round2(v float64) *float64 {
	r := math.Round(v*100) / 100
	return &r
}

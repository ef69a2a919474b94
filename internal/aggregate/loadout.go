package aggregate

import (
	"context"

	"valoripper/internal/constants"
	"valoripper/internal/domain"
	"valoripper/internal/riot"
)

// Loadout builds the per-player cosmetic view. It never returns an error:
// every upstream failure degrades to an empty or partial view so the popup
// can still render what it has.
func (s *Service) Loadout(ctx context.Context, matchID, subject string) *domain.LoadoutView {
	ctx, cancel := context.WithTimeout(ctx, constants.MatchStateTimeout)
	defer cancel()

	view := &domain.LoadoutView{
		Weapons: []domain.WeaponEntry{},
		Sprays:  []domain.SprayEntry{},
	}

	sess, err := s.auth.Ensure(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("no session for loadout fetch")
		return view
	}

	s.fillFromMatchDetail(ctx, sess, matchID, subject, view)

	loadouts, err := s.riot.CurrentGameLoadouts(ctx, sess, matchID)
	if err == nil && s.fillFromMatchLoadouts(ctx, loadouts, subject, view) {
		return view
	}
	if err != nil {
		s.logger.Debug().Err(err).Str("match_id", matchID).Msg("match loadout feed unavailable, trying personal loadout")
	}

	s.fillFromPersonalLoadout(ctx, sess, view)
	return view
}

// fillFromMatchLoadouts reads the subject's sockets out of the per-match
// loadout feed. Reports whether the subject was found.
func (s *Service) fillFromMatchLoadouts(ctx context.Context, loadouts *riot.MatchLoadouts, subject string, view *domain.LoadoutView) bool {
	for _, entry := range loadouts.Loadouts {
		if entry.Subject != subject {
			continue
		}

		for weaponID, item := range entry.Loadout.Items {
			socket, ok := item.Sockets[constants.SkinSocketID]
			if !ok || socket.Item.ID == "" {
				continue
			}
			s.addWeapon(ctx, view, weaponID, socket.Item.ID)
		}

		for _, spray := range entry.Loadout.Sprays {
			s.addSpray(ctx, view, spray.EquippedSprayID)
		}
		return true
	}
	return false
}

// fillFromPersonalLoadout is the fallback feed: the authenticated player's
// own equipped loadout, read directly.
func (s *Service) fillFromPersonalLoadout(ctx context.Context, sess *riot.Session, view *domain.LoadoutView) {
	loadout, err := s.riot.PersonalLoadout(ctx, sess)
	if err != nil {
		s.logger.Warn().Err(err).Msg("personal loadout feed unavailable")
		return
	}

	for _, gun := range loadout.Guns {
		skinID := gun.ChromaID
		if skinID == "" {
			skinID = gun.SkinID
		}
		if skinID == "" {
			continue
		}
		s.addWeapon(ctx, view, gun.ID, skinID)
	}

	for _, spray := range loadout.Sprays {
		s.addSpray(ctx, view, spray.EquippedSprayID)
	}

	if view.PlayerCardURL == "" {
		view.PlayerCardURL = s.resolver.ResolveCardImage(ctx, loadout.Identity.PlayerCardID)
	}
}

// addWeapon resolves one skin and routes it to the melee slot or the firearm
// list based on the weapon identifier, not on any tracked state.
func (s *Service) addWeapon(ctx context.Context, view *domain.LoadoutView, weaponID, skinID string) {
	entry := domain.WeaponEntry{
		Name:     s.resolver.ResolveSkinName(ctx, skinID),
		ImageURL: s.resolver.ResolveSkinImage(ctx, skinID),
	}

	if s.resolver.ClassifyMelee(weaponID) {
		view.Melee = &entry
		return
	}
	view.Weapons = append(view.Weapons, entry)
}

func (s *Service) addSpray(ctx context.Context, view *domain.LoadoutView, sprayID string) {
	if sprayID == "" {
		return
	}
	if info := s.resolver.ResolveSprayInfo(ctx, sprayID); info != nil {
		view.Sprays = append(view.Sprays, domain.SprayEntry{Name: info.Name, ImageURL: info.ImageURL})
	}
}

// fillFromMatchDetail pulls the subject's player card and picked agent out of
// the match detail payload, trying the live endpoint before pregame.
func (s *Service) fillFromMatchDetail(ctx context.Context, sess *riot.Session, matchID, subject string, view *domain.LoadoutView) {
	payload, err := s.riot.CurrentGameMatch(ctx, sess, matchID)
	if err != nil {
		payload, err = s.riot.PregameMatch(ctx, sess, matchID)
		if err != nil {
			return
		}
	}

	players := payload.Players
	if len(players) == 0 {
		if payload.AllyTeam != nil {
			players = append(players, payload.AllyTeam.Players...)
		}
		if payload.EnemyTeam != nil {
			players = append(players, payload.EnemyTeam.Players...)
		}
	}

	for _, p := range players {
		if p.Subject == subject {
			view.PlayerCardURL = s.resolver.ResolveCardImage(ctx, p.PlayerIdentity.PlayerCardID)
			view.AgentName = s.resolver.ResolveAgentName(ctx, p.CharacterID)
			return
		}
	}
}

package aggregate

import (
	"valoripper/internal/catalog"
	"valoripper/internal/constants"
	"valoripper/internal/domain"
	"valoripper/internal/hdev"
	"valoripper/internal/riot"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"
)

// Service gathers the per-player popup data: equipped cosmetics from the
// match backend and a stats summary from the third-party provider. The two
// sides are independent; a failure in one never hides the other.
type Service struct {
	auth     riot.SessionSource
	riot     *riot.Client
	stats    *hdev.Client
	resolver *catalog.Resolver
	logger   zerolog.Logger

	// Summaries are cached per name#tag so re-opening the same popup within
	// the TTL does not re-query the provider.
	statsCache *ttlcache.Cache[string, *domain.StatsSummary]
}

func NewService(auth riot.SessionSource, riotClient *riot.Client, stats *hdev.Client, resolver *catalog.Resolver, logger zerolog.Logger) *Service {
	statsCache := ttlcache.New[string, *domain.StatsSummary](
		ttlcache.WithTTL[string, *domain.StatsSummary](constants.StatsCacheTTL),
		ttlcache.WithDisableTouchOnHit[string, *domain.StatsSummary](),
	)
	go statsCache.Start()

	return &Service{
		auth:       auth,
		riot:       riotClient,
		stats:      stats,
		resolver:   resolver,
		logger:     logger,
		statsCache: statsCache,
	}
}

package assets

import (
	"context"
	"fmt"
	"time"

	"valoripper/internal/constants"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/errgroup"
)

// Fetcher downloads image assets with a bounded worker pool and keeps the
// bytes in a TTL cache. A failed download is simply missing from the result;
// it never fails the batch.
type Fetcher struct {
	http   *fasthttp.Client
	cache  *ttlcache.Cache[string, []byte]
	logger zerolog.Logger
}

func NewFetcher(logger zerolog.Logger) *Fetcher {
	cache := ttlcache.New[string, []byte](
		ttlcache.WithTTL[string, []byte](constants.AssetCacheTTL),
	)
	go cache.Start()

	return &Fetcher{
		http: &fasthttp.Client{
			MaxConnsPerHost: constants.AssetWorkers,
			ReadTimeout:     constants.AssetTimeout,
			WriteTimeout:    constants.AssetTimeout,
		},
		cache:  cache,
		logger: logger,
	}
}

// Prefetch warms the cache for every URL concurrently, bounded to
// AssetWorkers in-flight downloads. Returns once all complete or fail.
func (f *Fetcher) Prefetch(ctx context.Context, urls []string) {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(constants.AssetWorkers)

	for _, url := range urls {
		if f.cache.Has(url) {
			continue
		}
		g.Go(func() error {
			if _, err := f.fetch(gCtx, url); err != nil {
				f.logger.Debug().Err(err).Str("url", url).Msg("asset fetch failed")
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Get returns the asset bytes, downloading on cache miss.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	if item := f.cache.Get(url); item != nil {
		return item.Value(), nil
	}
	return f.fetch(ctx, url)
}

func (f *Fetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(constants.AssetTimeout)
	}
	if err := f.http.DoDeadline(req, resp, deadline); err != nil {
		return nil, err
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, &statusError{code: resp.StatusCode()}
	}

	body := append([]byte(nil), resp.Body()...)
	f.cache.Set(url, body, ttlcache.DefaultTTL)
	return body, nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("asset fetch returned status %d", e.code)
}

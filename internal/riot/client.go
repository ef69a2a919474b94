package riot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"valoripper/internal/constants"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// Client talks to the regional match backend. Hostnames are derived from the
// session's shard/region on every call, so a re-authentication that lands on
// another shard is picked up transparently.
type Client struct {
	http   *fasthttp.Client
	logger zerolog.Logger

	// Base URL overrides, used by tests to point at local fakes.
	GlzBase string
	PdBase  string
}

func NewClient(logger zerolog.Logger) *Client {
	return &Client{
		http: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         constants.MatchStateTimeout,
			WriteTimeout:        constants.MatchStateTimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger,
	}
}

func (c *Client) glzBase(sess *Session) string {
	if c.GlzBase != "" {
		return c.GlzBase
	}
	return fmt.Sprintf("https://glz-%s-1.%s.a.pvp.net", sess.Shard, sess.RealRegion())
}

func (c *Client) pdBase(sess *Session) string {
	if c.PdBase != "" {
		return c.PdBase
	}
	return fmt.Sprintf("https://pd.%s.a.pvp.net", sess.RealRegion())
}

// CurrentGamePlayer returns the live match id the subject is in, if any.
func (c *Client) CurrentGamePlayer(ctx context.Context, sess *Session) (string, error) {
	url := fmt.Sprintf("%s/core-game/v1/players/%s", c.glzBase(sess), sess.Subject)
	resp, err := doRequest[playerMatchResponse](ctx, c.http, sess, fasthttp.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	return resp.MatchID, nil
}

// PregamePlayer returns the pregame lobby match id the subject is in, if any.
func (c *Client) PregamePlayer(ctx context.Context, sess *Session) (string, error) {
	url := fmt.Sprintf("%s/pregame/v1/players/%s", c.glzBase(sess), sess.Subject)
	resp, err := doRequest[playerMatchResponse](ctx, c.http, sess, fasthttp.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	return resp.MatchID, nil
}

func (c *Client) CurrentGameMatch(ctx context.Context, sess *Session, matchID string) (*MatchPayload, error) {
	url := fmt.Sprintf("%s/core-game/v1/matches/%s", c.glzBase(sess), matchID)
	return doRequest[MatchPayload](ctx, c.http, sess, fasthttp.MethodGet, url, nil)
}

func (c *Client) PregameMatch(ctx context.Context, sess *Session, matchID string) (*MatchPayload, error) {
	url := fmt.Sprintf("%s/pregame/v1/matches/%s", c.glzBase(sess), matchID)
	return doRequest[MatchPayload](ctx, c.http, sess, fasthttp.MethodGet, url, nil)
}

func (c *Client) CurrentGameLoadouts(ctx context.Context, sess *Session, matchID string) (*MatchLoadouts, error) {
	url := fmt.Sprintf("%s/core-game/v1/matches/%s/loadouts", c.glzBase(sess), matchID)
	return doRequest[MatchLoadouts](ctx, c.http, sess, fasthttp.MethodGet, url, nil)
}

func (c *Client) PersonalLoadout(ctx context.Context, sess *Session) (*PlayerLoadout, error) {
	url := fmt.Sprintf("%s/personalization/v2/players/%s/playerloadout", c.pdBase(sess), sess.Subject)
	return doRequest[PlayerLoadout](ctx, c.http, sess, fasthttp.MethodGet, url, nil)
}

// PlayerNames resolves display names for every subject in one batched PUT,
// bounding the request count regardless of roster size.
func (c *Client) PlayerNames(ctx context.Context, sess *Session, subjects []string) ([]NameEntry, error) {
	body, err := json.Marshal(subjects)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal subjects: %w", err)
	}

	url := fmt.Sprintf("%s/name-service/v2/players", c.pdBase(sess))
	entries, err := doRequest[[]NameEntry](ctx, c.http, sess, fasthttp.MethodPut, url, body)
	if err != nil {
		return nil, err
	}
	return *entries, nil
}

func doRequest[T any](ctx context.Context, client *fasthttp.Client, sess *Session, method, url string, body []byte) (*T, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
	req.Header.Set("X-Riot-Entitlements-JWT", sess.EntitlementsToken)
	req.Header.Set("X-Riot-ClientPlatform", constants.ClientPlatform)
	req.Header.Set("X-Riot-ClientVersion", constants.ClientVersion)
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(constants.MatchStateTimeout)
	}
	if err := client.DoDeadline(req, resp, deadline); err != nil {
		return nil, err
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode()}
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

package hdev

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"valoripper/internal/config"
	"valoripper/internal/constants"

	"github.com/valyala/fasthttp"
)

// Client talks to the third-party stats provider. All calls require the
// static API key; the aggregator treats every call as independently failable.
type Client struct {
	apiKey      string
	client      *fasthttp.Client
	rateLimitMu sync.RWMutex
	rateLimit   RateLimitInfo

	// BaseURL override for tests.
	BaseURL string
}

type RateLimitInfo struct {
	Bucket    string `json:"bucket"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`

	// seconds until reset
	Reset int `json:"reset"`

	UpdatedAt time.Time `json:"updated_at"`
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		apiKey: cfg.HDevAPIKey,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         constants.StatsTimeout,
			WriteTimeout:        constants.StatsTimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		rateLimit: RateLimitInfo{
			Limit:     90,
			Remaining: 90,
			Reset:     60,
			UpdatedAt: time.Now(),
		},
	}
}

// Enabled reports whether an API key is configured. Without one every call
// would be rejected upstream, so callers skip stats entirely.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

func (c *Client) GetRateLimitInfo() RateLimitInfo {
	c.rateLimitMu.RLock()
	defer c.rateLimitMu.RUnlock()
	return c.rateLimit
}

func (c *Client) updateRateLimit(resp *fasthttp.Response) {
	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()

	if bucket := string(resp.Header.Peek("X-Ratelimit-Bucket")); bucket != "" {
		c.rateLimit.Bucket = bucket
	}
	if limit := string(resp.Header.Peek("X-Ratelimit-Limit")); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			c.rateLimit.Limit = val
		}
	}
	if remaining := string(resp.Header.Peek("X-Ratelimit-Remaining")); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			c.rateLimit.Remaining = val
		}
	}
	if reset := string(resp.Header.Peek("X-Ratelimit-Reset")); reset != "" {
		if val, err := strconv.Atoi(reset); err == nil {
			c.rateLimit.Reset = val
		}
	}
	c.rateLimit.UpdatedAt = time.Now()
}

func (c *Client) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return "https://api.henrikdev.xyz"
}

// GetMMR fetches current and peak rank plus seasonal win counts by name+tag.
func (c *Client) GetMMR(ctx context.Context, region, name, tag string) (*MMRResponse, error) {
	u := fmt.Sprintf("%s/valorant/v3/mmr/%s/pc/%s/%s", c.baseURL(), region, url.PathEscape(name), url.PathEscape(tag))
	return doRequest[MMRResponse](ctx, c, u)
}

// GetAccount resolves a name+tag to the provider's stable account id.
func (c *Client) GetAccount(ctx context.Context, name, tag string) (*AccountResponse, error) {
	u := fmt.Sprintf("%s/valorant/v2/account/%s/%s", c.baseURL(), url.PathEscape(name), url.PathEscape(tag))
	return doRequest[AccountResponse](ctx, c, u)
}

// GetMatches fetches the bounded recent competitive history for an account.
func (c *Client) GetMatches(ctx context.Context, region, puuid string, size int) (*MatchesResponse, error) {
	u := fmt.Sprintf("%s/valorant/v3/by-puuid/matches/%s/%s?mode=competitive&size=%d", c.baseURL(), region, puuid, size)
	return doRequest[MatchesResponse](ctx, c, u)
}

func doRequest[T any](ctx context.Context, client *Client, url string) (*T, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Authorization", client.apiKey)

	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := client.client.Do(req, resp); err != nil {
			return nil, err
		}
	}

	client.updateRateLimit(resp)

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("API error: %d", resp.StatusCode())
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type MMRResponse struct {
	Status int     `json:"status"`
	Data   MMRData `json:"data"`
}

type MMRData struct {
	Current struct {
		Tier struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"tier"`
		RR int `json:"rr"`
	} `json:"current"`
	Peak struct {
		Tier struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"tier"`
	} `json:"peak"`
	Seasonal []SeasonalEntry `json:"seasonal"`
}

type SeasonalEntry struct {
	Season struct {
		ID    string `json:"id"`
		Short string `json:"short"`
	} `json:"season"`
	Wins  int `json:"wins"`
	Games int `json:"games"`
}

type AccountResponse struct {
	Status int         `json:"status"`
	Data   AccountData `json:"data"`
}

type AccountData struct {
	Puuid        string `json:"puuid"`
	Region       string `json:"region"`
	AccountLevel int    `json:"account_level"`
	Name         string `json:"name"`
	Tag          string `json:"tag"`
	Card         string `json:"card"`
	Title        string `json:"title"`
}

type MatchesResponse struct {
	Status int         `json:"status"`
	Data   []MatchData `json:"data"`
}

type MatchData struct {
	Metadata struct {
		MatchID string `json:"matchid"`
		Map     string `json:"map"`
		Mode    string `json:"mode"`
	} `json:"metadata"`
	// Keyed by team name, plus an "all_players" aggregate that callers must
	// skip to avoid double counting.
	Players map[string][]MatchPlayer `json:"players"`
}

type MatchPlayer struct {
	Puuid string `json:"puuid"`
	Name  string `json:"name"`
	Tag   string `json:"tag"`
	Team  string `json:"team"`
	Stats struct {
		Score     int `json:"score"`
		Kills     int `json:"kills"`
		Deaths    int `json:"deaths"`
		Assists   int `json:"assists"`
		Headshots int `json:"headshots"`
		Bodyshots int `json:"bodyshots"`
		Legshots  int `json:"legshots"`
	} `json:"stats"`
}

package riot

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"valoripper/internal/config"
	"valoripper/internal/constants"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// SessionSource supplies the process session to consumers. Satisfied by
// Authenticator; tests substitute a fixed session.
type SessionSource interface {
	Ensure(ctx context.Context) (*Session, error)
}

// Authenticator exchanges the client lockfile for a Session. The session is
// cached for the process lifetime; Refresh drops it and authenticates again.
type Authenticator struct {
	lockfilePath string
	logger       zerolog.Logger
	client       *fasthttp.Client

	// AuthorityBase overrides the https://127.0.0.1:<port> loopback base.
	AuthorityBase string

	mu      sync.Mutex
	session *Session
	// Last routing codes seen, kept as the fallback when region detection fails.
	lastRegion string
	lastShard  string
}

func NewAuthenticator(cfg *config.Config, logger zerolog.Logger) *Authenticator {
	return &Authenticator{
		lockfilePath: cfg.LockfilePath,
		logger:       logger,
		client: &fasthttp.Client{
			ReadTimeout:  constants.LocalAuthTimeout,
			WriteTimeout: constants.LocalAuthTimeout,
			// The loopback authority serves a self-signed certificate. This is
			// the only client in the process that skips verification.
			TLSConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
}

// Ensure returns the cached session, authenticating on first use.
func (a *Authenticator) Ensure(ctx context.Context) (*Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session != nil {
		return a.session, nil
	}
	return a.authenticate(ctx)
}

// Refresh discards the cached session and authenticates from scratch.
func (a *Authenticator) Refresh(ctx context.Context) (*Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.session = nil
	return a.authenticate(ctx)
}

func (a *Authenticator) authenticate(ctx context.Context) (*Session, error) {
	port, password, err := a.readLockfile()
	if err != nil {
		return nil, err
	}

	base := a.AuthorityBase
	if base == "" {
		base = fmt.Sprintf("https://127.0.0.1:%s", port)
	}
	auth := "Basic " + base64.StdEncoding.EncodeToString([]byte("riot:"+password))

	var ent entitlementsResponse
	if err := a.getJSON(ctx, base+"/entitlements/v1/token", auth, &ent); err != nil {
		return nil, fmt.Errorf("failed to exchange lockfile password: %w", err)
	}

	sess := &Session{
		AccessToken:       ent.AccessToken,
		EntitlementsToken: ent.Token,
		Subject:           ent.Subject,
	}

	sess.Region, sess.Shard = a.detectRouting(ctx, base, auth)
	a.lastRegion, a.lastShard = sess.Region, sess.Shard
	a.session = sess

	a.logger.Info().
		Str("region", sess.Region).
		Str("shard", sess.Shard).
		Str("subject", sess.Subject[:min(8, len(sess.Subject))]).
		Msg("authenticated against local client")

	return sess, nil
}

// detectRouting reads region/shard from the client's launch arguments. Any
// failure falls back to the last-known codes, then the defaults.
func (a *Authenticator) detectRouting(ctx context.Context, base, auth string) (region, shard string) {
	region, shard = a.lastRegion, a.lastShard
	if region == "" {
		region = constants.DefaultRegion
	}
	if shard == "" {
		shard = constants.DefaultShard
	}

	var sessions externalSessionsResponse
	if err := a.getJSON(ctx, base+"/product-session/v1/external-sessions", auth, &sessions); err != nil {
		a.logger.Warn().Err(err).Msg("region detection failed, using fallback routing")
		return region, shard
	}

	valorant, ok := sessions["valorant"]
	if !ok {
		a.logger.Warn().Msg("no valorant session reported, using fallback routing")
		return region, shard
	}

	for _, arg := range valorant.LaunchConfiguration.Arguments {
		if v, ok := strings.CutPrefix(arg, "--region="); ok {
			region = v
		}
		if v, ok := strings.CutPrefix(arg, "--shard="); ok {
			shard = v
		}
	}
	return region, shard
}

func (a *Authenticator) readLockfile() (port, password string, err error) {
	raw, err := os.ReadFile(a.lockfilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", fmt.Errorf("%w: %s", ErrLockfileNotFound, a.lockfilePath)
		}
		return "", "", fmt.Errorf("failed to read lockfile: %w", err)
	}

	// name:pid:port:password:protocol
	fields := strings.Split(strings.TrimSpace(string(raw)), ":")
	if len(fields) != 5 {
		return "", "", fmt.Errorf("%w: expected 5 fields, got %d", ErrMalformedLockfile, len(fields))
	}
	return fields[2], fields[3], nil
}

func (a *Authenticator) getJSON(ctx context.Context, url, auth string, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Authorization", auth)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(constants.LocalAuthTimeout)
	}
	if err := a.client.DoDeadline(req, resp, deadline); err != nil {
		return err
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return &StatusError{Code: resp.StatusCode()}
	}
	return json.Unmarshal(resp.Body(), out)
}

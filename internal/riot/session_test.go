package riot_test

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"valoripper/internal/config"
	"valoripper/internal/riot"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func writeLockfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lockfile")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newAuthenticator(t *testing.T, lockfilePath string) *riot.Authenticator {
	t.Helper()
	return riot.NewAuthenticator(&config.Config{LockfilePath: lockfilePath}, zerolog.Nop())
}

func TestEnsureLockfileMissing(t *testing.T) {
	auth := newAuthenticator(t, filepath.Join(t.TempDir(), "absent"))

	_, err := auth.Ensure(context.Background())
	require.ErrorIs(t, err, riot.ErrLockfileNotFound)
}

func TestEnsureLockfileMalformed(t *testing.T) {
	auth := newAuthenticator(t, writeLockfile(t, "Riot Client:1234:55555"))

	_, err := auth.Ensure(context.Background())
	require.ErrorIs(t, err, riot.ErrMalformedLockfile)
}

func TestEnsureAuthenticatesAndCaches(t *testing.T) {
	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("riot:s3cret"))

	var calls atomic.Int64
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") != wantAuth {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/entitlements/v1/token":
			_, _ = w.Write([]byte(`{"accessToken": "access-jwt", "token": "ent-jwt", "subject": "11112222-3333-4444-5555-666677778888"}`))
		case "/product-session/v1/external-sessions":
			_, _ = w.Write([]byte(`{"valorant": {"launchConfiguration": {"arguments": ["-something", "--region=na", "--shard=na"]}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	auth := newAuthenticator(t, writeLockfile(t, "Riot Client:1234:55555:s3cret:https"))
	auth.AuthorityBase = srv.URL

	sess, err := auth.Ensure(context.Background())
	require.NoError(t, err)
	require.Equal(t, "access-jwt", sess.AccessToken)
	require.Equal(t, "ent-jwt", sess.EntitlementsToken)
	require.Equal(t, "11112222-3333-4444-5555-666677778888", sess.Subject)
	require.Equal(t, "na", sess.Region)
	require.Equal(t, "na", sess.Shard)
	require.Equal(t, int64(2), calls.Load())

	// The second Ensure serves the cached session without hitting the authority.
	again, err := auth.Ensure(context.Background())
	require.NoError(t, err)
	require.Same(t, sess, again)
	require.Equal(t, int64(2), calls.Load())
}

func TestEnsureRoutingFallback(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/entitlements/v1/token":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"accessToken": "a", "token": "e", "subject": "s"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	auth := newAuthenticator(t, writeLockfile(t, "Riot Client:1234:55555:pw:https"))
	auth.AuthorityBase = srv.URL

	sess, err := auth.Ensure(context.Background())
	require.NoError(t, err)
	require.Equal(t, "eu", sess.Region)
	require.Equal(t, "eu", sess.Shard)
}

func TestRefreshReauthenticates(t *testing.T) {
	var entitlements atomic.Int64
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/entitlements/v1/token":
			entitlements.Add(1)
			_, _ = w.Write([]byte(`{"accessToken": "a", "token": "e", "subject": "s"}`))
		case "/product-session/v1/external-sessions":
			_, _ = w.Write([]byte(`{"valorant": {"launchConfiguration": {"arguments": ["--region=ap", "--shard=ap"]}}}`))
		}
	}))
	defer srv.Close()

	auth := newAuthenticator(t, writeLockfile(t, "Riot Client:1234:55555:pw:https"))
	auth.AuthorityBase = srv.URL

	_, err := auth.Ensure(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), entitlements.Load())

	sess, err := auth.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), entitlements.Load())
	require.Equal(t, "ap", sess.Region)
}

func TestRealRegion(t *testing.T) {
	tests := []struct {
		name   string
		sess   riot.Session
		expect string
	}{
		{"region wins", riot.Session{Region: "na", Shard: "eu"}, "na"},
		{"none region falls back to shard", riot.Session{Region: "none", Shard: "ap"}, "ap"},
		{"empty region falls back to shard", riot.Session{Shard: "kr"}, "kr"},
		{"nothing usable falls back to default", riot.Session{Region: "none", Shard: "none"}, "eu"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expect, tt.sess.RealRegion())
		})
	}
}

package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/bizdir/internal/authz"
	"github.com/felixgeelhaar/bizdir/internal/errors"
	"github.com/felixgeelhaar/bizdir/internal/state"
	"github.com/felixgeelhaar/bizdir/internal/transport"
)

const userEnvelope = `{"success":true,"message":"ok","data":{"id":"u1","email":"ada@example.com","username":"ada","role":"author","emailVerified":true}}`

func newManager(t *testing.T, handler http.Handler) (*Manager, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := transport.New(srv.URL, 5*time.Second, nil)
	require.NoError(t, err)

	return New(client, state.New(t.TempDir(), nil), nil), srv
}

func TestLogin_Success(t *testing.T) {
	m, _ := newManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		fmt.Fprint(w, userEnvelope)
	}))

	err := m.Login(context.Background(), Credentials{Email: "ada@example.com", Password: "pw"})
	require.NoError(t, err)

	snap := m.Snapshot()
	assert.True(t, snap.Authenticated)
	require.NotNil(t, snap.Identity)
	assert.Equal(t, "u1", snap.Identity.ID)
	assert.Equal(t, authz.RoleAuthor, snap.Identity.Role)
	require.NotNil(t, snap.Verified)
	assert.True(t, *snap.Verified)
	assert.False(t, snap.Blocked)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Err)
}

func TestLogin_BlockedAccount(t *testing.T) {
	resumeAt := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	m, _ := newManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprintf(w, `{"success":false,"message":"account blocked","data":{"blockedUntil":"%s"}}`,
			resumeAt.Format(time.RFC3339))
	}))

	err := m.Login(context.Background(), Credentials{Email: "ada@example.com", Password: "pw"})
	require.Error(t, err)
	assert.True(t, errors.IsBlocked(err))

	snap := m.Snapshot()
	assert.True(t, snap.Blocked)
	assert.False(t, snap.Authenticated, "a blocked account is never authenticated")
	require.NotNil(t, snap.BlockedUntil)
	assert.True(t, snap.BlockedUntil.Equal(resumeAt))
	assert.Equal(t, "account blocked", snap.Err)
}

func TestLogin_OtherFailure(t *testing.T) {
	m, _ := newManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"success":false,"message":"invalid credentials"}`)
	}))

	err := m.Login(context.Background(), Credentials{Email: "ada@example.com", Password: "wrong"})
	require.Error(t, err)

	snap := m.Snapshot()
	assert.False(t, snap.Authenticated)
	assert.Nil(t, snap.Identity)
	assert.Equal(t, "invalid credentials", snap.Err)
	assert.False(t, snap.Blocked)
}

func TestLoginLogout_ResetsToAnonymousDefaults(t *testing.T) {
	var logoutHits atomic.Int32
	m, _ := newManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			fmt.Fprint(w, userEnvelope)
		case "/auth/logout":
			logoutHits.Add(1)
			fmt.Fprint(w, `{"success":true,"message":"bye"}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	require.NoError(t, m.Login(context.Background(), Credentials{Email: "ada@example.com", Password: "pw"}))
	m.Logout(context.Background())

	snap := m.Snapshot()
	assert.Nil(t, snap.Identity)
	assert.False(t, snap.Authenticated)
	assert.False(t, snap.Blocked)
	assert.Nil(t, snap.BlockedUntil)
	assert.Nil(t, snap.Verified)
	assert.Empty(t, snap.Err)
	assert.Equal(t, int32(1), logoutHits.Load())
}

func TestLogout_RemoteFailureStillResets(t *testing.T) {
	m, _ := newManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			fmt.Fprint(w, userEnvelope)
		default:
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"success":false,"message":"boom"}`)
		}
	}))

	require.NoError(t, m.Login(context.Background(), Credentials{Email: "ada@example.com", Password: "pw"}))
	m.Logout(context.Background())

	snap := m.Snapshot()
	assert.False(t, snap.Authenticated)
	assert.Nil(t, snap.Identity)
}

func TestRefreshToken_SingleFlight(t *testing.T) {
	var refreshHits atomic.Int32
	m, _ := newManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/refresh-token", r.URL.Path)
		refreshHits.Add(1)
		time.Sleep(50 * time.Millisecond) // hold the flight open for the siblings
		fmt.Fprint(w, userEnvelope)
	}))

	var wg sync.WaitGroup
	results := make([]bool, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = m.RefreshToken(context.Background())
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), refreshHits.Load(), "concurrent callers must share one in-flight refresh")
	for _, ok := range results {
		assert.True(t, ok)
	}
	assert.True(t, m.Authenticated())
}

func TestConcurrent401s_ShareOneRefresh(t *testing.T) {
	var refreshHits atomic.Int32
	var authorized atomic.Bool

	m, _ := newManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/refresh-token":
			refreshHits.Add(1)
			time.Sleep(50 * time.Millisecond)
			authorized.Store(true)
			fmt.Fprint(w, userEnvelope)
		case "/auth/profile":
			if !authorized.Load() {
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprint(w, `{"success":false,"message":"unauthenticated"}`)
				return
			}
			fmt.Fprint(w, userEnvelope)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.GetProfile(context.Background())
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), refreshHits.Load(),
		"independent 401s before any refresh resolves must share a single refresh call")
	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestRefreshToken_FailureClearsSessionAndFiresHandler(t *testing.T) {
	m, _ := newManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			fmt.Fprint(w, userEnvelope)
		case "/auth/refresh-token":
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"success":false,"message":"refresh expired"}`)
		}
	}))

	var expiredCalled atomic.Bool
	m.SetExpiredHandler(func() { expiredCalled.Store(true) })

	require.NoError(t, m.Login(context.Background(), Credentials{Email: "ada@example.com", Password: "pw"}))
	ok := m.RefreshToken(context.Background())

	assert.False(t, ok)
	assert.True(t, expiredCalled.Load())
	snap := m.Snapshot()
	assert.False(t, snap.Authenticated)
	assert.Nil(t, snap.Identity)
}

func TestCheckAuth_FallsBackToRefresh(t *testing.T) {
	var profileHits atomic.Int32
	m, _ := newManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/profile":
			profileHits.Add(1)
			// Not a 401, so the transport protocol stays out of it and
			// CheckAuth's own fallback is exercised.
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"success":false,"message":"transient"}`)
		case "/auth/refresh-token":
			fmt.Fprint(w, userEnvelope)
		}
	}))

	require.NoError(t, m.CheckAuth(context.Background()))
	assert.True(t, m.Authenticated())
	assert.Equal(t, int32(1), profileHits.Load())
	assert.Empty(t, m.Snapshot().Err)
}

func TestCheckAuth_ClearsSessionOnlyWhenFallbackFails(t *testing.T) {
	m, _ := newManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"success":false,"message":"down"}`)
	}))

	err := m.CheckAuth(context.Background())
	require.Error(t, err)
	assert.False(t, m.Authenticated())
	assert.Nil(t, m.Identity())
}

func TestVerifyEmail_PatchesIdentity(t *testing.T) {
	unverified := `{"success":true,"message":"ok","data":{"id":"u1","email":"ada@example.com","username":"ada","role":"user","emailVerified":false}}`
	m, _ := newManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			fmt.Fprint(w, unverified)
		case "/auth/verify/tok123":
			fmt.Fprint(w, `{"success":true,"message":"verified"}`)
		}
	}))

	require.NoError(t, m.Login(context.Background(), Credentials{Email: "ada@example.com", Password: "pw"}))
	require.NotNil(t, m.Snapshot().Verified)
	assert.False(t, *m.Snapshot().Verified)

	require.NoError(t, m.VerifyEmail(context.Background(), "tok123"))

	snap := m.Snapshot()
	require.NotNil(t, snap.Verified)
	assert.True(t, *snap.Verified)
	require.NotNil(t, snap.Identity)
	assert.True(t, snap.Identity.EmailVerified)
}

func TestBlockedWindow_ElapsedClearsOnNextFetch(t *testing.T) {
	past := time.Now().Add(-time.Minute).UTC()
	m, _ := newManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprintf(w, `{"success":false,"message":"blocked","data":{"blockedUntil":"%s"}}`,
				past.Format(time.RFC3339))
		case "/auth/profile":
			fmt.Fprint(w, userEnvelope)
		}
	}))

	err := m.Login(context.Background(), Credentials{Email: "ada@example.com", Password: "pw"})
	require.Error(t, err)
	assert.True(t, m.Snapshot().Blocked)

	// The window is already in the past; the next authenticated fetch must
	// clear the blocked state rather than continuing to reject.
	require.NoError(t, m.GetProfile(context.Background()))

	snap := m.Snapshot()
	assert.False(t, snap.Blocked)
	assert.Nil(t, snap.BlockedUntil)
	assert.True(t, snap.Authenticated)
}

func TestApplyIdentityPatch(t *testing.T) {
	m, _ := newManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, userEnvelope)
	}))
	require.NoError(t, m.Login(context.Background(), Credentials{Email: "ada@example.com", Password: "pw"}))

	// Mismatched target is ignored.
	m.ApplyIdentityPatch("someone-else", IdentityPatch{Role: authz.RoleAdmin})
	assert.Equal(t, authz.RoleAuthor, m.Identity().Role)

	// Matching target patches only the overlapping fields.
	m.ApplyIdentityPatch("u1", IdentityPatch{Username: "ada2", Role: authz.RoleAdmin})
	id := m.Identity()
	assert.Equal(t, "ada2", id.Username)
	assert.Equal(t, authz.RoleAdmin, id.Role)
	assert.Equal(t, "ada@example.com", id.Email, "unset patch fields stay untouched")
}

func TestPersistence_RestoresSessionSubset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, userEnvelope)
	}))
	defer srv.Close()

	dir := t.TempDir()
	client, err := transport.New(srv.URL, 5*time.Second, nil)
	require.NoError(t, err)
	m := New(client, state.New(dir, nil), nil)
	require.NoError(t, m.Login(context.Background(), Credentials{Email: "ada@example.com", Password: "pw"}))

	// A fresh manager over the same state dir restores the subset.
	client2, err := transport.New(srv.URL, 5*time.Second, nil)
	require.NoError(t, err)
	m2 := New(client2, state.New(dir, nil), nil)

	snap := m2.Snapshot()
	assert.True(t, snap.Authenticated)
	require.NotNil(t, snap.Identity)
	assert.Equal(t, "u1", snap.Identity.ID)
	// Request-scoped fields never persist.
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Err)
	assert.False(t, snap.Blocked)
}

func TestRegister_DoesNotAuthenticate(t *testing.T) {
	m, _ := newManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/register", r.URL.Path)
		fmt.Fprint(w, `{"success":true,"message":"registered"}`)
	}))

	require.NoError(t, m.Register(context.Background(), Registration{Username: "ada", Email: "ada@example.com", Password: "pw"}))
	assert.False(t, m.Authenticated())
	assert.Nil(t, m.Identity())
}

func TestClearError(t *testing.T) {
	m, _ := newManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"success":false,"message":"nope"}`)
	}))

	_ = m.Login(context.Background(), Credentials{Email: "x", Password: "y"})
	require.NotEmpty(t, m.Snapshot().Err)

	m.ClearError()
	assert.Empty(t, m.Snapshot().Err)
}

package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffqa/internal/model"
)

type fakeProvider struct {
	srv         *httptest.Server
	failRefresh atomic.Bool
	refreshes   atomic.Int32
	revokes     atomic.Int32
	email       string
}

func newFakeProvider(t *testing.T, email string) *fakeProvider {
	t.Helper()
	p := &fakeProvider{email: email}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		switch r.Form.Get("grant_type") {
		case "authorization_code":
			if r.Form.Get("code") != "good-code" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
			_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","refresh_token":"rt-1","expires_in":3600}`))
		case "refresh_token":
			p.refreshes.Add(1)
			if p.failRefresh.Load() {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
			_, _ = w.Write([]byte(`{"access_token":"at-2","token_type":"Bearer","expires_in":3600}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"sub":         "subject-42",
			"email":       p.email,
			"given_name":  "Ann",
			"family_name": "Lee",
			"picture":     "https://example.com/ann.png",
		})
	})
	mux.HandleFunc("/revoke", func(w http.ResponseWriter, r *http.Request) {
		p.revokes.Add(1)
		w.WriteHeader(http.StatusOK)
	})
	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)
	return p
}

func (p *fakeProvider) options() OAuthOptions {
	return OAuthOptions{
		Provider:    "oidc",
		ClientID:    "client",
		AuthURL:     p.srv.URL + "/authorize",
		TokenURL:    p.srv.URL + "/token",
		UserInfoURL: p.srv.URL + "/userinfo",
		RevokeURL:   p.srv.URL + "/revoke",
		RedirectURL: "http://localhost:8080/auth/callback",
		Scopes:      []string{"openid", "email"},
	}
}

func loginViaProvider(t *testing.T, h *harness) *LoginResult {
	t.Helper()
	ctx := context.Background()
	loginURL, err := h.auth.LoginURL(ctx)
	require.NoError(t, err)
	parsed, err := url.Parse(loginURL)
	require.NoError(t, err)
	state := parsed.Query().Get("state")
	require.NotEmpty(t, state)

	res, err := h.auth.Callback(ctx, state, "good-code")
	require.NoError(t, err)
	return res
}

func TestRegisterAndAuthenticate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.auth.Register(ctx, RegisterInput{Email: " Ann@Example.com ", Password: "password123", Confirm: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", res.User.Email)
	assert.Equal(t, model.RoleEmployee, res.User.Role)
	assert.NotEmpty(t, res.Token)

	user, err := h.auth.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, user.ID)

	admin := h.admin(t)
	assert.Equal(t, model.RoleAdmin, admin.Role)
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "ann@example.com")

	_, err := h.auth.Register(ctx, RegisterInput{Email: "bob@example.com", Password: "short", Confirm: "short"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = h.auth.Register(ctx, RegisterInput{Email: "not-an-email", Password: "password123", Confirm: "password123"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = h.auth.Register(ctx, RegisterInput{Email: "bob@example.com", Password: "password123", Confirm: "password124"})
	assert.ErrorIs(t, err, ErrPasswordMismatch)

	_, err = h.auth.Register(ctx, RegisterInput{Email: "ANN@example.com", Password: "password123", Confirm: "password123"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestPasswordLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "ann@example.com")

	res, err := h.auth.PasswordLogin(ctx, "ann@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", res.User.Email)

	_, err = h.auth.PasswordLogin(ctx, "ann@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredential)

	_, err = h.auth.PasswordLogin(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestPasswordLoginDisabled(t *testing.T) {
	h := newHarness(t, func(o *AuthOptions) { o.PasswordLogin = false })
	_, err := h.auth.PasswordLogin(context.Background(), "ann@example.com", "password123")
	assert.ErrorIs(t, err, ErrPasswordLoginDisabled)
}

func TestLogoutEndsSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res, err := h.auth.Register(ctx, RegisterInput{Email: "ann@example.com", Password: "password123", Confirm: "password123"})
	require.NoError(t, err)

	require.NoError(t, h.auth.Logout(ctx, res.Token))
	_, err = h.auth.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	assert.NoError(t, h.auth.Logout(ctx, "garbage"))
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.auth.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = h.auth.Authenticate(ctx, "not.a.jwt")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	forged, _, err := issueSessionToken("other-secret", time.Hour, 1, "sid")
	require.NoError(t, err)
	_, err = h.auth.Authenticate(ctx, forged)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	orphan, _, err := issueSessionToken("test-secret", time.Hour, 1, "no-such-session")
	require.NoError(t, err)
	_, err = h.auth.Authenticate(ctx, orphan)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSessionExpiresWithRedisTTL(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res, err := h.auth.Register(ctx, RegisterInput{Email: "ann@example.com", Password: "password123", Confirm: "password123"})
	require.NoError(t, err)

	h.redis.FastForward(2 * time.Hour)
	_, err = h.auth.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestLoginURLWithoutOAuth(t *testing.T) {
	h := newHarness(t)
	assert.False(t, h.auth.OAuthEnabled())
	_, err := h.auth.LoginURL(context.Background())
	assert.ErrorIs(t, err, ErrOAuthDisabled)
}

func TestOAuthCallbackCreatesUser(t *testing.T) {
	provider := newFakeProvider(t, "Ann@Example.com")
	h := newHarness(t, withOAuth(provider.options()))
	ctx := context.Background()

	res := loginViaProvider(t, h)
	assert.Equal(t, "ann@example.com", res.User.Email)
	assert.Equal(t, "Ann", res.User.FirstName)
	assert.Equal(t, "Lee", res.User.LastName)
	assert.Equal(t, "https://example.com/ann.png", res.User.ProfileImageURL)
	require.NotNil(t, res.User.ExternalID)
	assert.Equal(t, "subject-42", *res.User.ExternalID)

	user, err := h.auth.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, user.ID)

	claims, err := parseSessionToken("test-secret", res.Token)
	require.NoError(t, err)
	token, err := h.tokenRepo.GetBySession(ctx, user.ID, claims.SessionID, "oidc")
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, "at-1", token.AccessToken)
	assert.Equal(t, "rt-1", token.RefreshToken)

	again := loginViaProvider(t, h)
	assert.Equal(t, res.User.ID, again.User.ID)
}

func TestOAuthCallbackLinksExistingEmailAndPromotesAdmin(t *testing.T) {
	provider := newFakeProvider(t, testAdminEmail)
	h := newHarness(t, withOAuth(provider.options()))
	existing := &model.User{Email: testAdminEmail, Role: model.RoleEmployee}
	require.NoError(t, h.userRepo.Create(context.Background(), existing))

	res := loginViaProvider(t, h)
	assert.Equal(t, existing.ID, res.User.ID)
	assert.Equal(t, model.RoleAdmin, res.User.Role)
}

func TestOAuthStateIsSingleUse(t *testing.T) {
	provider := newFakeProvider(t, "ann@example.com")
	h := newHarness(t, withOAuth(provider.options()))
	ctx := context.Background()

	loginURL, err := h.auth.LoginURL(ctx)
	require.NoError(t, err)
	parsed, err := url.Parse(loginURL)
	require.NoError(t, err)
	state := parsed.Query().Get("state")
	assert.Equal(t, "offline", parsed.Query().Get("access_type"))

	_, err = h.auth.Callback(ctx, state, "good-code")
	require.NoError(t, err)
	_, err = h.auth.Callback(ctx, state, "good-code")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = h.auth.Callback(ctx, "forged", "good-code")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestOAuthCallbackBadCode(t *testing.T) {
	provider := newFakeProvider(t, "ann@example.com")
	h := newHarness(t, withOAuth(provider.options()))
	ctx := context.Background()

	loginURL, err := h.auth.LoginURL(ctx)
	require.NoError(t, err)
	parsed, _ := url.Parse(loginURL)

	_, err = h.auth.Callback(ctx, parsed.Query().Get("state"), "bad-code")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func expireStoredToken(t *testing.T, h *harness, userID uint) {
	t.Helper()
	err := h.db.Model(&model.OAuthToken{}).
		Where("user_id = ?", userID).
		Update("expiry", time.Now().Add(-time.Minute)).Error
	require.NoError(t, err)
}

func TestAuthenticateRefreshesExpiredToken(t *testing.T) {
	provider := newFakeProvider(t, "ann@example.com")
	h := newHarness(t, withOAuth(provider.options()))
	ctx := context.Background()
	res := loginViaProvider(t, h)

	expireStoredToken(t, h, res.User.ID)
	_, err := h.auth.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, int32(1), provider.refreshes.Load())

	claims, err := parseSessionToken("test-secret", res.Token)
	require.NoError(t, err)
	token, err := h.tokenRepo.GetBySession(ctx, res.User.ID, claims.SessionID, "oidc")
	require.NoError(t, err)
	assert.Equal(t, "at-2", token.AccessToken)
	assert.Equal(t, "rt-1", token.RefreshToken)
	assert.True(t, token.Expiry.After(time.Now()))
}

func TestAuthenticateRefreshFailureEndsSession(t *testing.T) {
	provider := newFakeProvider(t, "ann@example.com")
	h := newHarness(t, withOAuth(provider.options()))
	ctx := context.Background()
	res := loginViaProvider(t, h)

	provider.failRefresh.Store(true)
	expireStoredToken(t, h, res.User.ID)

	_, err := h.auth.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	claims, err := parseSessionToken("test-secret", res.Token)
	require.NoError(t, err)
	session, err := h.sessions.GetSession(ctx, claims.SessionID)
	require.NoError(t, err)
	assert.Nil(t, session)

	provider.failRefresh.Store(false)
	_, err = h.auth.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestLogoutRevokesProviderToken(t *testing.T) {
	provider := newFakeProvider(t, "ann@example.com")
	h := newHarness(t, withOAuth(provider.options()))
	ctx := context.Background()
	res := loginViaProvider(t, h)

	require.NoError(t, h.auth.Logout(ctx, res.Token))
	assert.Equal(t, int32(1), provider.revokes.Load())

	var n int64
	require.NoError(t, h.db.Model(&model.OAuthToken{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestRequire(t *testing.T) {
	assert.ErrorIs(t, Require(nil, model.RoleEmployee), ErrUnauthenticated)
	assert.ErrorIs(t, Require(&model.User{Role: model.RoleEmployee}, model.RoleAdmin), ErrForbidden)
	assert.NoError(t, Require(&model.User{Role: model.RoleAdmin}, model.RoleEmployee))
	assert.NoError(t, Require(&model.User{Role: model.RoleAdmin}, model.RoleAdmin))
}

package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"

	"staffqa/internal/cache"
	"staffqa/internal/model"
	"staffqa/internal/repository"
)

const (
	LoginMethodOAuth    = "oauth"
	LoginMethodPassword = "password"

	oauthStateTTL     = 10 * time.Minute
	minPasswordLength = 8
)

type SessionStore interface {
	SaveSession(ctx context.Context, session cache.Session, ttl time.Duration) error
	GetSession(ctx context.Context, id string) (*cache.Session, error)
	DeleteSession(ctx context.Context, id string) error
	SaveState(ctx context.Context, state string, ttl time.Duration) error
	ConsumeState(ctx context.Context, state string) (bool, error)
}

type OAuthOptions struct {
	Provider     string
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	RevokeURL    string
	RedirectURL  string
	Scopes       []string
}

func (o OAuthOptions) enabled() bool {
	return o.ClientID != "" && o.AuthURL != "" && o.TokenURL != ""
}

type AuthOptions struct {
	SessionSecret string
	SessionTTL    time.Duration
	AdminEmails   []string
	PasswordLogin bool
	OAuth         OAuthOptions
	// HTTPClient is used for every call to the identity provider.
	HTTPClient *http.Client
}

type AuthService struct {
	userRepo      *repository.UserRepository
	tokenRepo     *repository.OAuthTokenRepository
	sessions      SessionStore
	oauth         *oauth2.Config
	oauthOpts     OAuthOptions
	httpClient    *http.Client
	sessionSecret string
	sessionTTL    time.Duration
	admins        adminEmails
	passwordLogin bool
	logger        *zap.Logger
}

type RegisterInput struct {
	Email     string
	Password  string
	Confirm   string
	FirstName string
	LastName  string
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

func NewAuthService(
	userRepo *repository.UserRepository,
	tokenRepo *repository.OAuthTokenRepository,
	sessions SessionStore,
	opts AuthOptions,
	logger *zap.Logger,
) *AuthService {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.OAuth.Provider == "" {
		opts.OAuth.Provider = "oidc"
	}
	s := &AuthService{
		userRepo:      userRepo,
		tokenRepo:     tokenRepo,
		sessions:      sessions,
		oauthOpts:     opts.OAuth,
		httpClient:    opts.HTTPClient,
		sessionSecret: opts.SessionSecret,
		sessionTTL:    opts.SessionTTL,
		admins:        newAdminEmails(opts.AdminEmails),
		passwordLogin: opts.PasswordLogin,
		logger:        logger,
	}
	if opts.OAuth.enabled() {
		s.oauth = &oauth2.Config{
			ClientID:     opts.OAuth.ClientID,
			ClientSecret: opts.OAuth.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  opts.OAuth.AuthURL,
				TokenURL: opts.OAuth.TokenURL,
			},
			RedirectURL: opts.OAuth.RedirectURL,
			Scopes:      opts.OAuth.Scopes,
		}
	}
	return s
}

func (s *AuthService) OAuthEnabled() bool {
	return s.oauth != nil
}

func (s *AuthService) PasswordLoginEnabled() bool {
	return s.passwordLogin
}

func (s *AuthService) SessionTTL() time.Duration {
	return s.sessionTTL
}

// LoginURL returns the provider authorization URL carrying a fresh single-use
// state value.
func (s *AuthService) LoginURL(ctx context.Context) (string, error) {
	if s.oauth == nil {
		return "", ErrOAuthDisabled
	}
	state, err := randomState()
	if err != nil {
		return "", err
	}
	if err := s.sessions.SaveState(ctx, state, oauthStateTTL); err != nil {
		return "", err
	}
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

func (s *AuthService) Callback(ctx context.Context, state, code string) (*LoginResult, error) {
	if s.oauth == nil {
		return nil, ErrOAuthDisabled
	}
	valid, err := s.sessions.ConsumeState(ctx, state)
	if err != nil {
		return nil, err
	}
	if !valid || strings.TrimSpace(code) == "" {
		return nil, ErrUnauthenticated
	}

	pctx := s.providerContext(ctx)
	token, err := s.oauth.Exchange(pctx, code)
	if err != nil {
		s.logger.Warn("oauth code exchange failed", zap.Error(err))
		return nil, fmt.Errorf("%w: code exchange failed", ErrUnauthenticated)
	}

	info, err := s.fetchUserInfo(pctx, token)
	if err != nil {
		s.logger.Warn("oauth userinfo failed", zap.Error(err))
		return nil, fmt.Errorf("%w: user info unavailable", ErrUnauthenticated)
	}

	user, err := s.upsertOAuthUser(ctx, info)
	if err != nil {
		return nil, err
	}

	sessionID := uuid.NewString()
	if err := s.tokenRepo.Upsert(ctx, s.tokenRecord(user.ID, sessionID, token)); err != nil {
		return nil, err
	}
	return s.startSession(ctx, user, sessionID, LoginMethodOAuth)
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*LoginResult, error) {
	if !s.passwordLogin {
		return nil, ErrPasswordLoginDisabled
	}
	email := normalizeEmail(input.Email)
	password := input.Password
	if email == "" || !strings.Contains(email, "@") || len(password) < minPasswordLength {
		return nil, ErrInvalidInput
	}
	if password != input.Confirm {
		return nil, ErrPasswordMismatch
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}

	user := &model.User{
		Email:        email,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		PasswordHash: string(hash),
		Role:         s.initialRole(email),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.Uint("user_id", user.ID), zap.String("role", string(user.Role)))
	return s.startSession(ctx, user, uuid.NewString(), LoginMethodPassword)
}

func (s *AuthService) PasswordLogin(ctx context.Context, email, password string) (*LoginResult, error) {
	if !s.passwordLogin {
		return nil, ErrPasswordLoginDisabled
	}
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.PasswordHash == "" {
		return nil, ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredential
	}
	return s.startSession(ctx, user, uuid.NewString(), LoginMethodPassword)
}

// Logout ends the session named by the token. Unknown or malformed tokens
// are ignored.
func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	claims, err := parseSessionToken(s.sessionSecret, rawToken)
	if err != nil {
		return nil
	}
	return s.destroySession(ctx, claims.UserID, claims.SessionID, true)
}

// Authenticate resolves a session token to its user. An expired provider
// token is refreshed; when that fails the session is destroyed.
func (s *AuthService) Authenticate(ctx context.Context, rawToken string) (*model.User, error) {
	claims, err := parseSessionToken(s.sessionSecret, rawToken)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	session, err := s.sessions.GetSession(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.UserID != claims.UserID {
		return nil, ErrUnauthenticated
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		_ = s.destroySession(ctx, claims.UserID, claims.SessionID, false)
		return nil, ErrUnauthenticated
	}

	if session.Method == LoginMethodOAuth {
		if err := s.ensureFreshToken(ctx, user.ID, session.ID); err != nil {
			s.logger.Info("oauth session ended", zap.Uint("user_id", user.ID), zap.Error(err))
			_ = s.destroySession(ctx, user.ID, session.ID, false)
			return nil, ErrUnauthenticated
		}
	}
	return user, nil
}

func (s *AuthService) GetUserByID(ctx context.Context, id uint) (*model.User, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	return s.userRepo.GetByID(ctx, id)
}

func (s *AuthService) startSession(ctx context.Context, user *model.User, sessionID, method string) (*LoginResult, error) {
	session := cache.Session{
		ID:        sessionID,
		UserID:    user.ID,
		Method:    method,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.sessions.SaveSession(ctx, session, s.sessionTTL); err != nil {
		return nil, err
	}
	token, expiresAt, err := issueSessionToken(s.sessionSecret, s.sessionTTL, user.ID, sessionID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("session started", zap.Uint("user_id", user.ID), zap.String("method", method))
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *AuthService) destroySession(ctx context.Context, userID uint, sessionID string, revoke bool) error {
	if err := s.sessions.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	if revoke && s.oauthOpts.RevokeURL != "" {
		token, err := s.tokenRepo.GetBySession(ctx, userID, sessionID, s.oauthOpts.Provider)
		if err != nil {
			s.logger.Warn("load oauth token for revoke failed", zap.Error(err))
		} else if token != nil {
			s.revoke(ctx, token)
		}
	}
	return s.tokenRepo.DeleteBySession(ctx, userID, sessionID)
}

func (s *AuthService) ensureFreshToken(ctx context.Context, userID uint, sessionID string) error {
	if s.oauth == nil {
		return ErrOAuthDisabled
	}
	stored, err := s.tokenRepo.GetBySession(ctx, userID, sessionID, s.oauthOpts.Provider)
	if err != nil {
		return err
	}
	if stored == nil {
		return fmt.Errorf("no oauth token for session")
	}
	if stored.Expiry.IsZero() || time.Now().Before(stored.Expiry) {
		return nil
	}

	current := &oauth2.Token{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		TokenType:    stored.TokenType,
		Expiry:       stored.Expiry,
	}
	refreshed, err := s.oauth.TokenSource(s.providerContext(ctx), current).Token()
	if err != nil {
		return fmt.Errorf("refresh oauth token failed: %w", err)
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = stored.RefreshToken
	}
	return s.tokenRepo.Upsert(ctx, s.tokenRecord(userID, sessionID, refreshed))
}

func (s *AuthService) revoke(ctx context.Context, token *model.OAuthToken) {
	form := url.Values{"token": {token.AccessToken}, "client_id": {s.oauthOpts.ClientID}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.oauthOpts.RevokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		s.logger.Warn("build revoke request failed", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("revoke oauth token failed", zap.Error(err))
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func (s *AuthService) tokenRecord(userID uint, sessionID string, token *oauth2.Token) *model.OAuthToken {
	tokenType := token.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &model.OAuthToken{
		UserID:            userID,
		Provider:          s.oauthOpts.Provider,
		BrowserSessionKey: sessionID,
		AccessToken:       token.AccessToken,
		RefreshToken:      token.RefreshToken,
		TokenType:         tokenType,
		Expiry:            token.Expiry,
	}
}

func (s *AuthService) providerContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

func (s *AuthService) initialRole(email string) model.Role {
	if s.admins.contains(email) {
		return model.RoleAdmin
	}
	return model.RoleEmployee
}

// providerUser accepts both OIDC claim names and the plain field names some
// providers return instead.
type providerUser struct {
	Sub             string `json:"sub"`
	ID              string `json:"id"`
	Email           string `json:"email"`
	GivenName       string `json:"given_name"`
	FirstName       string `json:"first_name"`
	FamilyName      string `json:"family_name"`
	LastName        string `json:"last_name"`
	Picture         string `json:"picture"`
	ProfileImageURL string `json:"profile_image_url"`
}

func (p providerUser) subject() string {
	return firstNonEmpty(p.Sub, p.ID)
}

func (s *AuthService) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*providerUser, error) {
	if s.oauthOpts.UserInfoURL == "" {
		return nil, fmt.Errorf("userinfo url not configured")
	}
	resp, err := s.oauth.Client(ctx, token).Get(s.oauthOpts.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("request userinfo failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info providerUser
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo failed: %w", err)
	}
	if info.subject() == "" || normalizeEmail(info.Email) == "" {
		return nil, fmt.Errorf("userinfo missing subject or email")
	}
	return &info, nil
}

// upsertOAuthUser matches by provider subject, then by email, and refreshes
// the profile fields on every login.
func (s *AuthService) upsertOAuthUser(ctx context.Context, info *providerUser) (*model.User, error) {
	subject := info.subject()
	email := normalizeEmail(info.Email)

	user, err := s.userRepo.GetByExternalID(ctx, subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		if user, err = s.userRepo.GetByEmail(ctx, email); err != nil {
			return nil, err
		}
	}

	firstName := firstNonEmpty(info.GivenName, info.FirstName)
	lastName := firstNonEmpty(info.FamilyName, info.LastName)
	picture := firstNonEmpty(info.Picture, info.ProfileImageURL)

	if user == nil {
		user = &model.User{
			ExternalID:      &subject,
			Email:           email,
			FirstName:       firstName,
			LastName:        lastName,
			ProfileImageURL: picture,
			Role:            s.initialRole(email),
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, err
		}
		s.logger.Info("user created from sso", zap.Uint("user_id", user.ID), zap.String("role", string(user.Role)))
		return user, nil
	}

	user.ExternalID = &subject
	user.Email = email
	if firstName != "" {
		user.FirstName = firstName
	}
	if lastName != "" {
		user.LastName = lastName
	}
	if picture != "" {
		user.ProfileImageURL = picture
	}
	if s.admins.contains(email) {
		user.Role = model.RoleAdmin
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func randomState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate oauth state failed: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

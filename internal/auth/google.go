package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	sharedauth "docanalyzer/internal/shared/auth"
	"docanalyzer/internal/shared/server/respond"
	"docanalyzer/internal/shared/telemetry"
)

const (
	defaultStateTTL = 5 * time.Minute
	googleUserInfo  = "https://www.googleapis.com/oauth2/v2/userinfo"
	googleSubPrefix = "google:"
)

// GoogleConfig holds the OAuth client settings and the UI landing page that
// receives the issued token.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	UIRedirect   string
	StateTTL     time.Duration
}

func (c GoogleConfig) configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURL != "" && c.UIRedirect != ""
}

// GoogleService turns a Google sign-in into a bearer token for the document
// endpoints. Signing in is optional; guests keep working without it.
type GoogleService struct {
	cfg         GoogleConfig
	oauth       *oauth2.Config
	userInfoURL string
	pending     *pendingLogins
	signer      *sharedauth.Signer
}

// NewGoogleService builds a GoogleService.
func NewGoogleService(cfg GoogleConfig, signer *sharedauth.Signer) *GoogleService {
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = defaultStateTTL
	}
	return &GoogleService{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: googleUserInfo,
		pending:     newPendingLogins(time.Now),
		signer:      signer,
	}
}

// RegisterRoutes attaches the sign-in routes.
func (s *GoogleService) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/google/start", s.start)
	rg.GET("/auth/google/callback", s.callback)
}

func (s *GoogleService) start(c *gin.Context) {
	if !s.cfg.configured() || s.signer == nil {
		respond.Error(c, http.StatusServiceUnavailable, "auth_not_configured", "Google sign-in is not configured", nil)
		return
	}

	returnTo, ok := safeReturnPath(c.Query("returnTo"))
	if !ok {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "returnTo must be a relative path", nil)
		return
	}

	state := uuid.NewString()
	s.pending.put(state, returnTo, s.cfg.StateTTL)
	c.Redirect(http.StatusFound, s.oauth.AuthCodeURL(state))
}

func (s *GoogleService) callback(c *gin.Context) {
	state := c.Query("state")
	login, ok := s.pending.consume(state)
	if state == "" || !ok {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid or expired state", nil)
		return
	}

	// The user declined consent or Google refused the request.
	if reason := c.Query("error"); reason != "" {
		telemetry.Warn("auth.google.denied", map[string]any{"reason": reason})
		s.redirectToUI(c, login.returnTo, url.Values{"error": {reason}})
		return
	}

	code := c.Query("code")
	if code == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "missing code", nil)
		return
	}

	ctx := c.Request.Context()
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		telemetry.Warn("auth.google.exchange_failed", map[string]any{"error": err.Error()})
		s.redirectToUI(c, login.returnTo, url.Values{"error": {"exchange_failed"}})
		return
	}

	profile, err := s.fetchProfile(ctx, token)
	if err != nil {
		telemetry.Error("auth.google.profile_failed", map[string]any{"error": err.Error()})
		respond.Error(c, http.StatusBadGateway, "auth_failed", "failed to fetch user profile", nil)
		return
	}

	claims := profile.claims()
	signed, err := s.signer.Sign(claims)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to issue token", nil)
		return
	}

	telemetry.Info("auth.google.login", map[string]any{"user_id": claims.Sub})
	s.redirectToUI(c, login.returnTo, url.Values{"token": {signed}})
}

func (s *GoogleService) redirectToUI(c *gin.Context, returnTo string, params url.Values) {
	target, err := uiURL(s.cfg.UIRedirect, returnTo, params)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "invalid UI redirect", nil)
		return
	}
	c.Redirect(http.StatusFound, target)
}

type googleProfile struct {
	Sub           string `json:"sub"`
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// claims maps a profile to token claims. Unverified addresses are dropped
// so they never show up as the owner's contact on /me.
func (p googleProfile) claims() sharedauth.Claims {
	claims := sharedauth.Claims{
		Sub:     googleSubPrefix + p.Sub,
		Name:    p.Name,
		Picture: p.Picture,
	}
	if p.VerifiedEmail {
		claims.Email = p.Email
	}
	return claims
}

func (s *GoogleService) fetchProfile(ctx context.Context, token *oauth2.Token) (googleProfile, error) {
	resp, err := s.oauth.Client(ctx, token).Get(s.userInfoURL)
	if err != nil {
		return googleProfile{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return googleProfile{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var profile googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return googleProfile{}, fmt.Errorf("decode userinfo: %w", err)
	}
	if profile.Sub == "" {
		profile.Sub = profile.ID
	}
	if profile.Sub == "" {
		return googleProfile{}, errors.New("userinfo without subject")
	}
	return profile, nil
}

type pendingLogin struct {
	expires  time.Time
	returnTo string
}

type pendingLogins struct {
	mu    sync.Mutex
	items map[string]pendingLogin
	now   func() time.Time
}

func newPendingLogins(now func() time.Time) *pendingLogins {
	return &pendingLogins{items: make(map[string]pendingLogin), now: now}
}

// put stores a login and drops any that already expired.
func (p *pendingLogins) put(state, returnTo string, ttl time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	for key, item := range p.items {
		if now.After(item.expires) {
			delete(p.items, key)
		}
	}
	p.items[state] = pendingLogin{expires: now.Add(ttl), returnTo: returnTo}
}

// consume is single use: a state is removed whether or not it expired.
func (p *pendingLogins) consume(state string) (pendingLogin, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	item, ok := p.items[state]
	if !ok {
		return pendingLogin{}, false
	}
	delete(p.items, state)
	if p.now().After(item.expires) {
		return pendingLogin{}, false
	}
	return item, true
}

func (p *pendingLogins) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// safeReturnPath accepts only same-origin paths so the callback cannot be
// turned into an open redirect.
func safeReturnPath(raw string) (string, bool) {
	if raw == "" {
		return "", true
	}
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, `\`) {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	return raw, true
}

func uiURL(base, returnTo string, params url.Values) (string, error) {
	if base == "" {
		return "", errors.New("redirect url required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	if returnTo != "" {
		q.Set("returnTo", returnTo)
	}
	for key, values := range params {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

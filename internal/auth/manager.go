package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/conexio/contactsync/internal/models"
	"github.com/conexio/contactsync/internal/remote"
)

// ErrNoCredential means no token row exists yet: an operator must complete
// the interactive grant before any remote call can be made.
var ErrNoCredential = errors.New("no credential stored, complete the interactive grant first")

// Scopes requested during the interactive grant.
var grantScopes = []string{
	"account_read",
	"account_update",
	"contact_data",
	"campaign_data",
	"offline_access",
}

// TokenRepo is the append-only credential store. Latest returns the most
// recently inserted row.
type TokenRepo interface {
	Insert(ctx context.Context, token *models.Token) error
	Latest(ctx context.Context) (*models.Token, error)
}

// Manager holds the OAuth2 credential pair and refreshes it when the access
// token expires. It satisfies remote.TokenSource for the data client.
type Manager struct {
	repo         TokenRepo
	client       *remote.Client
	baseURL      string
	version      string
	clientID     string
	clientSecret string
	redirectURI  string
	log          *zap.Logger
}

func NewManager(repo TokenRepo, client *remote.Client, baseURL, version, clientID, clientSecret, redirectURI string, log *zap.Logger) *Manager {
	return &Manager{
		repo:         repo,
		client:       client,
		baseURL:      strings.TrimRight(baseURL, "/"),
		version:      version,
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		log:          log,
	}
}

// AuthURL builds the interactive grant URL. The external callback collaborator
// sends the operator here; the resulting code comes back through Create.
func (m *Manager) AuthURL(state string) string {
	q := url.Values{}
	q.Set("client_id", m.clientID)
	q.Set("redirect_uri", m.redirectURI)
	q.Set("response_type", "code")
	q.Set("state", state)

	// The scope separator must stay a literal '+'.
	return m.endpoint("/authorize") + "?" + q.Encode() + "&scope=" + strings.Join(grantScopes, "+")
}

// Create performs the one-time authorization-code exchange and persists the
// initial credential pair.
func (m *Manager) Create(ctx context.Context, authCode string) (*models.Token, error) {
	form := url.Values{}
	form.Set("code", authCode)
	form.Set("redirect_uri", m.redirectURI)
	form.Set("grant_type", "authorization_code")

	return m.exchange(ctx, form)
}

// Get returns the current credential. The expiry check is local (JWT exp
// claim, no network); only an expired token triggers a refresh exchange,
// which is persisted as a new row. Old rows are retained for audit.
func (m *Manager) Get(ctx context.Context) (*models.Token, error) {
	token, err := m.repo.Latest(ctx)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, ErrNoCredential
	}

	if !expired(token.AccessToken) {
		return token, nil
	}

	m.log.Info("access token expired, refreshing")
	return m.refresh(ctx, token)
}

// AuthorizationHeader implements remote.TokenSource.
func (m *Manager) AuthorizationHeader(ctx context.Context) (string, error) {
	token, err := m.Get(ctx)
	if err != nil {
		return "", err
	}
	return token.AuthorizationHeader(), nil
}

func (m *Manager) refresh(ctx context.Context, token *models.Token) (*models.Token, error) {
	form := url.Values{}
	form.Set("refresh_token", token.RefreshToken)
	form.Set("grant_type", "refresh_token")

	return m.exchange(ctx, form)
}

func (m *Manager) exchange(ctx context.Context, form url.Values) (*models.Token, error) {
	data, err := m.client.PostForm(ctx, m.endpoint("/token"), form, m.clientID, m.clientSecret)
	if err != nil {
		return nil, err
	}

	var body struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		Scope        string `json:"scope"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, err
	}
	if body.RefreshToken == "" {
		return nil, fmt.Errorf("token response does not contain refresh_token")
	}

	token := &models.Token{
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
		TokenType:    body.TokenType,
		Scope:        body.Scope,
	}
	if err := m.repo.Insert(ctx, token); err != nil {
		return nil, err
	}

	m.log.Info("credential stored", zap.Int64("token_id", token.ID))
	return token, nil
}

func (m *Manager) endpoint(path string) string {
	return m.baseURL + m.version + path
}

// expired reports whether the access token's exp claim has passed. The claim
// is read without signature verification: verification requires the issuer's
// key set, and a forged local row only yields a 401 from the remote service.
// Malformed tokens count as expired so a refresh is attempted.
func expired(accessToken string) bool {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return exp.Before(time.Now().Add(30 * time.Second))
}

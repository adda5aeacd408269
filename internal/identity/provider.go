package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lablink/dispatcher-core/internal/infrastructure/config"
	"github.com/lablink/dispatcher-core/internal/infrastructure/logging"
)

// requestTimeout bounds each call to the identity provider.
const requestTimeout = 10 * time.Second

// Identity is the profile returned by the provider after a successful
// authorization code exchange. The dispatcher never interprets the token;
// it is passed through to the front end as-is.
type Identity struct {
	Token string `json:"token"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Provider exchanges OAuth authorization codes against an external identity
// provider. The provider is a black box reached over plain HTTP calls:
// one POST to the token endpoint, one GET to the userinfo endpoint.
type Provider struct {
	cfg    config.IdentityConfig
	client *http.Client
	logger *logging.Logger
}

// New creates an identity provider client.
func New(cfg config.IdentityConfig, logger *logging.Logger) *Provider {
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: requestTimeout},
		logger: logger.With("component", "identity"),
	}
}

// AuthCodeURL builds the provider authorization URL the login handler
// redirects to.
func (p *Provider) AuthCodeURL() string {
	params := url.Values{
		"client_id":     {p.cfg.ClientID},
		"redirect_uri":  {p.cfg.RedirectURL},
		"response_type": {"code"},
		"scope":         {"openid email profile"},
	}
	return p.cfg.AuthURL + "?" + params.Encode()
}

// SuccessURL returns the front-end URL the callback redirects to after a
// successful exchange.
func (p *Provider) SuccessURL() string {
	return p.cfg.SuccessURL
}

// Exchange trades an authorization code for a token and the holder's
// profile.
func (p *Provider) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := p.exchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}

	name, email, err := p.fetchProfile(ctx, token)
	if err != nil {
		return nil, err
	}

	p.logger.Info("identity exchange completed", "email", email)

	return &Identity{
		Token: token,
		Name:  name,
		Email: email,
	}, nil
}

// exchangeCode posts the authorization code to the token endpoint.
func (p *Provider) exchangeCode(ctx context.Context, code string) (string, error) {
	form := url.Values{
		"code":          {code},
		"client_id":     {p.cfg.ClientID},
		"client_secret": {p.cfg.ClientSecret},
		"redirect_uri":  {p.cfg.RedirectURL},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512)) //nolint:errcheck // Body only read for the error message
		return "", fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned no access token")
	}

	return tokenResp.AccessToken, nil
}

// fetchProfile reads the token holder's name and email from the userinfo
// endpoint.
func (p *Provider) fetchProfile(ctx context.Context, token string) (name, email string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.UserInfoURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("building userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("requesting userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("userinfo endpoint returned %d", resp.StatusCode)
	}

	var profile struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return "", "", fmt.Errorf("decoding userinfo response: %w", err)
	}

	return profile.Name, profile.Email, nil
}

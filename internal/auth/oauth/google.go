package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	dErrors "pymegate/pkg/domain-errors"
)

const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserinfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// Google redeems authorization codes directly against Google's token
// endpoint and reads the profile from the OpenID userinfo endpoint.
type Google struct {
	clientID     string
	clientSecret string
	redirectURL  string

	httpClient  *http.Client
	tokenURL    string
	userinfoURL string
}

type GoogleOption func(*Google)

// WithHTTPClient overrides the outbound client, mainly for tests.
func WithHTTPClient(client *http.Client) GoogleOption {
	return func(g *Google) { g.httpClient = client }
}

// WithEndpoints overrides Google's endpoints, mainly for tests.
func WithEndpoints(tokenURL, userinfoURL string) GoogleOption {
	return func(g *Google) {
		g.tokenURL = tokenURL
		g.userinfoURL = userinfoURL
	}
}

func NewGoogle(clientID, clientSecret, redirectURL string, opts ...GoogleOption) *Google {
	g := &Google{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURL:  redirectURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		tokenURL:     googleTokenURL,
		userinfoURL:  googleUserinfoURL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Google) Name() string { return "google" }

func (g *Google) AuthCodeURL(state string) string {
	q := url.Values{
		"client_id":     {g.clientID},
		"redirect_uri":  {g.redirectURL},
		"response_type": {"code"},
		"scope":         {"openid email profile"},
		"state":         {state},
	}
	return googleAuthURL + "?" + q.Encode()
}

func (g *Google) Exchange(ctx context.Context, code string) (Profile, error) {
	accessToken, err := g.redeemCode(ctx, code)
	if err != nil {
		return Profile{}, err
	}
	return g.fetchProfile(ctx, accessToken)
}

func (g *Google) redeemCode(ctx context.Context, code string) (string, error) {
	form := url.Values{
		"code":          {code},
		"client_id":     {g.clientID},
		"client_secret": {g.clientSecret},
		"redirect_uri":  {g.redirectURL},
		"grant_type":    {"authorization_code"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to build token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "token endpoint unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read token response")
	}
	if resp.StatusCode != http.StatusOK {
		// Google answers 4xx for revoked or already-used codes.
		return "", dErrors.New(dErrors.CodeUnauthorized,
			fmt.Sprintf("authorization code rejected (status %d)", resp.StatusCode))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed token response")
	}
	if payload.AccessToken == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "token response carried no access token")
	}
	return payload.AccessToken, nil
}

func (g *Google) fetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userinfoURL, nil)
	if err != nil {
		return Profile{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build userinfo request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Profile{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "userinfo endpoint unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Profile{}, dErrors.New(dErrors.CodeUnauthorized,
			fmt.Sprintf("userinfo rejected the access token (status %d)", resp.StatusCode))
	}

	var payload struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return Profile{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed userinfo response")
	}
	if payload.Email == "" {
		return Profile{}, dErrors.New(dErrors.CodeUnauthorized, "provider returned no email")
	}
	return Profile{Email: payload.Email, DisplayName: payload.Name}, nil
}

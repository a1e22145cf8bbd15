package store

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultScopes grants read/write access to the store's values API.
var DefaultScopes = []string{"https://www.googleapis.com/auth/spreadsheets"}

const (
	jwtBearerGrant    = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	assertionLifetime = time.Hour
	maxAuthResponse   = 1 << 20
)

// Credentials is a service-account key as issued by the store provider.
// The PEM private key is parsed once at load time.
type Credentials struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`

	key *rsa.PrivateKey
}

// LoadCredentials reads and parses a service-account key file.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("%w: read key file: %v", ErrInvalidCredentials, err)
	}
	return ParseCredentials(data)
}

// ParseCredentials parses a service-account key from its JSON form.
func ParseCredentials(data []byte) (*Credentials, error) {
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	if creds.ClientEmail == "" || creds.PrivateKey == "" {
		return nil, fmt.Errorf("%w: client_email and private_key are required", ErrInvalidCredentials)
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(creds.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	creds.key = key
	return &creds, nil
}

// Assertion builds and signs the bearer-grant JWT presented to the auth
// endpoint during session establishment. An empty scope list falls back to
// DefaultScopes.
func (c *Credentials) Assertion(audience string, now time.Time, scopes []string) (string, error) {
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	claims := jwt.MapClaims{
		"iss":   c.ClientEmail,
		"scope": strings.Join(scopes, " "),
		"aud":   audience,
		"iat":   now.Unix(),
		"exp":   now.Add(assertionLifetime).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("%w: sign assertion: %v", ErrSessionFailed, err)
	}
	return signed, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// exchangeToken trades a signed assertion for a bearer token.
func exchangeToken(ctx context.Context, client *http.Client, endpoint, assertion string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", jwtBearerGrant)
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSessionFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSessionFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAuthResponse))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrSessionFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: auth endpoint returned %d", ErrSessionFailed, resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrSessionFailed, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrSessionFailed)
	}
	return tok.AccessToken, nil
}

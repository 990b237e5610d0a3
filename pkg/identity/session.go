// Package identity extracts the caller's session from incoming requests.
// Tokens are issued by the enterprise Cognito user pool; the access engine
// only needs the verified email and group claims out of them.
package identity

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Session is the verified caller identity attached to a request.
type Session struct {
	Email  string
	Name   string
	Groups []string
	Admin  bool
}

// SessionProvider turns an incoming request into a verified session.
type SessionProvider interface {
	SessionFromRequest(ctx context.Context, r *http.Request) (*Session, error)
}

// OIDCConfig configures token verification against the identity provider.
type OIDCConfig struct {
	IssuerURL  string
	ClientID   string
	AdminGroup string
}

// OIDCProvider verifies bearer tokens against the configured OIDC issuer.
type OIDCProvider struct {
	verifier   *oidc.IDTokenVerifier
	adminGroup string
}

// NewOIDCProvider discovers the issuer and builds a token verifier.
func NewOIDCProvider(ctx context.Context, config OIDCConfig) (*OIDCProvider, error) {
	provider, err := oidc.NewProvider(ctx, config.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC issuer: %w", err)
	}
	return &OIDCProvider{
		verifier:   provider.Verifier(&oidc.Config{ClientID: config.ClientID}),
		adminGroup: config.AdminGroup,
	}, nil
}

// tokenClaims is the subset of ID token claims the engine consumes.
// Cognito delivers group membership in the cognito:groups claim.
type tokenClaims struct {
	Email         string   `json:"email"`
	Name          string   `json:"name"`
	CognitoGroups []string `json:"cognito:groups"`
}

// SessionFromRequest verifies the bearer token and extracts the session.
func (p *OIDCProvider) SessionFromRequest(ctx context.Context, r *http.Request) (*Session, error) {
	raw, err := bearerToken(r)
	if err != nil {
		return nil, err
	}

	token, err := p.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	var claims tokenClaims
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse token claims: %w", err)
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("token missing email claim")
	}

	return &Session{
		Email:  claims.Email,
		Name:   claims.Name,
		Groups: claims.CognitoGroups,
		Admin:  p.isAdmin(claims.CognitoGroups),
	}, nil
}

func (p *OIDCProvider) isAdmin(groups []string) bool {
	if p.adminGroup == "" {
		return false
	}
	for _, g := range groups {
		if strings.EqualFold(g, p.adminGroup) {
			return true
		}
	}
	return false
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing Authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", fmt.Errorf("malformed Authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// StaticProvider resolves sessions from a trusted proxy header. Intended for
// local development and tests only.
type StaticProvider struct {
	AdminGroup string
}

// SessionFromRequest reads X-User-Email and X-User-Groups headers verbatim.
func (p *StaticProvider) SessionFromRequest(_ context.Context, r *http.Request) (*Session, error) {
	email := strings.TrimSpace(r.Header.Get("X-User-Email"))
	if email == "" {
		return nil, fmt.Errorf("missing X-User-Email header")
	}
	var groups []string
	for _, g := range strings.Split(r.Header.Get("X-User-Groups"), ",") {
		if g = strings.TrimSpace(g); g != "" {
			groups = append(groups, g)
		}
	}
	admin := false
	if p.AdminGroup != "" {
		for _, g := range groups {
			if strings.EqualFold(g, p.AdminGroup) {
				admin = true
			}
		}
	}
	return &Session{Email: email, Name: r.Header.Get("X-User-Name"), Groups: groups, Admin: admin}, nil
}

package internal

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// GoogleUserInfoURL is the OpenID Connect userinfo endpoint for Google accounts
const GoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// Authenticator resolves the identity of the current caller
type Authenticator interface {
	CurrentIdentity(ctx context.Context) (Identity, bool)
}

type identityKey struct{}

// WithIdentity attaches an identity to ctx
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity attached by WithIdentity
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok || id.UserID == "" {
		return Identity{}, false
	}
	return id, true
}

// ContextAuth reads the identity placed on the request context by the HTTP middleware
type ContextAuth struct{}

func (ContextAuth) CurrentIdentity(ctx context.Context) (Identity, bool) {
	return IdentityFromContext(ctx)
}

// StaticAuth always acts as one configured user. Used by the CLI and MCP server.
type StaticAuth struct {
	Identity Identity
}

func (a StaticAuth) CurrentIdentity(ctx context.Context) (Identity, bool) {
	if id, ok := IdentityFromContext(ctx); ok {
		return id, true
	}
	return a.Identity, a.Identity.UserID != ""
}

func requireIdentity(ctx context.Context, auth Authenticator) (Identity, error) {
	if auth == nil {
		return Identity{}, ErrUnauthenticated
	}
	id, ok := auth.CurrentIdentity(ctx)
	if !ok || id.UserID == "" {
		return Identity{}, ErrUnauthenticated
	}
	return id, nil
}

// TokenResolver maps a bearer token to the user it was issued for
type TokenResolver interface {
	Resolve(ctx context.Context, accessToken string) (Identity, error)
}

// GoogleTokenResolver asks the Google userinfo endpoint who owns an access token
type GoogleTokenResolver struct {
	UserInfoURL string
}

// NewGoogleTokenResolver creates a resolver; an empty URL selects Google's endpoint
func NewGoogleTokenResolver(userInfoURL string) *GoogleTokenResolver {
	if userInfoURL == "" {
		userInfoURL = GoogleUserInfoURL
	}
	return &GoogleTokenResolver{UserInfoURL: userInfoURL}
}

func (g *GoogleTokenResolver) Resolve(ctx context.Context, accessToken string) (Identity, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.UserInfoURL, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("creating userinfo request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("calling userinfo endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("userinfo endpoint returned %s", resp.Status)
	}

	var info struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Identity{}, fmt.Errorf("decoding userinfo: %w", err)
	}
	if info.Sub == "" {
		return Identity{}, fmt.Errorf("userinfo response has no subject")
	}

	return Identity{UserID: info.Sub, Email: info.Email}, nil
}

// IdentityMiddleware attaches the caller's identity to the request context.
// Service callers present X-API-Key and X-User-ID; end users present a Google
// bearer token. Requests without valid credentials pass through anonymously.
func IdentityMiddleware(apiKey string, resolver TokenResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if key := r.Header.Get("X-API-Key"); key != "" {
				if apiKey != "" && subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
					if userID := r.Header.Get("X-User-ID"); userID != "" {
						ctx = WithIdentity(ctx, Identity{UserID: userID})
					}
				} else {
					logger.Warn("rejected api key", slog.String("path", r.URL.Path))
				}
			} else if token, ok := bearerToken(r); ok && resolver != nil {
				id, err := resolver.Resolve(ctx, token)
				if err != nil {
					logger.Warn("resolving bearer token", slog.Any("error", err))
				} else {
					ctx = WithIdentity(ctx, id)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

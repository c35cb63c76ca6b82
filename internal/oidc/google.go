package oidc

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Identity carries the claims this service consumes from a verified Google
// ID token. Subject is the stable Google account identifier.
type Identity struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}

// Verifier validates an externally-issued ID token and extracts its identity
// claims. Implementations must reject tokens with invalid signatures, expired
// tokens, and tokens whose audience does not match the configured client ID.
type Verifier interface {
	Verify(ctx context.Context, rawIDToken string) (*Identity, error)
}

// GoogleVerifier verifies Google ID tokens against Google's published keys.
// The underlying go-oidc provider owns key fetching and caching.
type GoogleVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewGoogleVerifier discovers the issuer's configuration and returns a
// verifier bound to the given audience (the OAuth client ID).
func NewGoogleVerifier(ctx context.Context, issuer, clientID string) (*GoogleVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: clientID})
	return &GoogleVerifier{verifier: verifier}, nil
}

func (v *GoogleVerifier) Verify(ctx context.Context, rawIDToken string) (*Identity, error) {
	idToken, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, err
	}
	var ident Identity
	if err := idToken.Claims(&ident); err != nil {
		return nil, err
	}
	if ident.Subject == "" {
		return nil, fmt.Errorf("id token has no sub claim")
	}
	return &ident, nil
}

package identity

import (
	"context"
	"fmt"
	"time"

	keyfunc "github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// JWKSVerifier valida tokens firmados por el proveedor contra su JWKS.
// Las claves se refrescan automáticamente en segundo plano.
type JWKSVerifier struct {
	keyfunc  jwt.Keyfunc
	issuer   string
	audience string
}

// NewJWKSVerifier inicializa el verificador descargando el JWKS del proveedor.
func NewJWKSVerifier(ctx context.Context, jwksURL, issuer, audience string) (*JWKSVerifier, error) {
	kf, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("jwks init failed: %w", err)
	}
	return &JWKSVerifier{
		keyfunc:  kf.Keyfunc,
		issuer:   issuer,
		audience: audience,
	}, nil
}

type providerClaims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

func (v *JWKSVerifier) Verify(_ context.Context, credential string) (Claim, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var claims providerClaims
	token, err := jwt.ParseWithClaims(credential, &claims, v.keyfunc, opts...)
	if err != nil || !token.Valid {
		// Expirado, malformado o firma inválida: todos colapsan en uno.
		return Claim{}, ErrInvalidCredential
	}
	if claims.Subject == "" {
		return Claim{}, ErrInvalidCredential
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return Claim{
		Subject:     claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.Name,
		ExpiresAt:   expiresAt,
	}, nil
}

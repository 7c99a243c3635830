package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	localIssuerName = "mernapp-auth/local"
	localTokenTTL   = time.Hour
	minSecretLen    = 6
)

// LocalProvider emite y verifica identidades en memoria con tokens HS256.
// Sustituye al proveedor remoto en desarrollo y tests; no es para producción.
type LocalProvider struct {
	secret []byte

	mu       sync.Mutex
	accounts map[string]localAccount // por email normalizado
}

type localAccount struct {
	subject    string
	secretHash string
}

// NewLocalProvider crea un proveedor local con el secreto HS256 dado.
func NewLocalProvider(secret string) *LocalProvider {
	return &LocalProvider{
		secret:   []byte(secret),
		accounts: make(map[string]localAccount),
	}
}

// Issue registra una cuenta nueva y devuelve su subject. Replica los
// rechazos del proveedor real: email duplicado, secreto débil, email inválido.
func (p *LocalProvider) Issue(_ context.Context, email, secret string) (string, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return "", &IssueError{Reason: ReasonInvalidEmail, Code: "INVALID_EMAIL"}
	}
	if len(secret) < minSecretLen {
		return "", &IssueError{Reason: ReasonWeakSecret, Code: "WEAK_PASSWORD"}
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.accounts[email]; exists {
		return "", &IssueError{Reason: ReasonEmailExists, Code: "EMAIL_EXISTS"}
	}

	subject := uuid.NewString()
	p.accounts[email] = localAccount{
		subject:    subject,
		secretHash: string(hashBytes),
	}
	return subject, nil
}

// SignIn valida email y secreto contra una cuenta registrada y devuelve un
// token bearer firmado. Es el equivalente local del login de password del
// proveedor remoto.
func (p *LocalProvider) SignIn(_ context.Context, email, secret string) (string, error) {
	email = normalizeEmail(email)

	p.mu.Lock()
	account, ok := p.accounts[email]
	p.mu.Unlock()
	if !ok {
		return "", ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.secretHash), []byte(secret)); err != nil {
		return "", ErrInvalidCredential
	}

	return p.MintToken(account.subject, email, "", localTokenTTL)
}

// MintToken firma un token HS256 para el subject dado. Expuesto para que los
// tests y el modo desarrollo puedan fabricar credenciales verificables.
func (p *LocalProvider) MintToken(subject, email, name string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := providerClaims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    localIssuerName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.secret)
}

func (p *LocalProvider) Verify(_ context.Context, credential string) (Claim, error) {
	var claims providerClaims
	token, err := jwt.ParseWithClaims(credential, &claims,
		func(t *jwt.Token) (any, error) { return p.secret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(localIssuerName),
	)
	if err != nil || !token.Valid || claims.Subject == "" {
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

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

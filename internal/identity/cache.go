package identity

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisClaimStore es el subconjunto de go-redis que usa el cache.
type redisClaimStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedVerifier envuelve un Verifier y cachea verificaciones exitosas en
// redis. Nunca cachea fallos, y el TTL no excede la vida restante del token.
type CachedVerifier struct {
	next   Verifier
	client redisClaimStore
	maxTTL time.Duration
	prefix string
}

type cachedClaim struct {
	Subject     string    `json:"sub"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"name,omitempty"`
	ExpiresAt   time.Time `json:"exp"`
}

// NewCachedVerifier construye el cache sobre el verificador dado.
func NewCachedVerifier(next Verifier, client *redis.Client, maxTTL time.Duration) *CachedVerifier {
	if maxTTL <= 0 {
		maxTTL = time.Minute
	}
	return &CachedVerifier{
		next:   next,
		client: client,
		maxTTL: maxTTL,
		prefix: "idtok:",
	}
}

func (v *CachedVerifier) Verify(ctx context.Context, credential string) (Claim, error) {
	if v.client == nil {
		return v.next.Verify(ctx, credential)
	}

	key := v.prefix + hashCredential(credential)
	if raw, err := v.client.Get(ctx, key).Result(); err == nil {
		var cc cachedClaim
		if err := json.Unmarshal([]byte(raw), &cc); err == nil {
			if cc.ExpiresAt.IsZero() || time.Now().UTC().Before(cc.ExpiresAt) {
				return Claim{
					Subject:     cc.Subject,
					Email:       cc.Email,
					DisplayName: cc.DisplayName,
					ExpiresAt:   cc.ExpiresAt,
				}, nil
			}
		}
	}

	claim, err := v.next.Verify(ctx, credential)
	if err != nil {
		return Claim{}, err
	}

	ttl := v.maxTTL
	if !claim.ExpiresAt.IsZero() {
		if remaining := time.Until(claim.ExpiresAt); remaining < ttl {
			ttl = remaining
		}
	}
	if ttl > 0 {
		payload, err := json.Marshal(cachedClaim{
			Subject:     claim.Subject,
			Email:       claim.Email,
			DisplayName: claim.DisplayName,
			ExpiresAt:   claim.ExpiresAt,
		})
		if err == nil {
			// Best effort: un fallo de redis no invalida la verificación.
			_ = v.client.Set(ctx, key, payload, ttl).Err()
		}
	}

	return claim, nil
}

func hashCredential(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

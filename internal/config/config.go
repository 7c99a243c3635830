package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"5000"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Proveedor de identidad remoto (modo producción). Si IdentityBaseURL
	// está vacío el servicio arranca con el proveedor local de desarrollo.
	IdentityBaseURL  string `env:"IDENTITY_BASE_URL"`
	IdentityAPIKey   string `env:"IDENTITY_API_KEY"`
	IdentityJWKSURL  string `env:"IDENTITY_JWKS_URL"`
	IdentityIssuer   string `env:"IDENTITY_ISSUER"`
	IdentityAudience string `env:"IDENTITY_AUDIENCE"`

	// Secreto HS256 del proveedor local de desarrollo.
	LocalAuthSecret string `env:"LOCAL_AUTH_SECRET"`

	RedisAddr         string `env:"REDIS_ADDR"`
	RedisPassword     string `env:"REDIS_PASSWORD"`
	RedisDB           int    `env:"REDIS_DB" envDefault:"0"`
	ClaimCacheTTLSecs int    `env:"CLAIM_CACHE_TTL_SECONDS" envDefault:"60"`

	CORSAllowOrigin string `env:"CORS_ALLOW_ORIGIN" envDefault:"*"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mernapp-auth/internal/identity"
)

const authClaimKey = "auth_claim"

// ErrMissingCredential cubre header ausente, esquema distinto de Bearer o
// credencial vacía. Se distingue de una credencial presente pero inválida.
var ErrMissingCredential = errors.New("missing credential")

// ExtractBearer saca la credencial de un header Authorization con forma
// exacta "Bearer <credencial>".
func ExtractBearer(header string) (string, error) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", ErrMissingCredential
	}
	credential := strings.TrimSpace(header[len("Bearer "):])
	if credential == "" {
		return "", ErrMissingCredential
	}
	return credential, nil
}

// BearerAuthMiddleware valida la credencial bearer con el verificador y
// guarda el claim en el contexto del request. Cualquier fallo de verificación
// responde 401 sin distinguir la causa. No toca el store de usuarios.
func BearerAuthMiddleware(verifier identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		credential, err := ExtractBearer(c.GetHeader("Authorization"))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: No token provided"})
			c.Abort()
			return
		}

		claim, err := verifier.Verify(c.Request.Context(), credential)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid token"})
			c.Abort()
			return
		}

		c.Set(authClaimKey, claim)
		c.Next()
	}
}

// GetAuthClaim obtiene el claim verificado desde el contexto del request.
func GetAuthClaim(c *gin.Context) (identity.Claim, bool) {
	val, ok := c.Get(authClaimKey)
	if !ok {
		return identity.Claim{}, false
	}
	claim, ok := val.(identity.Claim)
	return claim, ok
}

package identity

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Claim es la identidad verificada que produce el proveedor por request.
// Vive solo durante el request que la produjo; nunca se persiste.
type Claim struct {
	Subject     string
	Email       string
	DisplayName string
	ExpiresAt   time.Time
}

// Verifier valida una credencial bearer opaca y devuelve el claim verificado.
type Verifier interface {
	Verify(ctx context.Context, credential string) (Claim, error)
}

// Issuer registra una identidad nueva con el proveedor y devuelve su subject.
type Issuer interface {
	Issue(ctx context.Context, email, secret string) (string, error)
}

// ErrInvalidCredential cubre cualquier fallo de verificación. Los sub-errores
// del proveedor (expirado, malformado, firma) no salen de este paquete.
var ErrInvalidCredential = errors.New("identity: invalid credential")

// RejectReason clasifica los rechazos de emisión del proveedor.
type RejectReason string

const (
	ReasonEmailExists  RejectReason = "email_exists"
	ReasonWeakSecret   RejectReason = "weak_secret"
	ReasonInvalidEmail RejectReason = "invalid_email"
	ReasonUnknown      RejectReason = "unknown"
)

// IssueError es un rechazo de emisión con su razón clasificada.
type IssueError struct {
	Reason RejectReason
	Code   string
}

func (e *IssueError) Error() string {
	return fmt.Sprintf("identity: issuance rejected (%s)", e.Reason)
}

// providerCodes mapea los códigos de error del proveedor a razones locales.
// La tabla es finita a propósito: un código nuevo cae en ReasonUnknown.
var providerCodes = map[string]RejectReason{
	"EMAIL_EXISTS":                ReasonEmailExists,
	"WEAK_PASSWORD":               ReasonWeakSecret,
	"INVALID_PASSWORD":            ReasonWeakSecret,
	"MISSING_PASSWORD":            ReasonWeakSecret,
	"INVALID_EMAIL":               ReasonInvalidEmail,
	"MISSING_EMAIL":               ReasonInvalidEmail,
	"OPERATION_NOT_ALLOWED":       ReasonUnknown,
	"TOO_MANY_ATTEMPTS_TRY_LATER": ReasonUnknown,
}

// ClassifyProviderCode traduce un código del proveedor a una razón local.
func ClassifyProviderCode(code string) RejectReason {
	if reason, ok := providerCodes[code]; ok {
		return reason
	}
	return ReasonUnknown
}

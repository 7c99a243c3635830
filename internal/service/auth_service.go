package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"mernapp-auth/internal/domain"
	"mernapp-auth/internal/identity"
	"mernapp-auth/internal/repository"
)

var (
	ErrInvalidCredential  = errors.New("invalid credential")
	ErrUserNotProvisioned = errors.New("user not provisioned")
	ErrUserNotFound       = errors.New("user not found")
)

// SignupRejectedError es un rechazo del proveedor durante el registro, con
// la razón clasificada (email duplicado, secreto débil, email inválido).
type SignupRejectedError struct {
	Reason identity.RejectReason
}

func (e *SignupRejectedError) Error() string {
	return fmt.Sprintf("signup rejected: %s", e.Reason)
}

// PartialSignupError señala el estado inconsistente donde la identidad ya
// existe en el proveedor pero el registro local no se pudo persistir. No se
// intenta rollback compensatorio; el subject queda en el error para que un
// operador pueda reconciliar.
type PartialSignupError struct {
	Subject string
	Err     error
}

func (e *PartialSignupError) Error() string {
	return fmt.Sprintf("partial signup for subject %s: %v", e.Subject, e.Err)
}

func (e *PartialSignupError) Unwrap() error { return e.Err }

// Fallbacks para sign-in federado cuando el proveedor no asevera email o nombre.
const (
	fallbackEmailDomain = "@mernapp.com"
	fallbackDisplayName = "Google User"
)

// AuthService coordina verificación de credenciales, emisión de identidades
// y reconciliación contra el registro local de usuarios.
type AuthService struct {
	logger   *zap.Logger
	users    repository.UserRepository
	verifier identity.Verifier
	issuer   identity.Issuer
}

func NewAuthService(logger *zap.Logger, users repository.UserRepository, verifier identity.Verifier, issuer identity.Issuer) *AuthService {
	return &AuthService{
		logger:   logger,
		users:    users,
		verifier: verifier,
		issuer:   issuer,
	}
}

// Reconcile mapea un claim verificado al registro local canónico, creándolo
// la primera vez que se ve el subject. Es idempotente: llamadas repetidas con
// el mismo subject devuelven siempre el mismo registro y nunca duplican.
func (s *AuthService) Reconcile(ctx context.Context, claim identity.Claim, fallbackEmail, fallbackName string) (domain.User, error) {
	existing, err := s.users.GetBySubject(ctx, claim.Subject)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}

	email := claim.Email
	if email == "" {
		email = fallbackEmail
	}
	name := claim.DisplayName
	if name == "" {
		name = fallbackName
	}

	user := domain.User{
		SubjectID:   claim.Subject,
		Email:       email,
		DisplayName: name,
		CreatedAt:   time.Now().UTC(),
	}

	err = s.users.Create(ctx, user)
	if errors.Is(err, repository.ErrDuplicateSubject) {
		// Otro request ganó la carrera de primera vista: el registro que
		// existe es semánticamente idéntico, así que se relee y se devuelve.
		winner, readErr := s.users.GetBySubject(ctx, claim.Subject)
		if readErr != nil {
			return domain.User{}, fmt.Errorf("reread after conflict: %w", readErr)
		}
		return winner, nil
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

type SignupInput struct {
	Email       string
	Secret      string
	DisplayName string
}

// Signup emite una identidad nueva con el proveedor y persiste el registro
// local sin pasar por find: el subject recién emitido es nuevo por definición.
// La unicidad de email la garantiza el proveedor en la emisión.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (domain.User, error) {
	subject, err := s.issuer.Issue(ctx, input.Email, input.Secret)
	if err != nil {
		var issueErr *identity.IssueError
		if errors.As(err, &issueErr) {
			return domain.User{}, &SignupRejectedError{Reason: issueErr.Reason}
		}
		return domain.User{}, fmt.Errorf("issue identity: %w", err)
	}

	user := domain.User{
		SubjectID:   subject,
		Email:       input.Email,
		DisplayName: input.DisplayName,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		s.logger.Error("local record missing for issued identity",
			zap.String("subject", subject),
			zap.Error(err),
		)
		return domain.User{}, &PartialSignupError{Subject: subject, Err: err}
	}

	return user, nil
}

// Login verifica la credencial y busca el registro local. Nunca crea: el
// login presupone que el signup ya corrió.
func (s *AuthService) Login(ctx context.Context, credential string) (domain.User, error) {
	claim, err := s.verifier.Verify(ctx, credential)
	if err != nil {
		return domain.User{}, ErrInvalidCredential
	}

	user, err := s.users.GetBySubject(ctx, claim.Subject)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrUserNotProvisioned
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// FederatedSignIn verifica la credencial del broker federado y reconcilia.
// A diferencia del login, este camino sí auto-provisiona a primera vista:
// el proveedor federado ya hizo una verificación equivalente al signup.
func (s *AuthService) FederatedSignIn(ctx context.Context, credential string) (domain.User, error) {
	claim, err := s.verifier.Verify(ctx, credential)
	if err != nil {
		return domain.User{}, ErrInvalidCredential
	}

	fallbackEmail := "user_" + claim.Subject + fallbackEmailDomain
	return s.Reconcile(ctx, claim, fallbackEmail, fallbackDisplayName)
}

// Profile busca el registro local de un subject ya autenticado. Solo lectura.
func (s *AuthService) Profile(ctx context.Context, subject string) (domain.User, error) {
	user, err := s.users.GetBySubject(ctx, subject)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

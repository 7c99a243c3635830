package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mernapp-auth/internal/service"
)

// AuthHandler mantiene dependencias para los endpoints de autenticación.
type AuthHandler struct {
	logger   *zap.Logger
	authServ *service.AuthService
}

// NewAuthHandler crea una instancia de AuthHandler con dependencias necesarias.
func NewAuthHandler(logger *zap.Logger, authServ *service.AuthService) *AuthHandler {
	return &AuthHandler{
		logger:   logger,
		authServ: authServ,
	}
}

// Signup maneja POST /users/signup.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
		Name     string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid signup request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.authServ.Signup(c.Request.Context(), service.SignupInput{
		Email:       req.Email,
		Secret:      req.Password,
		DisplayName: req.Name,
	})
	if err != nil {
		var rejected *service.SignupRejectedError
		if errors.As(err, &rejected) {
			c.JSON(http.StatusBadRequest, gin.H{"error": string(rejected.Reason)})
			return
		}
		var partial *service.PartialSignupError
		if errors.As(err, &partial) {
			h.logger.Error("signup left orphaned identity", zap.String("subject", partial.Subject), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not complete signup"})
			return
		}
		h.logger.Error("signup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not complete signup"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User created successfully", "uid": user.SubjectID})
}

// Login maneja POST /users/login. La credencial puede venir en el header
// Authorization o como idToken en el body.
func (h *AuthHandler) Login(c *gin.Context) {
	credential, err := h.credentialFromRequest(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: No token provided"})
		return
	}

	user, err := h.authServ.Login(c.Request.Context(), credential)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredential):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		case errors.Is(err, service.ErrUserNotProvisioned):
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found in database"})
		default:
			h.logger.Error("login failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "user": user})
}

// GoogleSignIn maneja POST /users/google-signin.
func (h *AuthHandler) GoogleSignIn(c *gin.Context) {
	credential, err := h.credentialFromRequest(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: No token provided"})
		return
	}

	user, err := h.authServ.FederatedSignIn(c.Request.Context(), credential)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredential) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid Google token"})
			return
		}
		h.logger.Error("google sign-in failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Google Sign-In successful", "user": user})
}

// Profile maneja GET /users/profile. Corre detrás del gate bearer; el claim
// del contexto es la única fuente de identidad confiable del request.
func (h *AuthHandler) Profile(c *gin.Context) {
	claim, ok := GetAuthClaim(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: No token provided"})
		return
	}

	user, err := h.authServ.Profile(c.Request.Context(), claim.Subject)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.logger.Error("profile lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) credentialFromRequest(c *gin.Context) (string, error) {
	if credential, err := ExtractBearer(c.GetHeader("Authorization")); err == nil {
		return credential, nil
	}

	var req struct {
		IDToken string `json:"idToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.IDToken == "" {
		return "", ErrMissingCredential
	}
	return req.IDToken, nil
}

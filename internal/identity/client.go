package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// HTTPIssuer implementa Issuer contra la API REST del proveedor de identidad
// (estilo identitytoolkit: accounts:signUp).
type HTTPIssuer struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPIssuer construye un cliente HTTP apuntando a la API de cuentas.
func NewHTTPIssuer(baseURL, apiKey string, logger *zap.Logger) *HTTPIssuer {
	return &HTTPIssuer{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

type signUpRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signUpResponse struct {
	LocalID string `json:"localId"`
	Error   *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

func (c *HTTPIssuer) Issue(ctx context.Context, email, secret string) (string, error) {
	reqBody := signUpRequest{Email: email, Password: secret}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + "/v1/accounts:signUp?key=" + c.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var sr signUpResponse
	if err := json.Unmarshal(respBody, &sr); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if sr.Error != nil {
		// El mensaje puede traer sufijos (": reason"), el código es el prefijo.
		code, _, _ := strings.Cut(sr.Error.Message, " ")
		code = strings.TrimSuffix(code, ":")
		if c.logger != nil {
			c.logger.Warn("issuance rejected",
				zap.String("code", code),
				zap.Int("status", resp.StatusCode),
			)
		}
		return "", &IssueError{Reason: ClassifyProviderCode(code), Code: code}
	}

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("identity http error: status=%d", resp.StatusCode)
	}

	if sr.LocalID == "" {
		return "", fmt.Errorf("identity empty subject in response")
	}

	return sr.LocalID, nil
}

package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agrilink/agrilink-api/config"
)

// ProviderUser represents the identity record held by the auth provider
type ProviderUser struct {
	ID    string `json:"id"` // provider user ID, stored as users.auth_id
	Phone string `json:"phone"`
}

// ProviderSession represents a token pair issued by the auth provider
// after a successful OTP verification or refresh
type ProviderSession struct {
	AccessToken  string       `json:"access_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"`
	RefreshToken string       `json:"refresh_token"`
	User         ProviderUser `json:"user"`
}

// AuthService handles interactions with the managed phone-OTP auth provider
type AuthService struct {
	baseURL    string
	httpClient *http.Client
}

// NewAuthService creates a new auth service instance
func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{
		baseURL: cfg.AuthProviderURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// endpoint builds the full URL for a provider path
// If the base URL already includes a protocol (for testing), use it as-is
func (s *AuthService) endpoint(path string) string {
	base := strings.TrimSuffix(s.baseURL, "/")
	if strings.HasPrefix(base, "http://") || strings.HasPrefix(base, "https://") {
		return base + path
	}
	return "https://" + base + path
}

// post sends a JSON payload to the provider and decodes the response into out
// when out is non-nil
func (s *AuthService) post(path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequest("POST", s.endpoint(path), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call auth provider: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("auth provider returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode auth provider response: %w", err)
		}
	}

	return nil
}

// SendOTP asks the provider to deliver a one-time code to the given phone number
func (s *AuthService) SendOTP(phone string) error {
	payload := map[string]string{"phone": phone}
	return s.post("/otp", payload, nil)
}

// VerifyOTP exchanges a phone number and one-time code for a session
func (s *AuthService) VerifyOTP(phone, code string) (*ProviderSession, error) {
	payload := map[string]string{
		"type":  "sms",
		"phone": phone,
		"token": code,
	}

	var session ProviderSession
	if err := s.post("/verify", payload, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// RefreshSession exchanges a refresh token for a new session
func (s *AuthService) RefreshSession(refreshToken string) (*ProviderSession, error) {
	payload := map[string]string{"refresh_token": refreshToken}

	var session ProviderSession
	if err := s.post("/token?grant_type=refresh_token", payload, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Package client is the typed REST client for the academy API. All
// non-2xx responses are decoded from the backend's detail envelope into
// classified apierr values.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vector-skill/academy/internal/apierr"
	"github.com/vector-skill/academy/internal/session"
)

// Client represents an HTTP client for the academy API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client for the given base URL
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyPhoneRequest carries the OTP provider identity assertion
type VerifyPhoneRequest struct {
	IDToken string `json:"id_token"`
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// ForgotPasswordRequest starts password recovery
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest completes password recovery
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// UpdateProfileRequest updates the caller's profile fields
type UpdateProfileRequest struct {
	FullName *string `json:"full_name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
}

// TokenResponse is the credential-exchange response
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// MessageResponse is a plain confirmation response
type MessageResponse struct {
	Message string `json:"message"`
}

// Login exchanges email and password for a bearer token
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp TokenResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", "", LoginRequest{
		Email:    email,
		Password: password,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

// VerifyPhone exchanges an identity assertion for a bearer token
func (c *Client) VerifyPhone(ctx context.Context, assertion string) (string, error) {
	var resp TokenResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/verify-phone", "", VerifyPhoneRequest{
		IDToken: assertion,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

// Register creates an account and returns a bearer token
func (c *Client) Register(ctx context.Context, params session.RegisterParams) (string, error) {
	var resp TokenResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Email:    params.Email,
		Password: params.Password,
		FullName: params.FullName,
		Phone:    params.Phone,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

// Me fetches the profile for a bearer token
func (c *Client) Me(ctx context.Context, token string) (*session.User, error) {
	var user session.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", token, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ForgotPassword starts password recovery for an email
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var resp MessageResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/forgot-password", "", ForgotPasswordRequest{
		Email: email,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

// ResetPassword completes password recovery with the emailed token
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	var resp MessageResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/reset-password", "", ResetPasswordRequest{
		Token:       token,
		NewPassword: newPassword,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

// UpdateProfile updates the caller's own profile
func (c *Client) UpdateProfile(ctx context.Context, token string, req UpdateProfileRequest) (*session.User, error) {
	var user session.User
	if err := c.do(ctx, http.MethodPut, "/api/users/profile", token, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// do runs one request. Transport failures become apierr network errors;
// non-2xx responses are classified from the detail envelope.
func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apierr.Network(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return apierr.FromResponse(resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CodeSender is the phone OTP provider contract: request a challenge
// for a number, then verify the code the user received. A successful
// verification yields an identity assertion the backend will exchange
// for a bearer token.
type CodeSender interface {
	RequestCode(ctx context.Context, phone string) (Challenge, error)
}

// Challenge is one outstanding OTP challenge.
type Challenge interface {
	Verify(ctx context.Context, code string) (string, error)
}

const identityToolkitURL = "https://identitytoolkit.googleapis.com/v1"

// FirebaseSender drives the provider's REST OTP endpoints. The provider
// is an opaque black box: send a code to a number, confirm the code,
// receive an ID token.
type FirebaseSender struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewFirebaseSender creates a sender using the given web API key.
func NewFirebaseSender(apiKey string) *FirebaseSender {
	return &FirebaseSender{
		apiKey:  apiKey,
		baseURL: identityToolkitURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type sendCodeRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

type sendCodeResponse struct {
	SessionInfo string `json:"sessionInfo"`
}

type confirmCodeRequest struct {
	SessionInfo string `json:"sessionInfo"`
	Code        string `json:"code"`
}

type confirmCodeResponse struct {
	IDToken string `json:"idToken"`
}

// RequestCode asks the provider to text a code to the number and
// returns the challenge handle for confirming it.
func (s *FirebaseSender) RequestCode(ctx context.Context, phone string) (Challenge, error) {
	var resp sendCodeResponse
	err := s.post(ctx, "accounts:sendVerificationCode", sendCodeRequest{PhoneNumber: phone}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.SessionInfo == "" {
		return nil, fmt.Errorf("provider returned no challenge")
	}

	return &firebaseChallenge{sender: s, sessionInfo: resp.SessionInfo}, nil
}

type firebaseChallenge struct {
	sender      *FirebaseSender
	sessionInfo string
}

// Verify confirms the code and returns the identity assertion.
func (c *firebaseChallenge) Verify(ctx context.Context, code string) (string, error) {
	var resp confirmCodeResponse
	err := c.sender.post(ctx, "accounts:signInWithPhoneNumber", confirmCodeRequest{
		SessionInfo: c.sessionInfo,
		Code:        code,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.IDToken == "" {
		return "", fmt.Errorf("provider returned no identity token")
	}

	return resp.IDToken, nil
}

func (s *FirebaseSender) post(ctx context.Context, endpoint string, body, out interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s?key=%s", s.baseURL, endpoint, s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("provider returned status %d: %s", resp.StatusCode, providerErrorMessage(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode provider response: %w", err)
	}
	return nil
}

// providerErrorMessage pulls the short message out of the provider's
// error envelope, falling back to the raw body.
func providerErrorMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return string(body)
}

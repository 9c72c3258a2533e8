// Package phoneauth verifies identity assertions issued by the phone
// OTP provider. The provider proves control of a phone number out of
// band and hands the client a short-lived RS256 ID token; this package
// checks that token against the provider's published certificates and
// extracts the verified phone number.
package phoneauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const certsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

// ErrInvalidAssertion is returned for any assertion that does not
// verify: bad signature, wrong project, expired, or missing phone claim.
var ErrInvalidAssertion = errors.New("invalid or expired identity assertion")

// Verifier validates a provider ID token and returns the verified
// phone number in E.164 form.
type Verifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (string, error)
}

// Disabled is a Verifier for deployments without a configured provider
// project; every assertion fails verification.
type Disabled struct{}

func (Disabled) VerifyIDToken(ctx context.Context, idToken string) (string, error) {
	return "", fmt.Errorf("phone login is not configured: %w", ErrInvalidAssertion)
}

// GoogleVerifier validates securetoken ID tokens for one project.
// Certificates are fetched lazily and cached.
type GoogleVerifier struct {
	projectID  string
	httpClient *http.Client

	mu        sync.Mutex
	certs     map[string]string // kid -> PEM certificate
	fetchedAt time.Time
}

// NewGoogleVerifier creates a verifier for the given provider project ID.
func NewGoogleVerifier(projectID string) *GoogleVerifier {
	return &GoogleVerifier{
		projectID: projectID,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type assertionClaims struct {
	PhoneNumber string `json:"phone_number"`
	jwt.RegisteredClaims
}

// VerifyIDToken implements Verifier.
func (v *GoogleVerifier) VerifyIDToken(ctx context.Context, idToken string) (string, error) {
	claims := &assertionClaims{}

	token, err := jwt.ParseWithClaims(idToken, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("missing key ID")
		}
		pem, err := v.certForKey(ctx, kid)
		if err != nil {
			return nil, err
		}
		return jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
	},
		jwt.WithIssuer("https://securetoken.google.com/"+v.projectID),
		jwt.WithAudience(v.projectID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAssertion, err)
	}

	if !token.Valid || claims.PhoneNumber == "" {
		return "", ErrInvalidAssertion
	}

	return claims.PhoneNumber, nil
}

// certForKey returns the PEM certificate for a key ID, refreshing the
// cache when the key is unknown or the cache is older than an hour.
func (v *GoogleVerifier) certForKey(ctx context.Context, kid string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if pem, ok := v.certs[kid]; ok && time.Since(v.fetchedAt) < time.Hour {
		return pem, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, certsURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create certs request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch signing certs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("certs endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var certs map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&certs); err != nil {
		return "", fmt.Errorf("failed to decode signing certs: %w", err)
	}

	v.certs = certs
	v.fetchedAt = time.Now()

	pem, ok := v.certs[kid]
	if !ok {
		return "", fmt.Errorf("no signing cert for key %s", kid)
	}
	return pem, nil
}

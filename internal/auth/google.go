package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

var ErrInvalidGoogleToken = errors.New("invalid google token")

// GoogleUserInfo is the subset of Google's tokeninfo response we use.
type GoogleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified,string"`
	Picture       string `json:"picture"`
	Name          string `json:"name"`
}

// GoogleVerifier checks Google ID tokens against the tokeninfo endpoint.
type GoogleVerifier struct {
	endpoint string
	client   *http.Client
}

func NewGoogleVerifier(endpoint string) *GoogleVerifier {
	return &GoogleVerifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Verify returns the user behind idToken. Unverified emails are rejected.
func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (*GoogleUserInfo, error) {
	u, err := url.Parse(v.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing tokeninfo endpoint: %w", err)
	}
	q := u.Query()
	q.Set("id_token", idToken)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building tokeninfo request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrInvalidGoogleToken
	}

	var user GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}

	if user.Sub == "" || user.Email == "" {
		return nil, ErrInvalidGoogleToken
	}
	if !user.EmailVerified {
		return nil, fmt.Errorf("%w: email not verified", ErrInvalidGoogleToken)
	}

	return &user, nil
}

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/linkpagos/ms-go-paylinks/app/types"
)

var ErrUnauthorized = errors.New("unauthorized")

// Principal is the authenticated dashboard user attached to a request.
type Principal struct {
	UserID string
	Email  string
	Role   string
}

func (p *Principal) IsAdmin() bool {
	return p != nil && (p.Role == types.RoleAdmin || p.Role == types.RoleSuperadmin)
}

// Verifier resolves a session token into a Principal.
type Verifier interface {
	VerifySession(ctx context.Context, token string) (*Principal, error)
}

// HTTPVerifier validates sessions against the auth service over HTTP.
type HTTPVerifier struct {
	baseURL string
	client  *http.Client
}

func NewHTTPVerifier(baseURL string, timeout time.Duration) *HTTPVerifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &HTTPVerifier{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type sessionResponse struct {
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"user"`
}

func (v *HTTPVerifier) VerifySession(ctx context.Context, token string) (*Principal, error) {
	if v.baseURL == "" {
		return nil, errors.New("auth service base url is not configured")
	}
	if strings.TrimSpace(token) == "" {
		return nil, ErrUnauthorized
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/api/auth/session", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth service error: %d", resp.StatusCode)
	}

	var session sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, err
	}
	if session.User.ID == "" {
		return nil, ErrUnauthorized
	}

	return &Principal{
		UserID: session.User.ID,
		Email:  session.User.Email,
		Role:   session.User.Role,
	}, nil
}

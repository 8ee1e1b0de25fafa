//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/linkpagos/ms-go-paylinks/app/types"
)

const defaultPaylinksHTTPBase = "http://localhost:8080"

func paylinksHTTPBase() string {
	if value := strings.TrimSpace(os.Getenv("PAYLINKS_HTTP_BASE")); value != "" {
		return value
	}
	return defaultPaylinksHTTPBase
}

// paylinksSessionToken returns a staff session token accepted by the auth
// service the instance under test is configured against. Authenticated
// scenarios are skipped when it is unset.
func paylinksSessionToken() string {
	return strings.TrimSpace(os.Getenv("PAYLINKS_SESSION_TOKEN"))
}

type httpClient struct {
	baseURL string
	client  *http.Client
}

func newHTTPClient(baseURL string) *httpClient {
	return &httpClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *httpClient) doJSON(t *testing.T, method, path string, body any, token string) (*http.Response, []byte) {
	t.Helper()

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal failed: %v", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		t.Fatalf("new request failed: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("http request failed: %v", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response failed: %v", err)
	}

	return resp, bodyBytes
}

func waitForHTTP(baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 2 * time.Second}
	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("http service not ready at %s", baseURL)
}

func TestMain(m *testing.M) {
	if err := waitForHTTP(paylinksHTTPBase(), 30*time.Second); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func TestHealth(t *testing.T) {
	client := newHTTPClient(paylinksHTTPBase())

	resp, body := client.doJSON(t, http.MethodGet, "/health", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
}

func TestStaffRoutesRequireSession(t *testing.T) {
	client := newHTTPClient(paylinksHTTPBase())

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/links"},
		{http.MethodGet, "/api/links"},
		{http.MethodGet, "/api/links/nonexistent"},
		{http.MethodPatch, "/api/links/nonexistent"},
		{http.MethodDelete, "/api/links/nonexistent"},
		{http.MethodGet, "/api/bold/payment-methods"},
	}

	for _, tc := range paths {
		resp, body := client.doJSON(t, tc.method, tc.path, nil, "")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d: %s", tc.method, tc.path, resp.StatusCode, body)
		}
	}
}

func TestPublicLinkNotFound(t *testing.T) {
	client := newHTTPClient(paylinksHTTPBase())

	resp, body := client.doJSON(t, http.MethodGet, "/api/pay/does-not-exist/link", nil, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", resp.StatusCode, body)
	}
}

func TestWebhookUnknownProviderIs400(t *testing.T) {
	client := newHTTPClient(paylinksHTTPBase())

	resp, body := client.doJSON(t, http.MethodPost, "/api/webhook/paypal", map[string]any{"type": "noop"}, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.StatusCode, body)
	}
}

func TestWebhookUnsignedWompiIs401(t *testing.T) {
	client := newHTTPClient(paylinksHTTPBase())

	payload := map[string]any{
		"event": "transaction.updated",
		"data": map[string]any{
			"transaction": map[string]any{
				"id":     "e2e-tx",
				"status": "APPROVED",
			},
		},
		"signature": map[string]any{
			"properties": []string{"transaction.id"},
			"checksum":   "deadbeef",
		},
		"timestamp": time.Now().Unix(),
	}

	resp, body := client.doJSON(t, http.MethodPost, "/api/webhook/wompi", payload, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", resp.StatusCode, body)
	}
}

func TestLinkLifecycle(t *testing.T) {
	token := paylinksSessionToken()
	if token == "" {
		t.Skip("PAYLINKS_SESSION_TOKEN not set")
	}

	client := newHTTPClient(paylinksHTTPBase())

	createReq := map[string]any{
		"provider":    "WOMPI",
		"title":       "E2E test link",
		"description": "Created by the e2e suite",
		"amount":      50000,
		"amountType":  "CLOSE",
	}

	resp, body := client.doJSON(t, http.MethodPost, "/api/links", createReq, token)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", resp.StatusCode, body)
	}

	var created types.LinkEnvelopeResponse
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("create: unmarshal failed: %v", err)
	}
	if created.Link == nil || created.Link.ID == "" {
		t.Fatal("create: expected non-empty link id")
	}
	if created.Link.Status != types.LinkStatusActive {
		t.Fatalf("create: expected ACTIVE, got %s", created.Link.Status)
	}

	linkID := created.Link.ID

	resp, body = client.doJSON(t, http.MethodGet, "/api/links/"+linkID, nil, token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d: %s", resp.StatusCode, body)
	}

	resp, body = client.doJSON(t, http.MethodGet, "/api/pay/"+linkID+"/link", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("public view: expected 200, got %d: %s", resp.StatusCode, body)
	}

	updateReq := map[string]any{"title": "E2E test link (renamed)"}
	resp, body = client.doJSON(t, http.MethodPatch, "/api/links/"+linkID, updateReq, token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", resp.StatusCode, body)
	}

	resp, body = client.doJSON(t, http.MethodDelete, "/api/links/"+linkID, nil, token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d: %s", resp.StatusCode, body)
	}

	resp, body = client.doJSON(t, http.MethodGet, "/api/links/"+linkID, nil, token)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d: %s", resp.StatusCode, body)
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/bureau-foundation/muster/lib/ref"
)

// maxResponseBytes bounds how much of a homeserver response is read
// into memory. Matrix API responses muster cares about are small; a
// response this large indicates a misbehaving server.
const maxResponseBytes = 4 << 20

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// HomeserverURL is the base URL of the Matrix homeserver (e.g., "http://localhost:6167").
	HomeserverURL string
	// HTTPClient is used for all requests. If nil, http.DefaultClient is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Client is an unauthenticated Matrix client.
// It holds the homeserver URL and HTTP transport, shared across Sessions.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new unauthenticated Matrix client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.HomeserverURL == "" {
		return nil, fmt.Errorf("messaging: HomeserverURL is required")
	}

	// Validate the URL structure. We store the string form (with trailing
	// slash stripped) and build request URLs by direct concatenation. This
	// avoids double-encoding issues with Go's url.URL.String(), which
	// re-encodes Path even when RawPath is set if it doesn't consider
	// RawPath a valid encoding of Path.
	if _, err := url.Parse(config.HomeserverURL); err != nil {
		return nil, fmt.Errorf("messaging: invalid HomeserverURL %q: %w", config.HomeserverURL, err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(config.HomeserverURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// CloseIdleConnections closes idle HTTP connections in the underlying
// transport's connection pool. Call this after a network disruption to
// force subsequent requests to establish fresh TCP connections instead
// of reusing a poisoned pooled connection.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// ServerVersions returns the Matrix protocol versions and unstable features
// supported by the homeserver. This is an unauthenticated endpoint, useful
// for checking whether the homeserver is reachable before starting the
// dispatcher.
func (c *Client) ServerVersions(ctx context.Context) (*ServerVersionsResponse, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/_matrix/client/versions", "", nil)
	if err != nil {
		return nil, fmt.Errorf("messaging: server versions failed: %w", err)
	}

	var response ServerVersionsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse versions response: %w", err)
	}
	return &response, nil
}

// Login authenticates with username and password, returning a Session.
// Used by the operator flow that provisions the service's access token;
// the running service itself loads a stored token via SessionFromToken.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	if username == "" {
		return nil, fmt.Errorf("messaging: username is required for login")
	}
	if password == "" {
		return nil, fmt.Errorf("messaging: password is required for login")
	}

	loginRequest := LoginRequest{
		Type:                     "m.login.password",
		User:                     username,
		Password:                 password,
		InitialDeviceDisplayName: "muster",
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/_matrix/client/v3/login", "", loginRequest)
	if err != nil {
		return nil, fmt.Errorf("messaging: login failed: %w", err)
	}

	var authResponse AuthResponse
	if err := json.Unmarshal(body, &authResponse); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse login response: %w", err)
	}

	c.logger.Info("logged in to matrix",
		"user_id", authResponse.UserID,
		"device_id", authResponse.DeviceID,
	)

	return &Session{
		client:      c,
		accessToken: authResponse.AccessToken,
		userID:      authResponse.UserID,
		deviceID:    authResponse.DeviceID,
	}, nil
}

// SessionFromToken creates a Session from an existing access token.
// This does NOT validate the token; call WhoAmI to check it before
// relying on it. userID must be the fully-qualified Matrix user ID
// (e.g., "@muster:muster.local").
func (c *Client) SessionFromToken(userID ref.UserID, accessToken string) (*Session, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("messaging: access token is required")
	}
	return &Session{
		client:      c,
		accessToken: accessToken,
		userID:      userID,
	}, nil
}

// doRequest performs an HTTP request to the homeserver and returns the response body.
// On 2xx, returns the body. On 4xx/5xx, returns a *MatrixError.
// accessToken may be empty for unauthenticated endpoints.
// query may be nil for endpoints without query parameters.
func (c *Client) doRequest(ctx context.Context, method, path, accessToken string, requestBody any, query ...url.Values) ([]byte, error) {
	requestURL := c.baseURL + path
	if len(query) > 0 && query[0] != nil {
		requestURL += "?" + query[0].Encode()
	}

	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("messaging: failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("messaging: failed to create request: %w", err)
	}

	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		request.Header.Set("Authorization", "Bearer "+accessToken)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("messaging: request to %s %s failed: %w", method, path, err)
	}
	defer response.Body.Close()

	responseBody, err := readResponse(response.Body)
	if err != nil {
		return nil, fmt.Errorf("messaging: failed to read response body: %w", err)
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return responseBody, nil
	}

	// All Matrix error responses use the same JSON shape.
	var matrixErr MatrixError
	if jsonErr := json.Unmarshal(responseBody, &matrixErr); jsonErr != nil {
		// Server returned non-JSON error. This should not happen with a
		// conformant homeserver, but fail loud with the raw body.
		return nil, fmt.Errorf("messaging: unexpected %d response from %s %s: %s",
			response.StatusCode, method, path, string(responseBody))
	}
	matrixErr.StatusCode = response.StatusCode

	return responseBody, &matrixErr
}

// readResponse reads an HTTP response body with a size cap.
func readResponse(body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, maxResponseBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxResponseBytes {
		return nil, fmt.Errorf("response body exceeds %d bytes", maxResponseBytes)
	}
	return data, nil
}

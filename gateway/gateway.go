// Package gateway submits verification requests to the external
// Verification Service and interprets its credit-or-reject decision.
//
// The service is authoritative and idempotent: calling it twice with the
// same idempotency key must not double-credit, so the client is free to
// retry on transient failures.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/seedlabs/entrygate/logger"
	"github.com/seedlabs/entrygate/types"
	"github.com/seedlabs/entrygate/utils"
)

// TokenProvider supplies the caller's session/auth token. Returning an empty
// string means the user is not authenticated; the request never reaches the
// network in that case.
type TokenProvider func(ctx context.Context) (string, error)

// Client is the HTTP client for the Verification Service.
type Client struct {
	endpoint   string
	tokens     TokenProvider
	httpClient *http.Client
	log        logger.Logger
}

func NewClient(endpoint string, tokens TokenProvider, httpClient *http.Client, log logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Client{endpoint: endpoint, tokens: tokens, httpClient: httpClient, log: log}
}

// Verify posts the request with bearer auth and maps the response. A
// "pending" status is returned as-is and is not an error; the caller must
// keep the idempotency key. Non-2xx responses carry the service-supplied
// message when one exists.
func (c *Client) Verify(ctx context.Context, req *types.VerificationRequest) (*types.VerificationResult, error) {
	if err := utils.ValidateVerificationRequest(req); err != nil {
		return nil, err
	}

	token, err := c.bearerToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding verification request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating verification request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, types.Errorf(types.ErrVerification, "verification request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.Errorf(types.ErrVerification, "reading verification response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, types.Errorf(types.ErrVerification, "%s", serviceMessage(respBody, resp.StatusCode))
	}

	var result types.VerificationResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, types.Errorf(types.ErrVerification, "malformed verification response: %v", err)
	}

	c.log.Info("verification response", map[string]any{
		"status":         string(result.Status),
		"idempotencyKey": req.IdempotencyKey,
	})

	switch result.Status {
	case types.VerificationSuccess, types.VerificationPending, types.VerificationError:
		return &result, nil
	default:
		return nil, types.Errorf(types.ErrVerification, "unknown verification status %q", result.Status)
	}
}

func (c *Client) bearerToken(ctx context.Context) (string, error) {
	if c.tokens == nil {
		return "", types.Errorf(types.ErrNotAuthenticated, "no session token provider configured; sign in to continue")
	}
	token, err := c.tokens(ctx)
	if err != nil {
		return "", types.Errorf(types.ErrNotAuthenticated, "resolving session token: %v", err)
	}
	if token == "" {
		return "", types.Errorf(types.ErrNotAuthenticated, "you are signed out; sign in again to complete your purchase")
	}
	return token, nil
}

func serviceMessage(body []byte, statusCode int) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return fmt.Sprintf("verification service returned status %d", statusCode)
}

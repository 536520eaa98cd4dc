package untis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	appLog "untiscal/internal/log"
)

const rpcClientID = "untiscal"

// RPCError is a JSON-RPC level error returned by the WebUntis server.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("untis rpc error %d: %s", e.Code, e.Message)
}

// rpcRequest is the JSON-RPC 2.0 request envelope.
type rpcRequest struct {
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	JSONRPC string `json:"jsonrpc"`
}

// rpcResponse is the JSON-RPC 2.0 response envelope. Result is decoded
// lazily by the caller.
type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// Client is a WebUntis JSON-RPC client bound to one school. It is not
// safe for concurrent use; the sync pipeline is single-threaded.
type Client struct {
	httpClient *http.Client
	endpoint   string // full jsonrpc.do URL including the school query parameter
	server     string // host, for logging only
	sessionID  string
}

// NewClient creates a client for the given WebUntis host (e.g.
// "example.webuntis.com") and school identifier.
func NewClient(server, school string) *Client {
	return NewClientWithBase("https://"+server+"/WebUntis/jsonrpc.do", school, nil)
}

// NewClientWithBase creates a client against an explicit endpoint URL.
// Used by tests to point at a local server; httpClient may be nil.
func NewClientWithBase(base, school string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	u, err := url.Parse(base)
	if err != nil {
		// A malformed base surfaces as a request error on first call.
		return &Client{httpClient: httpClient, endpoint: base, server: base}
	}
	q := u.Query()
	q.Set("school", school)
	u.RawQuery = q.Encode()
	return &Client{
		httpClient: httpClient,
		endpoint:   u.String(),
		server:     u.Host,
	}
}

// Authenticate performs the WebUntis login and stores the session id
// used as a cookie on subsequent calls.
func (c *Client) Authenticate(ctx context.Context, username, password string) error {
	params := map[string]any{
		"user":     username,
		"password": password,
		"client":   rpcClientID,
	}

	var result struct {
		SessionID string `json:"sessionId"`
	}
	if err := c.call(ctx, "authenticate", params, &result); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	if result.SessionID == "" {
		return errors.New("authenticate: server returned empty session id")
	}

	c.sessionID = result.SessionID
	appLog.Info("untis login ok", "server", c.server)
	return nil
}

// Logout ends the server-side session. Failures are logged only; the
// session expires on its own.
func (c *Client) Logout(ctx context.Context) {
	if c.sessionID == "" {
		return
	}
	if err := c.call(ctx, "logout", map[string]any{}, nil); err != nil {
		appLog.Error("untis logout failed", err, "server", c.server)
	}
	c.sessionID = ""
}

// call performs one JSON-RPC request. result, if non-nil, receives the
// decoded "result" member.
func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	body, err := json.Marshal(rpcRequest{
		ID:      rpcClientID,
		Method:  method,
		Params:  params,
		JSONRPC: "2.0",
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.sessionID != "" {
		req.Header.Set("Cookie", "JSESSIONID="+c.sessionID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("untis %s: unexpected status %s", method, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var envelope rpcResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("untis %s: decode response: %w", method, err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if result == nil {
		return nil
	}
	if len(envelope.Result) == 0 {
		return fmt.Errorf("untis %s: response has no result", method)
	}
	return json.Unmarshal(envelope.Result, result)
}

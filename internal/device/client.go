package device

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Client drives a robot through an HTTP bridge speaking JSON envelopes
// of the form {"code":0,"msg":"","data":{...}}.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger

	mu            sync.Mutex
	session       string
	sessionExpire time.Time
}

func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 20 * time.Second},
		logger:  logger,
	}
}

func (c *Client) Connect(ctx context.Context) error {
	if _, err := c.openSession(ctx); err != nil {
		return &ConnError{Op: "connect", Err: err}
	}
	c.logger.Debug("bridge connected", "url", c.baseURL)
	return nil
}

func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	token := c.session
	c.session = ""
	c.sessionExpire = time.Time{}
	c.mu.Unlock()
	if token == "" {
		return &ConnError{Op: "disconnect", Err: ErrNotConnected}
	}
	if err := c.do(ctx, token, http.MethodPost, "/disconnect", nil, nil); err != nil {
		return &ConnError{Op: "disconnect", Err: err}
	}
	c.logger.Debug("bridge disconnected", "url", c.baseURL)
	return nil
}

func (c *Client) SetMotors(ctx context.Context, left, right int) error {
	return c.control(ctx, "set motors", "/motors", map[string]int{"left": left, "right": right})
}

func (c *Client) SetLED(ctx context.Context, r, g, b int) error {
	return c.control(ctx, "set led", "/led", map[string]int{"r": r, "g": g, "b": b})
}

func (c *Client) Wait(ctx context.Context, ms int) error {
	return c.control(ctx, "wait", "/wait", map[string]int{"ms": ms})
}

func (c *Client) ReadTemperature(ctx context.Context) (float64, error) {
	return c.sensor(ctx, "read temperature", "/sensors/temperature")
}

func (c *Client) ReadAverageLight(ctx context.Context) (float64, error) {
	return c.sensor(ctx, "read light", "/sensors/light")
}

func (c *Client) control(ctx context.Context, op, path string, body any) error {
	token, err := c.getSession(ctx)
	if err != nil {
		return &DeviceError{Op: op, Err: err}
	}
	if err := c.do(ctx, token, http.MethodPost, path, body, nil); err != nil {
		return &DeviceError{Op: op, Err: err}
	}
	c.logger.Debug(op, "body", body)
	return nil
}

func (c *Client) sensor(ctx context.Context, op, path string) (float64, error) {
	token, err := c.getSession(ctx)
	if err != nil {
		return 0, &DeviceError{Op: op, Err: err}
	}
	var data struct {
		Value float64 `json:"value"`
	}
	if err := c.do(ctx, token, http.MethodGet, path, nil, &data); err != nil {
		return 0, &DeviceError{Op: op, Err: err}
	}
	c.logger.Debug(op, "value", data.Value)
	return data.Value, nil
}

// getSession returns the current session token, reopening it shortly before it expires.
func (c *Client) getSession(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.session == "" {
		c.mu.Unlock()
		return "", ErrNotConnected
	}
	if c.sessionExpire.IsZero() || time.Now().Before(c.sessionExpire.Add(-1*time.Minute)) {
		t := c.session
		c.mu.Unlock()
		return t, nil
	}
	c.mu.Unlock()
	return c.openSession(ctx)
}

func (c *Client) openSession(ctx context.Context) (string, error) {
	var r struct {
		SessionToken string `json:"session_token"`
		Expire       int    `json:"expire"`
	}
	if err := c.do(ctx, "", http.MethodPost, "/connect", map[string]string{"api_key": c.apiKey}, &r); err != nil {
		return "", err
	}
	if r.SessionToken == "" {
		return "", errors.New("bridge returned empty session token")
	}
	c.mu.Lock()
	c.session = r.SessionToken
	c.sessionExpire = time.Time{}
	if r.Expire > 0 {
		c.sessionExpire = time.Now().Add(time.Duration(r.Expire) * time.Second)
	}
	t := c.session
	c.mu.Unlock()
	return t, nil
}

func (c *Client) do(ctx context.Context, token, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, _ := json.Marshal(in)
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()
	raw, _ := io.ReadAll(res.Body)
	if res.StatusCode >= 300 {
		return fmt.Errorf("%s %s status=%d body=%s", method, path, res.StatusCode, strings.TrimSpace(string(raw)))
	}
	var envelope struct {
		Code int             `json:"code"`
		Msg  string          `json:"msg"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if envelope.Code != 0 {
		return fmt.Errorf("%s api error code=%d msg=%s", path, envelope.Code, envelope.Msg)
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode %s data: %w", path, err)
		}
	}
	return nil
}

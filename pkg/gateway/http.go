package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Weynie/van-construction-web-sub000/pkg/log"
	"github.com/Weynie/van-construction-web-sub000/pkg/metrics"
	"github.com/Weynie/van-construction-web-sub000/pkg/types"
)

const workspacePrefix = "/api/workspace"

// HTTPClient talks to the workspace REST backend
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// HTTPOption configures an HTTPClient
type HTTPOption func(*HTTPClient)

// WithRetries sets the retry budget and backoff bounds
func WithRetries(maxRetries int, baseDelay, maxDelay time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		c.maxRetries = maxRetries
		c.baseDelay = baseDelay
		c.maxDelay = maxDelay
	}
}

// WithHTTPClient replaces the underlying *http.Client
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewHTTPClient creates a client for the backend at baseURL
func NewHTTPClient(baseURL, token string, opts ...HTTPOption) *HTTPClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	c := &HTTPClient{
		baseURL:    baseURL,
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		maxRetries: 3,
		baseDelay:  100 * time.Millisecond,
		maxDelay:   2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token used for subsequent requests
func (c *HTTPClient) SetToken(token string) {
	c.token = strings.TrimSpace(token)
}

type dataBody struct {
	Data         types.Content `json:"data"`
	UserPassword string        `json:"userPassword,omitempty"`
}

func (c *HTTPClient) GetWorkspace(ctx context.Context) (*types.Workspace, error) {
	var ws types.Workspace
	if err := c.doJSON(ctx, "get_workspace", http.MethodGet, "/data", nil, &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

func (c *HTTPClient) InitializeWorkspace(ctx context.Context) error {
	return c.doJSON(ctx, "initialize_workspace", http.MethodPost, "/initialize", nil, nil)
}

func (c *HTTPClient) CreateProject(ctx context.Context, name string) (*types.Project, error) {
	var project types.Project
	body := map[string]string{"name": name}
	if err := c.doJSON(ctx, "create_project", http.MethodPost, "/projects", body, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

func (c *HTTPClient) UpdateProject(ctx context.Context, id string, patch types.ProjectPatch) (*types.Project, error) {
	var project types.Project
	if err := c.doJSON(ctx, "update_project", http.MethodPut, "/projects/"+url.PathEscape(id), patch, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

func (c *HTTPClient) DeleteProject(ctx context.Context, id string) error {
	return c.doJSON(ctx, "delete_project", http.MethodDelete, "/projects/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) ReorderProjects(ctx context.Context, ids []string) error {
	body := map[string][]string{"projectIds": ids}
	return c.doJSON(ctx, "reorder_projects", http.MethodPut, "/projects/reorder", body, nil)
}

func (c *HTTPClient) CreatePage(ctx context.Context, projectID, name string) (*types.Page, error) {
	var page types.Page
	body := map[string]string{"name": name}
	path := fmt.Sprintf("/projects/%s/pages", url.PathEscape(projectID))
	if err := c.doJSON(ctx, "create_page", http.MethodPost, path, body, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *HTTPClient) UpdatePage(ctx context.Context, id string, patch types.PagePatch) (*types.Page, error) {
	var page types.Page
	if err := c.doJSON(ctx, "update_page", http.MethodPut, "/pages/"+url.PathEscape(id), patch, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *HTTPClient) DeletePage(ctx context.Context, id string) error {
	return c.doJSON(ctx, "delete_page", http.MethodDelete, "/pages/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) ReorderPages(ctx context.Context, projectID string, ids []string) error {
	body := map[string][]string{"pageIds": ids}
	path := fmt.Sprintf("/projects/%s/pages/reorder", url.PathEscape(projectID))
	return c.doJSON(ctx, "reorder_pages", http.MethodPut, path, body, nil)
}

func (c *HTTPClient) MovePage(ctx context.Context, id, newProjectID string) error {
	body := map[string]string{"newProjectId": newProjectID}
	path := fmt.Sprintf("/pages/%s/move", url.PathEscape(id))
	return c.doJSON(ctx, "move_page", http.MethodPut, path, body, nil)
}

func (c *HTTPClient) CreateTab(ctx context.Context, pageID, name string, kind types.Kind, position *int) (*types.Tab, error) {
	var tab types.Tab
	body := struct {
		Name     string     `json:"name"`
		TabType  types.Kind `json:"tabType"`
		Position *int       `json:"position,omitempty"`
	}{name, kind, position}
	path := fmt.Sprintf("/pages/%s/tabs", url.PathEscape(pageID))
	if err := c.doJSON(ctx, "create_tab", http.MethodPost, path, body, &tab); err != nil {
		return nil, err
	}
	return &tab, nil
}

func (c *HTTPClient) UpdateTab(ctx context.Context, id string, patch types.TabPatch) (*types.Tab, error) {
	var tab types.Tab
	if err := c.doJSON(ctx, "update_tab", http.MethodPut, "/tabs/"+url.PathEscape(id), patch, &tab); err != nil {
		return nil, err
	}
	return &tab, nil
}

func (c *HTTPClient) DeleteTab(ctx context.Context, id string) error {
	return c.doJSON(ctx, "delete_tab", http.MethodDelete, "/tabs/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) ReorderTabs(ctx context.Context, pageID string, ids []string) error {
	body := map[string][]string{"tabIds": ids}
	path := fmt.Sprintf("/pages/%s/tabs/reorder", url.PathEscape(pageID))
	return c.doJSON(ctx, "reorder_tabs", http.MethodPut, path, body, nil)
}

func (c *HTTPClient) ActivateTab(ctx context.Context, id string) error {
	path := fmt.Sprintf("/tabs/%s/active", url.PathEscape(id))
	return c.doJSON(ctx, "activate_tab", http.MethodPut, path, nil, nil)
}

func (c *HTTPClient) GetTabData(ctx context.Context, id string) (*types.TabData, error) {
	data := types.TabData{TabID: id}
	path := fmt.Sprintf("/tabs/%s/data", url.PathEscape(id))
	if err := c.doJSON(ctx, "get_tab_data", http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *HTTPClient) GetTabDataDecrypted(ctx context.Context, id, secret string) (*types.TabData, error) {
	if secret == "" {
		return nil, ErrPasswordRequired
	}
	data := types.TabData{TabID: id}
	path := fmt.Sprintf("/tabs/%s/data/decrypt?userPassword=%s", url.PathEscape(id), url.QueryEscape(secret))
	if err := c.doJSON(ctx, "get_tab_data_decrypted", http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *HTTPClient) UpdateTabData(ctx context.Context, id string, delta types.Content) error {
	path := fmt.Sprintf("/tabs/%s/data", url.PathEscape(id))
	return c.doJSON(ctx, "update_tab_data", http.MethodPut, path, dataBody{Data: delta}, nil)
}

func (c *HTTPClient) UpdateTabDataEncrypted(ctx context.Context, id string, delta types.Content, secret string) error {
	if secret == "" {
		return ErrPasswordRequired
	}
	path := fmt.Sprintf("/tabs/%s/data/encrypted", url.PathEscape(id))
	return c.doJSON(ctx, "update_tab_data_encrypted", http.MethodPut, path, dataBody{Data: delta, UserPassword: secret}, nil)
}

func (c *HTTPClient) ReplaceTabData(ctx context.Context, id string, content types.Content) error {
	path := fmt.Sprintf("/tabs/%s/data/replace", url.PathEscape(id))
	return c.doJSON(ctx, "replace_tab_data", http.MethodPut, path, dataBody{Data: content}, nil)
}

func (c *HTTPClient) ReplaceTabDataEncrypted(ctx context.Context, id string, content types.Content, secret string) error {
	if secret == "" {
		return ErrPasswordRequired
	}
	path := fmt.Sprintf("/tabs/%s/data/replace/encrypted", url.PathEscape(id))
	return c.doJSON(ctx, "replace_tab_data_encrypted", http.MethodPut, path, dataBody{Data: content, UserPassword: secret}, nil)
}

func (c *HTTPClient) ValidatePassword(ctx context.Context, secret string) (bool, error) {
	var out struct {
		Valid bool `json:"valid"`
	}
	body := map[string]string{"userPassword": secret}
	if err := c.doJSON(ctx, "validate_password", http.MethodPost, "/validate-password", body, &out); err != nil {
		return false, err
	}
	return out.Valid, nil
}

// Health issues a HEAD request against the workspace data route without retries
func (c *HTTPClient) Health(ctx context.Context) error {
	timer := metrics.NewTimer()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+workspacePrefix+"/data", nil)
	if err != nil {
		return err
	}
	c.setHeaders(req, false)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		observe("health", timer, err)
		return &TransportError{Op: "health", Err: err}
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err = &HTTPError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	observe("health", timer, err)
	return err
}

func (c *HTTPClient) setHeaders(req *http.Request, hasBody bool) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("X-Correlation-Id", correlationID())
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
}

func (c *HTTPClient) doJSON(ctx context.Context, op, method, path string, body, out any) (err error) {
	timer := metrics.NewTimer()
	defer func() { observe(op, timer, err) }()

	var bodyBytes []byte
	if body != nil {
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
	}

	logger := log.WithComponent("gateway")
	for attempt := 0; ; attempt++ {
		var bodyReader io.Reader
		if bodyBytes != nil {
			bodyReader = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+workspacePrefix+path, bodyReader)
		if err != nil {
			return err
		}
		c.setHeaders(req, body != nil)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() == nil && attempt < c.maxRetries {
				metrics.GatewayRetriesTotal.Inc()
				logger.Debug().Str("operation", op).Int("attempt", attempt+1).Err(err).Msg("Retrying request")
				if waitErr := waitWithContext(ctx, c.retryDelay(attempt+1, "")); waitErr != nil {
					return &TransportError{Op: op, Err: waitErr}
				}
				continue
			}
			return &TransportError{Op: op, Err: err}
		}
		payload, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return &TransportError{Op: op, Err: readErr}
		}

		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			if out == nil || len(bytes.TrimSpace(payload)) == 0 {
				return nil
			}
			if err := json.Unmarshal(payload, out); err != nil {
				return fmt.Errorf("%s: decode response: %w", op, err)
			}
			return nil
		}

		if (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500) && attempt < c.maxRetries {
			metrics.GatewayRetriesTotal.Inc()
			logger.Debug().Str("operation", op).Int("status", resp.StatusCode).Int("attempt", attempt+1).Msg("Retrying request")
			if waitErr := waitWithContext(ctx, c.retryDelay(attempt+1, resp.Header.Get("Retry-After"))); waitErr != nil {
				return &TransportError{Op: op, Err: waitErr}
			}
			continue
		}

		return decodeHTTPError(resp.StatusCode, payload)
	}
}

func decodeHTTPError(status int, payload []byte) *HTTPError {
	var errPayload struct {
		Code    string `json:"code"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(payload, &errPayload)

	message := errPayload.Error
	if message == "" {
		message = errPayload.Message
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return &HTTPError{StatusCode: status, Code: errPayload.Code, Message: message}
}

func correlationID() string {
	return "vcw_" + uuid.NewString()
}

func (c *HTTPClient) retryDelay(attempt int, retryAfterHeader string) time.Duration {
	maxDelay := c.maxDelay
	if maxDelay <= 0 {
		maxDelay = 2 * time.Second
	}
	if retryAfter := parseRetryAfter(retryAfterHeader); retryAfter > 0 {
		if retryAfter > maxDelay {
			return maxDelay
		}
		return retryAfter
	}
	delay := c.baseDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	return delay
}

func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if ts, err := http.ParseTime(header); err == nil {
		if delta := time.Until(ts); delta > 0 {
			return delta
		}
	}
	return 0
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package workitem

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/net/html/charset"

	"github.com/fjglira/tfs-testcase-exporter/internal/domain"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultAPIVersion = "6.0"
	maxErrorBody      = 2048
)

var workItemFields = []string{
	domain.FieldID,
	domain.FieldType,
	domain.FieldTitle,
	domain.FieldSteps,
}

// ClientConfig holds the connection settings for a TFS collection.
type ClientConfig struct {
	BaseURL    string // collection URL, e.g. https://tfs.example.com/tfs/DefaultCollection
	Project    string
	PAT        string
	APIVersion string
	Timeout    time.Duration
	Insecure   bool
}

// Client reads work items through the TFS REST API.
type Client struct {
	baseURL    string
	project    string
	pat        string
	apiVersion string
	client     *http.Client
	log        *logrus.Logger
}

// NewClient creates a Client. Requests are sent once; there is no retry.
func NewClient(cfg ClientConfig, log *logrus.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, domain.NewError("config", "", 0, "base URL is required", domain.ErrConfig)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.Insecure,
		},
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		project:    strings.Trim(cfg.Project, "/"),
		pat:        cfg.PAT,
		apiVersion: apiVersion,
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		log: log,
	}, nil
}

// workItemResponse is the JSON shape of GET _apis/wit/workitems/{id}.
type workItemResponse struct {
	ID     int                    `json:"id"`
	Fields map[string]interface{} `json:"fields"`
}

// Get fetches one work item with the fields the exporter needs.
func (c *Client) Get(ctx context.Context, id int) (*domain.WorkItem, error) {
	path := fmt.Sprintf("_apis/wit/workitems/%d", id)
	if c.project != "" {
		path = url.PathEscape(c.project) + "/" + path
	}
	params := url.Values{}
	params.Set("api-version", c.apiVersion)
	params.Set("fields", strings.Join(workItemFields, ","))

	body, err := c.do(ctx, id, path, params)
	if err != nil {
		return nil, err
	}
	var resp workItemResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, domain.NewItemError("fetch", id, "failed to decode work item", fmt.Errorf("%w: %w", domain.ErrTransport, err))
	}
	return toWorkItem(id, resp), nil
}

// CheckConnection verifies the collection is reachable and the credentials
// are accepted.
func (c *Client) CheckConnection(ctx context.Context) error {
	params := url.Values{}
	params.Set("connectOptions", "none")
	_, err := c.do(ctx, 0, "_apis/connectionData", params)
	return err
}

func (c *Client) do(ctx context.Context, id int, path string, params url.Values) ([]byte, error) {
	fullURL := joinURL(c.baseURL, path)
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, domain.NewItemError("fetch", id, "failed to build request", fmt.Errorf("%w: %w", domain.ErrTransport, err))
	}
	req.Header.Set("Accept", "application/json")
	if c.pat != "" {
		req.Header.Set("Authorization", "Basic "+basicAuthToken(c.pat))
	}

	c.log.Debugf("> GET %s", fullURL)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, domain.NewItemError("fetch", id, "request failed", fmt.Errorf("%w: %w", domain.ErrTransport, err))
	}
	defer resp.Body.Close()

	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		reader = resp.Body
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, domain.NewItemError("fetch", id, "failed to read response", fmt.Errorf("%w: %w", domain.ErrTransport, err))
	}
	c.log.Debugf("< %s (%d bytes)", resp.Status, len(body))

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return body, nil
	}
	return nil, statusError(id, resp.StatusCode, body)
}

// statusError maps an HTTP failure to a domain error kind, using the server's
// message when the body is a TFS error document.
func statusError(id, status int, body []byte) error {
	msg := gjson.GetBytes(body, "message").String()
	if msg == "" {
		msg = truncateBody(body)
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	msg = fmt.Sprintf("request failed with status %d: %s", status, msg)

	kind := domain.ErrTransport
	switch {
	case status == http.StatusNotFound:
		kind = domain.ErrNotFound
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		kind = domain.ErrAuth
	case gjson.GetBytes(body, "typeKey").String() == "WorkItemUnauthorizedAccessException":
		// TFS answers 400/404 variants with this key for missing or hidden items.
		kind = domain.ErrNotFound
	}
	return domain.NewItemError("fetch", id, msg, kind)
}

func toWorkItem(id int, resp workItemResponse) *domain.WorkItem {
	item := &domain.WorkItem{
		ID:     resp.ID,
		Fields: make(map[string]string, len(resp.Fields)),
	}
	if item.ID == 0 {
		item.ID = id
	}
	for name, raw := range resp.Fields {
		switch v := raw.(type) {
		case nil:
		case string:
			item.Fields[name] = v
		default:
			item.Fields[name] = fmt.Sprint(v)
		}
	}
	item.TypeName = item.Fields[domain.FieldType]
	item.Title = item.Fields[domain.FieldTitle]
	return item
}

func basicAuthToken(pat string) string {
	return base64.StdEncoding.EncodeToString([]byte(":" + pat))
}

func truncateBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) <= maxErrorBody {
		return s
	}
	return s[:maxErrorBody] + "..."
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

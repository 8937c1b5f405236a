package strapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/neostalgic/obsidian-strapi-uploader/internal/fs"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	defaultUserAgent   = "osu/dev"
	maxErrorBodyBytes  = 1 << 20 // 1 MiB

	// ListPageSize is the number of most recent remote files consulted when
	// looking for an existing upload.
	ListPageSize = 1000
)

// ClientConfig configures the Strapi HTTP client.
type ClientConfig struct {
	BaseURL    string
	APIToken   string
	HTTPClient *http.Client
	UserAgent  string
	Logger     *slog.Logger
}

// Client is an HTTP-backed Strapi REST client.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Method     string
	URL        string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = strings.TrimSpace(e.Body)
	}
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if msg == "" {
		msg = "request failed"
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, msg)
}

// NewClient creates a Strapi HTTP client.
func NewClient(cfg ClientConfig) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	token := strings.TrimSpace(cfg.APIToken)

	if baseURL == "" {
		return nil, errors.New("strapi host is required")
	}
	if token == "" {
		return nil, errors.New("strapi API token is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid strapi host: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		baseURL:    baseURL,
		apiToken:   token,
		httpClient: httpClient,
		userAgent:  userAgent,
		logger:     logger,
	}, nil
}

// BaseURL returns the normalized host the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// ListFiles returns the most recently created remote files, newest first.
// Only the first page is fetched.
func (c *Client) ListFiles(ctx context.Context) ([]File, error) {
	query := url.Values{}
	query.Set("sort", "createdAt:DESC")
	query.Set("page", "1")
	query.Set("pageSize", strconv.Itoa(ListPageSize))

	req, err := c.newRequest(ctx, http.MethodGet, "/api/upload/files", query, nil)
	if err != nil {
		return nil, &UploadError{Op: "list remote files", Err: err}
	}

	var raw json.RawMessage
	if err := c.do(req, &raw); err != nil {
		return nil, &UploadError{Op: "list remote files", Err: err}
	}
	files, err := decodeFileList(raw)
	if err != nil {
		return nil, &UploadError{Op: "list remote files", Err: err}
	}
	return files, nil
}

// UploadFile uploads data as the given vault file. When replaceExisting is
// false and a remote file with the same name already exists, that file is
// returned and nothing is uploaded.
func (c *Client) UploadFile(ctx context.Context, file fs.File, data []byte, replaceExisting bool) (UploadResult, error) {
	filename := strings.TrimSpace(file.Name())
	if filename == "" {
		return UploadResult{}, &UploadError{Op: "upload", Err: errors.New("filename is required")}
	}

	if !replaceExisting {
		existing, err := c.ListFiles(ctx)
		if err != nil {
			return UploadResult{}, &UploadError{Op: "upload", Filename: filename, Err: err}
		}
		for _, remote := range existing {
			if remote.Name == filename {
				c.logger.Debug("reusing remote file", "name", filename, "id", remote.ID)
				return UploadResult{Local: file, Remote: remote, Reused: true}, nil
			}
		}
	}

	body, contentType, err := encodeUploadBody(filename, file.Extension(), data)
	if err != nil {
		return UploadResult{}, &UploadError{Op: "upload", Filename: filename, Err: err}
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/upload", nil, nil)
	if err != nil {
		return UploadResult{}, &UploadError{Op: "upload", Filename: filename, Err: err}
	}
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", contentType)

	var payload []fileDTO
	if err := c.do(req, &payload); err != nil {
		return UploadResult{}, &UploadError{Op: "upload", Filename: filename, Err: err}
	}
	if len(payload) == 0 {
		return UploadResult{}, &UploadError{Op: "upload", Filename: filename, Err: errors.New("upload response contained no files")}
	}

	return UploadResult{Local: file, Remote: payload[0].toModel()}, nil
}

// CreateEntry creates a new entry in the collection named by entry.
func (c *Client) CreateEntry(ctx context.Context, entry ContentType) (Entry, error) {
	if entry == nil {
		return Entry{}, &SubmitError{Err: errors.New("content type is required")}
	}
	collection := strings.TrimSpace(entry.PluralName())
	if collection == "" {
		return Entry{}, &SubmitError{Err: errors.New("collection name is required")}
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/"+url.PathEscape(collection), nil, map[string]any{
		"data": entry.Payload(),
	})
	if err != nil {
		return Entry{}, &SubmitError{Collection: collection, Err: err}
	}

	var payload entryResponse
	if err := c.do(req, &payload); err != nil {
		return Entry{}, &SubmitError{Collection: collection, Err: err}
	}

	out := Entry{Data: payload.Data, Meta: payload.Meta}
	if len(payload.Data) > 0 {
		var data entryDataDTO
		if err := json.Unmarshal(payload.Data, &data); err == nil {
			out.ID = data.ID
			out.DocumentID = data.DocumentID
		}
	}
	return out, nil
}

// AbsoluteURL resolves a media URL returned by Strapi against the host.
// Absolute URLs, as produced by cloud upload providers, are returned as is.
func (c *Client) AbsoluteURL(ref string) string {
	return resolveWebURL(c.baseURL, ref)
}

func encodeUploadBody(filename, ext string, data []byte) ([]byte, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	mimeType := MIMETypeByExtension(ext)
	if mimeType == "" {
		mimeType = DefaultMIMEType
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, quoteEscaper.Replace(filename)))
	header.Set("Content-Type", mimeType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create multipart file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("write multipart payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart payload: %w", err)
	}
	return body.Bytes(), writer.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func decodeFileList(raw json.RawMessage) ([]File, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var items []fileDTO
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode file list: %w", err)
		}
	} else {
		var wrapped fileListResponse
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("decode file list: %w", err)
		}
		items = wrapped.Results
		if len(items) == 0 {
			items = wrapped.Data
		}
	}

	files := make([]File, 0, len(items))
	for _, item := range items {
		files = append(files, item.toModel())
	}
	return files, nil
}

func (c *Client) newRequest(
	ctx context.Context,
	method string,
	pathSuffix string,
	query url.Values,
	body any,
) (*http.Request, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	u.Path = path.Join(u.Path, pathSuffix)

	if query != nil {
		q := u.Query()
		for key, vals := range query {
			for _, v := range vals {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("strapi request failed", "method", req.Method, "url", req.URL.String(), "error", err)
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug("strapi request",
		"method", req.Method,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &APIError{
			StatusCode: resp.StatusCode,
			Method:     req.Method,
			URL:        req.URL.String(),
			Message:    decodeAPIErrorMessage(bodyBytes),
			Body:       string(bodyBytes),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode response JSON: %w", err)
	}
	return nil
}

// decodeAPIErrorMessage understands Strapi's {"error":{"message":...}}
// envelope as well as flat {"message":...} bodies.
func decodeAPIErrorMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	if nested, ok := payload["error"].(map[string]any); ok {
		if v, ok := nested["message"].(string); ok {
			return v
		}
	}
	for _, key := range []string{"message", "error", "reason"} {
		if v, ok := payload[key].(string); ok {
			return v
		}
	}
	return ""
}

func resolveWebURL(baseURL, ref string) string {
	if strings.TrimSpace(ref) == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if u.IsAbs() {
		return ref
	}
	root, err := url.Parse(baseURL)
	if err != nil {
		return ref
	}
	return root.ResolveReference(u).String()
}

package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"papersum/internal/services"
)

const (
	defaultBaseURL      = "https://generativelanguage.googleapis.com"
	defaultModel        = "gemini-2.0-flash"
	defaultHTTPTimeout  = 300 * time.Second
	defaultPollInterval = 2 * time.Second
	apiVersion          = "v1beta"
	pdfMIMEType         = "application/pdf"
	maxErrorBody        = 512
)

// Config captures the runtime settings required to talk to Gemini.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	MaxOutputTokens int
	Temperature     float64
	TimeoutSeconds  int
}

// File is an uploaded document reference.
type File struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType"`
	State    string `json:"state"`
}

// Client wraps the Gemini Files and generateContent REST APIs. It never
// retries; callers own the retry policy.
type Client struct {
	cfg          Config
	httpClient   *http.Client
	pollInterval time.Duration
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithPollInterval overrides how often a processing upload is polled.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// NewClient constructs a Gemini client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:          strings.TrimSpace(cfg.APIKey),
			BaseURL:         strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:           strings.TrimPrefix(strings.TrimSpace(cfg.Model), "models/"),
			MaxOutputTokens: cfg.MaxOutputTokens,
			Temperature:     cfg.Temperature,
			TimeoutSeconds:  cfg.TimeoutSeconds,
		},
		httpClient:   &http.Client{Timeout: timeout},
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.Model == "" {
		client.cfg.Model = defaultModel
	}
	return client
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.cfg.Model }

type apiErrorBody struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// UploadFile sends a PDF through the resumable Files API and waits until the
// file is ready for generation.
func (c *Client) UploadFile(ctx context.Context, path string) (File, error) {
	const op = "gemini upload"
	if c.cfg.APIKey == "" {
		return File{}, services.NewError(services.KindAuth, op, "api key required", nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, services.NewError(services.KindIO, op, "read pdf", err)
	}

	start, err := json.Marshal(map[string]any{
		"file": map[string]string{"display_name": filepath.Base(path)},
	})
	if err != nil {
		return File{}, services.NewError(services.KindInternal, op, "encode metadata", err)
	}
	endpoint := c.cfg.BaseURL + "/upload/" + apiVersion + "/files"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(start))
	if err != nil {
		return File{}, services.NewError(services.KindInternal, op, "new request", err)
	}
	req.Header.Set("X-Goog-Upload-Protocol", "resumable")
	req.Header.Set("X-Goog-Upload-Command", "start")
	req.Header.Set("X-Goog-Upload-Header-Content-Length", strconv.Itoa(len(data)))
	req.Header.Set("X-Goog-Upload-Header-Content-Type", pdfMIMEType)
	req.Header.Set("Content-Type", "application/json")
	resp, _, err := c.do(req, op)
	if err != nil {
		return File{}, err
	}
	uploadURL := strings.TrimSpace(resp.Header.Get("X-Goog-Upload-URL"))
	if uploadURL == "" {
		return File{}, services.NewError(services.KindTransient, op, "missing upload url", nil)
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return File{}, services.NewError(services.KindInternal, op, "new request", err)
	}
	req.Header.Set("X-Goog-Upload-Offset", "0")
	req.Header.Set("X-Goog-Upload-Command", "upload, finalize")
	req.Header.Set("Content-Type", pdfMIMEType)
	_, body, err := c.do(req, op)
	if err != nil {
		return File{}, err
	}
	var uploaded struct {
		File File `json:"file"`
	}
	if err := json.Unmarshal(body, &uploaded); err != nil {
		return File{}, services.NewError(services.KindTransient, op, "decode response", err)
	}
	if uploaded.File.URI == "" {
		return File{}, services.NewError(services.KindEmptyResponse, op, "upload returned no file uri", nil)
	}
	if uploaded.File.MIMEType == "" {
		uploaded.File.MIMEType = pdfMIMEType
	}
	return c.waitActive(ctx, uploaded.File)
}

func (c *Client) waitActive(ctx context.Context, file File) (File, error) {
	const op = "gemini file state"
	for {
		switch strings.ToUpper(file.State) {
		case "", "ACTIVE", "STATE_UNSPECIFIED":
			return file, nil
		case "FAILED":
			return File{}, services.NewError(services.KindInvalidRequest, op, "file processing failed: "+file.Name, nil)
		}
		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return File{}, services.NewError(services.KindCanceled, op, "wait for file", ctx.Err())
		case <-timer.C:
		}
		next, err := c.GetFile(ctx, file.Name)
		if err != nil {
			return File{}, err
		}
		if next.MIMEType == "" {
			next.MIMEType = file.MIMEType
		}
		file = next
	}
}

// GetFile fetches the metadata of an uploaded file ("files/<id>").
func (c *Client) GetFile(ctx context.Context, name string) (File, error) {
	const op = "gemini get file"
	endpoint := c.cfg.BaseURL + "/" + apiVersion + "/" + strings.TrimPrefix(name, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return File{}, services.NewError(services.KindInternal, op, "new request", err)
	}
	_, body, err := c.do(req, op)
	if err != nil {
		return File{}, err
	}
	var file File
	if err := json.Unmarshal(body, &file); err != nil {
		return File{}, services.NewError(services.KindTransient, op, "decode response", err)
	}
	return file, nil
}

type part struct {
	Text     string    `json:"text,omitempty"`
	FileData *fileData `json:"file_data,omitempty"`
}

type fileData struct {
	MIMEType string `json:"mime_type"`
	FileURI  string `json:"file_uri"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Generate issues one generateContent call with the uploaded file followed by
// the prompt. An empty candidate text is returned as "" without error.
func (c *Client) Generate(ctx context.Context, file File, prompt string) (string, error) {
	const op = "gemini generate"
	if c.cfg.APIKey == "" {
		return "", services.NewError(services.KindAuth, op, "api key required", nil)
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", services.NewError(services.KindInvalidRequest, op, "prompt required", nil)
	}
	payload := generateRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{FileData: &fileData{MIMEType: file.MIMEType, FileURI: file.URI}},
				{Text: prompt},
			},
		}},
		GenerationConfig: generationConfig{
			Temperature:     c.cfg.Temperature,
			MaxOutputTokens: c.cfg.MaxOutputTokens,
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", services.NewError(services.KindInternal, op, "encode body", err)
	}
	endpoint := c.cfg.BaseURL + "/" + apiVersion + "/models/" + url.PathEscape(c.cfg.Model) + ":generateContent"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", services.NewError(services.KindInternal, op, "new request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	_, body, err := c.do(req, op)
	if err != nil {
		return "", err
	}
	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", services.NewError(services.KindTransient, op, "decode response", err)
	}
	if decoded.PromptFeedback != nil && decoded.PromptFeedback.BlockReason != "" && len(decoded.Candidates) == 0 {
		return "", services.NewError(services.KindInvalidRequest, op, "prompt blocked: "+decoded.PromptFeedback.BlockReason, nil)
	}
	return candidateText(decoded), nil
}

func candidateText(resp generateResponse) string {
	for _, candidate := range resp.Candidates {
		var b strings.Builder
		for _, p := range candidate.Content.Parts {
			b.WriteString(p.Text)
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}

// HealthCheck verifies the API key and model by fetching model metadata.
func (c *Client) HealthCheck(ctx context.Context) error {
	const op = "gemini health"
	if c.cfg.APIKey == "" {
		return services.NewError(services.KindAuth, op, "api key required", nil)
	}
	endpoint := c.cfg.BaseURL + "/" + apiVersion + "/models/" + url.PathEscape(c.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return services.NewError(services.KindInternal, op, "new request", err)
	}
	_, _, err = c.do(req, op)
	return err
}

func (c *Client) do(req *http.Request, op string) (*http.Response, []byte, error) {
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, transportError(req.Context(), op, err, c.timeoutDuration())
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, transportError(req.Context(), op, err, c.timeoutDuration())
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, body, statusError(op, resp.StatusCode, body)
	}
	return resp, body, nil
}

func statusError(op string, code int, body []byte) error {
	kind := services.KindFromHTTPStatus(code)
	message := fmt.Sprintf("http %d", code)
	var decoded apiErrorBody
	if err := json.Unmarshal(body, &decoded); err == nil && decoded.Error != nil {
		if apiKind := services.KindFromAPIStatus(decoded.Error.Status); apiKind != services.KindUnknown {
			kind = apiKind
		}
		message = fmt.Sprintf("http %d %s: %s", code, decoded.Error.Status, strings.TrimSpace(decoded.Error.Message))
	} else if snippet := strings.TrimSpace(string(body)); snippet != "" {
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody] + "..."
		}
		message = fmt.Sprintf("http %d: %s", code, snippet)
	}
	if kind == services.KindUnknown || kind == services.KindInvalidRequest {
		if byMessage := services.ClassifyMessage(message); byMessage != services.KindUnknown {
			kind = byMessage
		}
	}
	return services.NewError(kind, op, message, nil)
}

func transportError(ctx context.Context, op string, err error, timeout time.Duration) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return services.NewError(services.KindCanceled, op, "request canceled", err)
	}
	kind := services.ClassifyMessage(err.Error())
	if kind == services.KindUnknown {
		kind = services.KindTransient
	}
	return services.NewError(kind, op, fmt.Sprintf("http error (timeout=%s)", timeout), err)
}

func (c *Client) timeoutDuration() time.Duration {
	if c.httpClient == nil || c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}

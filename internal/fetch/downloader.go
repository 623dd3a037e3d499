package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"papersum/internal/dispatch"
	"papersum/internal/fileutil"
	"papersum/internal/logging"
	"papersum/internal/services"
)

const userAgent = "papersum/1 (+literature review fetcher)"

// Downloader is a dispatch.Processor that saves item.Locator to dir/item.ID.
type Downloader struct {
	dir        string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ dispatch.Processor = (*Downloader)(nil)

// DownloaderOption customizes a Downloader.
type DownloaderOption func(*Downloader)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) DownloaderOption {
	return func(d *Downloader) {
		if client != nil {
			d.httpClient = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) DownloaderOption {
	return func(d *Downloader) {
		if logger != nil {
			d.logger = logging.NewComponentLogger(logger, "fetch")
		}
	}
}

// NewDownloader builds a downloader writing into dir. timeout bounds each
// request; zero means no client-side limit.
func NewDownloader(dir string, timeout time.Duration, opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		dir:        dir,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Process downloads one PDF. HTTP 429 is reported as rate limited, 5xx and
// network timeouts as transient, other 4xx as invalid requests. The file only
// appears once the body has been fully received.
func (d *Downloader) Process(ctx context.Context, item dispatch.WorkItem) (string, error) {
	const op = "fetch download"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.Locator, nil)
	if err != nil {
		return "", services.NewError(services.KindInvalidRequest, op, "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/pdf,*/*;q=0.8")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", transportError(ctx, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		kind := services.KindFromHTTPStatus(resp.StatusCode)
		if kind == services.KindUnknown {
			kind = services.KindInvalidRequest
		}
		return "", services.NewError(kind, op,
			fmt.Sprintf("%s: status %d %s", item.Locator, resp.StatusCode, strings.TrimSpace(string(snippet))), nil)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "pdf") && !strings.Contains(ct, "octet-stream") {
		logging.WarnWithContext(logging.WithContext(services.WithItemID(ctx, item.ID), d.logger),
			"response is not a pdf", "unexpected_content_type",
			logging.String("content_type", ct),
			logging.String("url", item.Locator),
			logging.String(logging.FieldImpact, "file saved as-is; summarization may fail"),
		)
	}

	target := filepath.Join(d.dir, item.ID)
	written, err := fileutil.WriteStreamAtomic(target, resp.Body, 0o644)
	if err != nil {
		if ctx.Err() != nil {
			return "", services.NewError(services.KindCanceled, op, "download interrupted", ctx.Err())
		}
		var netErr net.Error
		if errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF) {
			return "", services.NewError(services.KindTransient, op, "read body", err)
		}
		return "", services.NewError(services.KindIO, op, "write pdf", err)
	}
	d.logger.Debug("pdf downloaded",
		logging.String(logging.FieldItemID, item.ID),
		logging.Int64("bytes", written),
	)
	return target, nil
}

func transportError(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return services.NewError(services.KindCanceled, op, "request canceled", err)
	}
	if kind := services.ClassifyMessage(err.Error()); kind != services.KindUnknown {
		return services.NewError(kind, op, "request failed", err)
	}
	return services.NewError(services.KindTransient, op, "request failed", err)
}

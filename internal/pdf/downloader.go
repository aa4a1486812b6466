// Package pdf downloads remote PDF documents for analysis.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/MakazhanAlpamys/ResearchHubV2/internal/observability"
)

const (
	// DefaultTimeout is the whole-request timeout, redirects included.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxSize is the largest accepted document.
	DefaultMaxSize = 20 * 1024 * 1024

	// DefaultUserAgent is sent on every download.
	DefaultUserAgent = "ResearchHubV2/1.0"

	maxRedirects = 10
)

// Sentinel errors for PDF download operations.
var (
	// ErrNotPDF is returned when neither the Content-Type nor the URL path indicates a PDF.
	ErrNotPDF = errors.New("pdf: response is not a PDF")
	// ErrTooLarge is returned when the file exceeds the maximum allowed size.
	ErrTooLarge = errors.New("pdf: file exceeds maximum size")
	// ErrDownloadFailed is returned when the download fails due to network or HTTP errors.
	ErrDownloadFailed = errors.New("pdf: download failed")
	// ErrSSRF is returned when the URL is not http(s) or resolves to a private network address.
	ErrSSRF = errors.New("pdf: request to private network denied")
)

// DownloadResult holds the result of downloading a PDF.
type DownloadResult struct {
	// Content is the PDF bytes.
	Content []byte
	// SizeBytes is the size of the content in bytes.
	SizeBytes int64
	// ContentType is the actual Content-Type header from the response.
	ContentType string
}

// Config holds downloader configuration.
type Config struct {
	// Timeout is the HTTP request timeout. Default: 30 seconds.
	Timeout time.Duration
	// MaxSize is the maximum file size in bytes. Default: 20MB.
	MaxSize int64
	// UserAgent is the User-Agent header.
	UserAgent string
	// AllowPrivateNetworks disables SSRF private-IP checks. This MUST only be
	// set to true in test environments. Production code must never set this.
	AllowPrivateNetworks bool
	// Metrics receives fetch outcome counters. May be nil.
	Metrics *observability.Metrics
}

// Downloader downloads PDFs from URLs.
type Downloader struct {
	client               *http.Client
	maxSize              int64
	userAgent            string
	allowPrivateNetworks bool // For testing only; never enable in production.
	metrics              *observability.Metrics
}

// NewDownloader creates a new Downloader with the given configuration.
func NewDownloader(cfg Config) *Downloader {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxSize == 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	d := &Downloader{
		maxSize:              cfg.MaxSize,
		userAgent:            cfg.UserAgent,
		allowPrivateNetworks: cfg.AllowPrivateNetworks,
		metrics:              cfg.Metrics,
	}

	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !d.allowPrivateNetworks {
		// Checked against the resolved address at dial time, on every hop.
		dialer.Control = denyPrivateDial
		transport.Proxy = nil
	}
	transport.DialContext = dialer.DialContext

	d.client = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("%w: too many redirects", ErrDownloadFailed)
			}
			return checkScheme(req.URL)
		},
	}

	return d
}

// MaxSize returns the configured size limit in bytes.
func (d *Downloader) MaxSize() int64 {
	return d.maxSize
}

// isPrivateIP returns true if the IP address is in a private, loopback, or
// otherwise non-routable range. Covers both IPv4 and IPv6 private ranges.
func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsPrivate() || ip.IsUnspecified() {
		return true
	}
	// Carrier-grade NAT (100.64.0.0/10).
	if v4 := ip.To4(); v4 != nil && v4[0] == 100 && v4[1]&0xC0 == 64 {
		return true
	}
	return false
}

// checkScheme rejects anything but http(s) URLs with a host.
func checkScheme(u *url.URL) error {
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("%w: scheme %q is not allowed", ErrSSRF, u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: missing host", ErrSSRF)
	}
	return nil
}

// denyPrivateDial is a net.Dialer Control hook. address is the resolved
// ip:port about to be connected.
func denyPrivateDial(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSSRF, err)
	}
	ip := net.ParseIP(host)
	if ip == nil || isPrivateIP(ip) {
		return fmt.Errorf("%w: %s dials private address %s", ErrSSRF, network, host)
	}
	return nil
}

// looksLikePDF accepts a response when its Content-Type mentions pdf or the
// requested URL path ends in ".pdf".
func looksLikePDF(contentType, rawURL string) bool {
	if strings.Contains(strings.ToLower(contentType), "pdf") {
		return true
	}
	if u, err := url.Parse(rawURL); err == nil {
		return strings.HasSuffix(strings.ToLower(u.Path), ".pdf")
	}
	return false
}

// Download fetches a PDF from the given URL, following redirects.
// Returns ErrNotPDF if neither the Content-Type nor the URL indicates a PDF.
// Returns ErrTooLarge if the response exceeds MaxSize.
// Returns ErrSSRF if the URL is not http(s) or any hop dials a private address.
// Returns ErrDownloadFailed wrapped with HTTP status for non-2xx responses.
func (d *Downloader) Download(ctx context.Context, rawURL string) (*DownloadResult, error) {
	result, err := d.download(ctx, rawURL)
	if d.metrics != nil {
		size := 0
		if result != nil {
			size = len(result.Content)
		}
		d.metrics.RecordDocumentFetch(outcome(err), size)
	}
	return result, err
}

func (d *Downloader) download(ctx context.Context, rawURL string) (*DownloadResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL: %w", ErrDownloadFailed, err)
	}
	if err := checkScheme(req.URL); err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "application/pdf, */*;q=0.8")

	resp, err := d.client.Do(req)
	if err != nil {
		if errors.Is(err, ErrSSRF) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrDownloadFailed, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !looksLikePDF(contentType, rawURL) {
		return nil, fmt.Errorf("%w: Content-Type is %q", ErrNotPDF, contentType)
	}

	if resp.ContentLength > d.maxSize {
		return nil, fmt.Errorf("%w: Content-Length %d exceeds %d bytes", ErrTooLarge, resp.ContentLength, d.maxSize)
	}

	// Read one extra byte to detect if file is too large.
	content, err := io.ReadAll(io.LimitReader(resp.Body, d.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrDownloadFailed, err)
	}
	if int64(len(content)) > d.maxSize {
		return nil, fmt.Errorf("%w: exceeded %d bytes", ErrTooLarge, d.maxSize)
	}

	return &DownloadResult{
		Content:     content,
		SizeBytes:   int64(len(content)),
		ContentType: contentType,
	}, nil
}

// outcome returns the metrics label for a download result.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNotPDF):
		return "not_pdf"
	case errors.Is(err, ErrTooLarge):
		return "too_large"
	case errors.Is(err, ErrSSRF):
		return "blocked"
	default:
		return "failed"
	}
}

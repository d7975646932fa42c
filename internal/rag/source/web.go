package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/akolanti/knowledgecore/internal/config"
	"github.com/akolanti/knowledgecore/internal/customHttpClient"
)

const maxRedirects = 5

var errPrivateAddress = errors.New("connection to a private address is not allowed")

type fetchResult struct {
	Body        []byte
	ContentType string
	FinalURL    string
}

type webFetcher struct {
	client         *http.Client
	userAgent      string
	maxContentSize int64
}

// newWebFetcher resolves and checks every dialled address, so a public name
// that rebinds to a private IP is still refused unless allowPrivate is set.
func newWebFetcher(timeout time.Duration, maxContentSize int64, allowPrivate bool) *webFetcher {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	safeDialContext := func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid address: %w", err)
		}
		ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("DNS lookup failed: %w", err)
		}
		if !allowPrivate {
			for _, ipAddr := range ips {
				if isPrivateIP(ipAddr.IP) {
					return nil, fmt.Errorf("%w: %s", errPrivateAddress, ipAddr.IP)
				}
			}
		}
		for _, ipAddr := range ips {
			conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ipAddr.IP.String(), port))
			if err == nil {
				return conn, nil
			}
		}
		return nil, fmt.Errorf("failed to connect to any resolved IP for %s", host)
	}

	transport := customHttpClient.NewTransport()
	transport.Proxy = nil
	transport.DialContext = safeDialContext
	transport.ResponseHeaderTimeout = timeout

	return &webFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects (max %d)", maxRedirects)
				}
				return validateWebURL(req.URL.String())
			},
		},
		userAgent:      config.WebUserAgent,
		maxContentSize: maxContentSize,
	}
}

func (f *webFetcher) Fetch(ctx context.Context, rawURL string) (*fetchResult, error) {
	if err := validateWebURL(rawURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf;q=0.9,text/plain;q=0.8,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxContentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxContentSize {
		return nil, fmt.Errorf("content too large (exceeds %d bytes)", f.maxContentSize)
	}

	ctype := resp.Header.Get("Content-Type")
	if parsed, _, err := mime.ParseMediaType(ctype); err == nil {
		ctype = parsed
	}
	if ctype == "" {
		ctype = http.DetectContentType(body)
	}
	return &fetchResult{Body: body, ContentType: strings.ToLower(ctype), FinalURL: resp.Request.URL.String()}, nil
}

func validateWebURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
}

func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified() || ip.IsInterfaceLocalMulticast()
}

// urlName is a file-like name for a fetched page.
func urlName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "page"
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." || name == "" {
		name = u.Hostname()
	}
	return SafeFilename(name, "page")
}

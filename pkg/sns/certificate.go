package sns

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const maxCertificateSize = 64 << 10

type CertificateFetcher interface {
	Fetch(ctx context.Context, url string) (*x509.Certificate, error)
}

type httpFetcher struct {
	client *http.Client
}

func NewHTTPFetcher(client *http.Client) CertificateFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpFetcher{client: client}
}

func (f *httpFetcher) Fetch(ctx context.Context, url string) (*x509.Certificate, error) {
	zerolog.Ctx(ctx).Debug().Str("cert_url", url).Msg("fetching signing certificate")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching certificate", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCertificateSize))
	if err != nil {
		return nil, err
	}

	return ParseCertificatePEM(body)
}

func ParseCertificatePEM(data []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM data found")
	}
	if block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("unexpected PEM block type %q", block.Type)
	}
	return x509.ParseCertificate(block.Bytes)
}

type cachedCertificate struct {
	cert    *x509.Certificate
	expires time.Time
}

// CachedFetcher keeps certificates per URL for ttl, or until the certificate
// itself expires, whichever comes first.
type CachedFetcher struct {
	next    CertificateFetcher
	ttl     time.Duration
	now     func() time.Time
	mu      sync.Mutex
	entries map[string]cachedCertificate
}

func NewCachedFetcher(next CertificateFetcher, ttl time.Duration) *CachedFetcher {
	return &CachedFetcher{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cachedCertificate),
	}
}

func (c *CachedFetcher) Fetch(ctx context.Context, url string) (*x509.Certificate, error) {
	now := c.now()

	c.mu.Lock()
	entry, ok := c.entries[url]
	c.mu.Unlock()
	if ok && now.Before(entry.expires) {
		return entry.cert, nil
	}

	cert, err := c.next.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	expires := now.Add(c.ttl)
	if cert.NotAfter.Before(expires) {
		expires = cert.NotAfter
	}

	c.mu.Lock()
	c.entries[url] = cachedCertificate{cert: cert, expires: expires}
	c.mu.Unlock()

	return cert, nil
}

package customHttpClient

import (
	"net/http"
	"sync"
	"time"

	"github.com/akolanti/knowledgecore/internal/config"
)

var (
	pooledClient *http.Client
	once         sync.Once
)

func newTransport() *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// GetPooledClient is shared by the embedding providers so batches reuse
// keep-alive connections. It carries no client timeout; callers bound each
// request with a context.
func GetPooledClient() *http.Client {
	once.Do(func() {
		pooledClient = &http.Client{Transport: newTransport()}
	})
	return pooledClient
}

// NewTransport returns a fresh transport with the pooling limits, for callers
// that need their own dialer.
func NewTransport() *http.Transport {
	return newTransport()
}

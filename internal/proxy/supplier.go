package proxy

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"resty.dev/v3"
)

// Supplier hands out egress proxy URLs round-robin. Deployments that
// route outbound traffic through a proxy pool configure the list; an
// empty pool means direct connections.
type Supplier interface {
	Get() string
}

type supplier struct {
	mu      sync.Mutex
	proxies []string
	next    int
}

// NewSupplier validates the configured proxies against the UGC service
// base URL in parallel and keeps only the ones that answer.
func NewSupplier(ctx context.Context, proxies []string, probeURL string) (Supplier, error) {
	s := &supplier{}
	if len(proxies) == 0 {
		return s, nil
	}

	log.Infof("Validating %d egress proxies...", len(proxies))

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(50)

	for _, proxyURL := range proxies {
		g.Go(func() error {
			if !probe(ctx, proxyURL, probeURL) {
				log.Infof("Proxy %s failed validation, skipping", proxyURL)
				return nil
			}
			mu.Lock()
			s.proxies = append(s.proxies, proxyURL)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Infof("✅ Proxy pool ready: %d of %d proxies usable", len(s.proxies), len(proxies))
	return s, nil
}

// Get returns the next proxy URL, or "" when the pool is empty.
func (s *supplier) Get() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.proxies) == 0 {
		return ""
	}

	proxyURL := s.proxies[s.next]
	s.next = (s.next + 1) % len(s.proxies)
	return proxyURL
}

func probe(ctx context.Context, proxyURL, probeURL string) bool {
	client := resty.New().
		SetTimeout(5 * time.Second).
		SetRetryCount(0).
		SetProxy(proxyURL)
	defer client.Close()

	resp, err := client.R().
		SetContext(ctx).
		Get(probeURL)
	if err != nil {
		log.Debugf("Proxy probe failed for %s: %v", proxyURL, err)
		return false
	}

	return !resp.IsError()
}

package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ugc/exporter/internal/config"
	"ugc/exporter/internal/domain"
	"ugc/exporter/internal/proxy"

	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

// Client talks to the UGC content service. The service is a black box
// here: send a JSON payload, get success or failure back.
type Client interface {
	SendFeedChunk(ctx context.Context, page int, records []domain.ExportRecord) error
	SendEvent(ctx context.Context, event domain.CommerceEvent) error
	Ping(ctx context.Context) error
}

type feedChunkPayload struct {
	AccountID string                `json:"account_id"`
	Page      int                   `json:"page"`
	Records   []domain.ExportRecord `json:"records"`
}

type ugcClient struct {
	rl            ratelimit.Limiter
	cfg           config.ServiceConfig
	httpClient    *resty.Client
	proxySupplier proxy.Supplier

	// Cooldown gate for remote over-quota responses
	cooldownMutex sync.RWMutex
	cooldownUntil time.Time
	cooldownDelay time.Duration
}

func NewClient(cfg config.ServiceConfig, proxySupplier proxy.Supplier) Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(cfg.Timeout)*time.Second).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(2*time.Second).
		SetRetryMaxWaitTime(10*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Api-Key", cfg.APIKey)

	if proxySupplier != nil {
		if proxyURL := proxySupplier.Get(); proxyURL != "" {
			httpClient.SetProxy(proxyURL)
			log.Infof("Using egress proxy: %s", proxyURL)
		}
	}

	rps := cfg.MaxRequestsPerSecond
	if rps <= 0 {
		rps = 1
	}

	cooldown := time.Duration(cfg.CooldownMinutes) * time.Minute
	if cooldown <= 0 {
		cooldown = 30 * time.Minute
	}

	return &ugcClient{
		rl:            ratelimit.New(rps),
		cfg:           cfg,
		httpClient:    httpClient,
		proxySupplier: proxySupplier,
		cooldownDelay: cooldown,
	}
}

func (c *ugcClient) SendFeedChunk(ctx context.Context, page int, records []domain.ExportRecord) error {
	payload := feedChunkPayload{
		AccountID: c.cfg.AccountID,
		Page:      page,
		Records:   records,
	}

	if err := c.post(ctx, "/v2/media/feed", payload); err != nil {
		return fmt.Errorf("failed to send feed chunk %d: %w", page, err)
	}

	log.Debugf("Sent feed chunk %d with %d records", page, len(records))
	return nil
}

func (c *ugcClient) SendEvent(ctx context.Context, event domain.CommerceEvent) error {
	if err := c.post(ctx, "/v2/events", event); err != nil {
		return fmt.Errorf("failed to send %s event: %w", event.Type, err)
	}

	log.Debugf("Forwarded %s event for product %s", event.Type, event.ProductID)
	return nil
}

func (c *ugcClient) Ping(ctx context.Context) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		Get("/v2/status")
	if err != nil {
		return fmt.Errorf("failed to reach UGC service: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("UGC service status check returned %d %s", resp.StatusCode(), resp.Status())
	}
	return nil
}

func (c *ugcClient) post(ctx context.Context, path string, body interface{}) error {
	if c.isCoolingDown() {
		remaining := c.remainingCooldown()
		return fmt.Errorf("requests disabled for %v more after over-quota response", remaining.Round(time.Second))
	}

	c.rl.Take()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		Post(path)

	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode() == 429 {
		// One retry through a fresh proxy before shutting the gate.
		if c.proxySupplier != nil {
			if proxyURL := c.proxySupplier.Get(); proxyURL != "" {
				log.Infof("Over quota, retrying through proxy %s", proxyURL)
				c.httpClient.SetProxy(proxyURL)

				retryResp, retryErr := c.httpClient.R().
					SetContext(ctx).
					SetBody(body).
					Post(path)
				if retryErr == nil && !retryResp.IsError() {
					return nil
				}
			}
		}

		c.startCooldown()
		return fmt.Errorf("UGC service reports over quota, requests disabled for %v", c.cooldownDelay)
	}

	if resp.IsError() {
		return fmt.Errorf("HTTP error: %d %s", resp.StatusCode(), resp.Status())
	}

	return nil
}

func (c *ugcClient) isCoolingDown() bool {
	c.cooldownMutex.RLock()
	now := time.Now()
	active := now.Before(c.cooldownUntil)
	triggered := !c.cooldownUntil.IsZero()
	c.cooldownMutex.RUnlock()

	if !active && triggered {
		c.cooldownMutex.Lock()
		if !c.cooldownUntil.IsZero() && now.After(c.cooldownUntil) {
			c.cooldownUntil = time.Time{}
			log.Infof("✅ Cooldown expired, requests re-enabled")
		}
		c.cooldownMutex.Unlock()
	}

	return active
}

func (c *ugcClient) startCooldown() {
	c.cooldownMutex.Lock()
	defer c.cooldownMutex.Unlock()

	c.cooldownUntil = time.Now().Add(c.cooldownDelay)
	log.Warnf("🚫 Over-quota response, all requests disabled until %s", c.cooldownUntil.Format("15:04:05"))
}

func (c *ugcClient) remainingCooldown() time.Duration {
	c.cooldownMutex.RLock()
	defer c.cooldownMutex.RUnlock()

	remaining := time.Until(c.cooldownUntil)
	if remaining < 0 {
		return 0
	}
	return remaining
}

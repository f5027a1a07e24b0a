// Package openfoodfacts resolves UPCs through the Open Food Facts database.
package openfoodfacts

import (
	"context"
	"fmt"
	"strings"
	"time"

	off "github.com/openfoodfacts/openfoodfacts-go"
	"golang.org/x/time/rate"

	"github.com/smarties/backend/internal/domain"
	"github.com/smarties/backend/internal/platform/logger"
)

// ProductSource fetches a raw product record by barcode. off.Client satisfies it.
type ProductSource interface {
	Product(code string) (*off.Product, error)
}

// IngredientSplitter splits a free-text ingredient statement into entries.
type IngredientSplitter interface {
	SplitIngredients(text string) []string
}

// Config holds Open Food Facts client settings
type Config struct {
	Locale   string
	Username string
	Password string
	Timeout  time.Duration
}

// Client implements domain.ProductLookup
type Client struct {
	source      ProductSource
	splitter    IngredientSplitter
	rateLimiter *rate.Limiter
	timeout     time.Duration
	log         *logger.Logger
}

// NewClient creates a client against the public Open Food Facts API.
func NewClient(cfg Config, splitter IngredientSplitter, log *logger.Logger) *Client {
	locale := cfg.Locale
	if locale == "" {
		locale = "world"
	}
	api := off.NewClient(locale, cfg.Username, cfg.Password)
	return NewClientWithSource(&api, cfg, splitter, log)
}

// NewClientWithSource creates a client over an arbitrary source.
func NewClientWithSource(source ProductSource, cfg Config, splitter IngredientSplitter, log *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if log == nil {
		log = logger.NewNop()
	}
	// Open Food Facts asks for at most 100 product reads per minute.
	limiter := rate.NewLimiter(rate.Every(600*time.Millisecond), 10)

	return &Client{
		source:      source,
		splitter:    splitter,
		rateLimiter: limiter,
		timeout:     timeout,
		log:         log.With("service", "OpenFoodFactsClient"),
	}
}

type fetchResult struct {
	product *off.Product
	err     error
}

// Lookup fetches and maps the product for upc.
func (c *Client) Lookup(ctx context.Context, upc string) (*domain.Product, error) {
	upc = strings.TrimSpace(upc)
	if upc == "" {
		return nil, fmt.Errorf("%w: upc is required", domain.ErrInvalidRequest)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", domain.ErrProductLookupFailed, err)
	}

	// The library call takes no context, so it runs on its own goroutine and is
	// abandoned when ctx ends.
	done := make(chan fetchResult, 1)
	start := time.Now()
	go func() {
		p, err := c.source.Product(upc)
		done <- fetchResult{product: p, err: err}
	}()

	var res fetchResult
	select {
	case <-ctx.Done():
		c.log.Warn("product lookup abandoned", "upc", upc, "error", ctx.Err())
		return nil, fmt.Errorf("%w: %w", domain.ErrProductLookupFailed, ctx.Err())
	case res = <-done:
	}

	if res.err != nil {
		if isNotFound(res.err) {
			return nil, domain.ErrProductNotFound
		}
		c.log.Warn("product lookup failed", "upc", upc, "error", res.err)
		return nil, fmt.Errorf("%w: %v", domain.ErrProductLookupFailed, res.err)
	}
	if res.product == nil {
		return nil, domain.ErrProductNotFound
	}

	product := MapToProduct(upc, res.product, c.splitter)
	if product.Name == "" && !product.HasIngredients() {
		return nil, domain.ErrProductNotFound
	}

	c.log.Debug("product lookup finished",
		"upc", upc,
		"ingredients", len(product.Ingredients),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return product, nil
}

func isNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "no product")
}

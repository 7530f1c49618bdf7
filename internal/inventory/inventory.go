package inventory

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spigell/listing-advisor/internal/listing"
)

const (
	userAgent = "spigell/listing-advisor"
	// SearchPath is appended to the configured API URL.
	SearchPath = "/listings"

	defaultPerPage  = 100
	defaultMaxPages = 20
	defaultRetries  = 2
	defaultRPS      = 5
)

type Config struct {
	URL               string        `mapstructure:"url"`
	Token             string        `mapstructure:"token"`
	TokenFile         string        `mapstructure:"token-file"`
	RequestsPerSecond float64       `mapstructure:"requests-per-second"`
	Timeout           time.Duration `mapstructure:"timeout"`
	PerPage           int           `mapstructure:"per-page"`
	MaxPages          int           `mapstructure:"max-pages"`
	Retries           int           `mapstructure:"retries"`
}

// Client talks to a paginated listings API. It implements the widening searcher contract.
type Client struct {
	token      string
	logger     *zap.Logger
	limiter    *rate.Limiter
	perPage    int
	maxPages   int
	retries    int
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

func New(logger *zap.Logger, cfg Config, token string) (*Client, error) {
	apiURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if apiURL == "" {
		return nil, fmt.Errorf("inventory url is not configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRPS
	}

	c := &Client{
		token:    token,
		logger:   logger,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		perPage:  cfg.PerPage,
		maxPages: cfg.MaxPages,
		retries:  cfg.Retries,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		UserAgent: userAgent,
		APIURL:    apiURL,
	}
	if c.perPage <= 0 {
		c.perPage = defaultPerPage
	}
	if c.maxPages <= 0 {
		c.maxPages = defaultMaxPages
	}
	// Negative disables retries, zero selects the default.
	switch {
	case cfg.Retries < 0:
		c.retries = 0
	case cfg.Retries == 0:
		c.retries = defaultRetries
	}
	return c, nil
}

// Search fetches every listing matching the criteria, honoring criteria.Limit when set.
func (c *Client) Search(ctx context.Context, criteria listing.SearchCriteria) ([]listing.Listing, error) {
	q := buildParams(criteria, c.perPage)

	items, err := c.GetItems(ctx, c.APIURL+SearchPath, q, criteria.Limit)
	if err != nil {
		return nil, fmt.Errorf("search listings: %w", err)
	}

	listings, err := DecodeItems(items)
	if err != nil {
		return nil, fmt.Errorf("decode listings: %w", err)
	}

	if criteria.Limit > 0 && len(listings) > criteria.Limit {
		listings = listings[:criteria.Limit]
	}

	c.logger.Debug("inventory search finished",
		zap.Int("found", len(listings)),
		zap.String("query", q.Encode()),
	)
	return listings, nil
}

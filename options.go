package txfeed

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

const (
	defaultCacheSize    = 1024
	defaultPollInterval = 500 * time.Millisecond
	defaultMaxPageSize  = 100
)

type config struct {
	cacheSize    int
	pollInterval time.Duration
	maxPageSize  int
	logger       *log.Entry
	registerer   prometheus.Registerer
}

func defaultConfig() config {
	return config{
		cacheSize:    defaultCacheSize,
		pollInterval: defaultPollInterval,
		maxPageSize:  defaultMaxPageSize,
		logger:       log.NewEntry(log.StandardLogger()),
		registerer:   prometheus.DefaultRegisterer,
	}
}

// Option configures an Adapter at construction time.
type Option func(*config)

// WithCacheSize sets the maximum number of CacheEntrys retained by the
// checkpoint cache. Zero degenerates the cache to pass-through.
func WithCacheSize(size int) Option {
	return func(c *config) { c.cacheSize = size }
}

// WithPollInterval sets the minimum wall-time between re-polls of the same
// tail checkpoint.
func WithPollInterval(d time.Duration) Option {
	return func(c *config) { c.pollInterval = d }
}

// WithMaxPageSize sets the maximum transactions per page, also the threshold
// used to detect "full page ⇒ preload".
func WithMaxPageSize(n int) Option {
	return func(c *config) { c.maxPageSize = n }
}

// WithLogger attaches a structured logger the adapter logs lifecycle events
// and swallowed fetch failures through.
func WithLogger(entry *log.Entry) Option {
	return func(c *config) { c.logger = entry }
}

// WithRegisterer overrides the Prometheus registerer metrics are attached to;
// tests typically pass a fresh prometheus.NewRegistry() for isolation.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *config) { c.registerer = reg }
}

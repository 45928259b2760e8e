// Package di provides dependency injection container
package di

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/ssargent/brokerdb/pkg/api" //nolint:depguard
	"github.com/ssargent/brokerdb/pkg/config"
	"github.com/ssargent/brokerdb/pkg/metrics"
	"github.com/ssargent/brokerdb/pkg/store"
)

// Container holds all the dependencies for the application. Each one is
// built on first use.
type Container struct {
	config *config.Config
	logger *logrus.Logger

	mutex       sync.Mutex
	registry    *prometheus.Registry
	metrics     *metrics.Metrics
	checkpoints api.ICheckpointStore
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config, logger *logrus.Logger) *Container {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Container{config: cfg, logger: logger}
}

// Config returns the loaded configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns a log entry tagged with component
func (c *Container) Logger(component string) *logrus.Entry {
	return c.logger.WithField("component", component)
}

// Registry returns the Prometheus registry every metric is registered with
func (c *Container) Registry() *prometheus.Registry {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.registryLocked()
}

func (c *Container) registryLocked() *prometheus.Registry {
	if c.registry == nil {
		c.registry = prometheus.NewRegistry()
		c.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return c.registry
}

// Metrics returns the shared metrics
func (c *Container) Metrics() *metrics.Metrics {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.metricsLocked()
}

func (c *Container) metricsLocked() *metrics.Metrics {
	if c.metrics == nil {
		c.metrics = metrics.NewMetricsWith(c.registryLocked())
	}
	return c.metrics
}

// CheckpointStore returns the checkpoint store for the configured
// persistence file
func (c *Container) CheckpointStore() (api.ICheckpointStore, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.checkpoints == nil {
		p := c.config.Persistence
		cp, err := store.NewCheckpointer(store.CheckpointConfig{
			DataDir:    p.DataDir,
			FileName:   p.FileName,
			BufferSize: p.BufferSize,
			Fsync:      p.Fsync,
		}, c.metricsLocked(), c.Logger("store"))
		if err != nil {
			return nil, err
		}
		c.checkpoints = cp
	}
	return c.checkpoints, nil
}

// SetCheckpointStore allows overriding the checkpoint store (for testing)
func (c *Container) SetCheckpointStore(checkpoints api.ICheckpointStore) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.checkpoints = checkpoints
}

// NewServer builds the API server over the checkpoint store
func (c *Container) NewServer() (*api.Server, error) {
	checkpoints, err := c.CheckpointStore()
	if err != nil {
		return nil, err
	}
	server := c.config.Server
	return api.NewServer(checkpoints, api.ServerConfig{
		Bind:   server.Bind,
		Port:   server.Port,
		APIKey: server.APIKey,
	}, c.Metrics(), c.Logger("api")), nil
}

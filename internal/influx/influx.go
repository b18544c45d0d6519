// Package influx ships per-step timing samples to InfluxDB so long runs
// can be profiled without attaching a debugger to the simulation.
package influx

import (
	"context"
	"fmt"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2api "github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// TimingBucket is the bucket step timing samples land in.
const TimingBucket = "sim_performance"

// Manager handles the InfluxDB connection and non-blocking writes.
type Manager struct {
	client  influxdb2.Client
	writer  influxdb2api.WriteAPI
	isValid bool
	logger  zerolog.Logger
}

// NewManager creates a disconnected manager.
func NewManager(logger zerolog.Logger) *Manager {
	return &Manager{logger: logger}
}

// Connect builds the client from configuration and verifies reachability.
// A failed connection leaves the manager invalid; writes become no-ops.
func (m *Manager) Connect() error {
	if !viper.GetBool("influx.enabled") {
		m.logger.Info().Msg("influx disabled in config")
		return nil
	}

	url := fmt.Sprintf("%s://%s:%s",
		viper.GetString("influx.protocol"),
		viper.GetString("influx.host"),
		viper.GetString("influx.port"),
	)
	m.client = influxdb2.NewClient(url, viper.GetString("influx.token"))

	ok, err := m.client.Ping(context.Background())
	if err != nil || !ok {
		m.logger.Error().Err(err).Str("url", url).Msg("influx unreachable")
		return fmt.Errorf("influx unreachable at %s: %w", url, err)
	}

	m.writer = m.client.WriteAPI(viper.GetString("influx.org"), TimingBucket)
	m.isValid = true
	m.logger.Info().Str("url", url).Msg("influx connected")
	return nil
}

// IsValid reports whether writes will be shipped.
func (m *Manager) IsValid() bool {
	return m.isValid
}

// WriteTickTiming records the wall time one simulation step took.
func (m *Manager) WriteTickTiming(runID uint, tick uint64, wall time.Duration) {
	if !m.isValid {
		return
	}
	p := influxdb2.NewPoint(
		"tick_timing",
		map[string]string{
			"run": strconv.FormatUint(uint64(runID), 10),
		},
		map[string]any{
			"tick":    int64(tick),
			"wall_us": wall.Microseconds(),
		},
		time.Now(),
	)
	m.writer.WritePoint(p)
}

// Close flushes pending writes and shuts the client down.
func (m *Manager) Close() {
	if !m.isValid {
		return
	}
	m.writer.Flush()
	m.client.Close()
	m.isValid = false
}

// Package monitor periodically snapshots simulation health to a status
// file and the log: tick rate, dropped command counts, and storage write
// latency.
package monitor

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TickCounter reports completed simulation steps.
type TickCounter interface {
	Iterations() uint64
}

// OverwriteCounter reports commands dropped by last-write-wins buffering.
type OverwriteCounter interface {
	CommandOverwrites() uint64
}

// WriteTimer reports the duration of the most recent storage write.
type WriteTimer interface {
	GetLastDBWriteDuration() time.Duration
}

// Dependencies holds the collaborators the monitor samples. Overwrites
// and Writes may be nil when the matching system is not running.
type Dependencies struct {
	Logger     *slog.Logger
	Ticks      TickCounter
	Overwrites OverwriteCounter
	Writes     WriteTimer
	StatusDir  string
	Interval   time.Duration
}

// Status is one snapshot of simulation health.
type Status struct {
	Time                time.Time `json:"time"`
	Iterations          uint64    `json:"iterations"`
	TickRate            float64   `json:"tickRate"`
	CommandOverwrites   uint64    `json:"commandOverwrites"`
	LastWriteDurationMs float32   `json:"lastWriteDurationMs"`
}

// Service manages status monitoring.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}

	lastIterations uint64
	lastSample     time.Time
}

// NewService creates a monitor service.
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Sample builds one status snapshot. The tick rate covers the window
// since the previous sample.
func (s *Service) Sample() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	iterations := s.deps.Ticks.Iterations()

	var rate float64
	if !s.lastSample.IsZero() {
		if window := now.Sub(s.lastSample).Seconds(); window > 0 {
			rate = float64(iterations-s.lastIterations) / window
		}
	}
	s.lastIterations = iterations
	s.lastSample = now

	st := Status{
		Time:       now,
		Iterations: iterations,
		TickRate:   rate,
	}
	if s.deps.Overwrites != nil {
		st.CommandOverwrites = s.deps.Overwrites.CommandOverwrites()
	}
	if s.deps.Writes != nil {
		st.LastWriteDurationMs = float32(s.deps.Writes.GetLastDBWriteDuration().Milliseconds())
	}
	return st
}

// Start starts the status monitor goroutine.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.Logger
		logger.Debug("starting status monitor")

		var statusFile *os.File
		if s.deps.StatusDir != "" {
			var err error
			statusFile, err = os.Create(filepath.Join(s.deps.StatusDir, "status.json"))
			if err != nil {
				logger.Error("error creating status file", "error", err)
			}
		}
		if statusFile != nil {
			defer statusFile.Close()
		}

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				st := s.Sample()

				if statusFile != nil {
					data, err := json.MarshalIndent(st, "", "  ")
					if err != nil {
						logger.Error("error encoding status", "error", err)
						continue
					}
					statusFile.Truncate(0)
					statusFile.Seek(0, 0)
					statusFile.Write(append(data, '\n'))
				}

				logger.Debug("status",
					"iterations", st.Iterations,
					"tickRate", st.TickRate,
					"commandOverwrites", st.CommandOverwrites,
					"lastWriteMs", st.LastWriteDurationMs)
			}
		}
	}()

	return nil
}

// Stop stops the status monitor.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}

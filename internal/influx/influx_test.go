package influx

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydrosim/systems/internal/ecs"
	"github.com/hydrosim/systems/internal/runner"
)

func TestConnect_DisabledIsNoop(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("influx.enabled", false)

	m := NewManager(zerolog.Nop())
	require.NoError(t, m.Connect())
	assert.False(t, m.IsValid())
}

func TestWriteTickTiming_InvalidManagerDropsSample(t *testing.T) {
	m := NewManager(zerolog.Nop())

	// Never connected: must not panic or touch a writer.
	m.WriteTickTiming(1, 42, time.Millisecond)
	m.Close()
}

func TestTickTimingSystem_InvalidManager(t *testing.T) {
	m := NewManager(zerolog.Nop())
	s := NewTickTimingSystem(m, 1)
	store := ecs.NewStore()

	s.PreUpdate(runner.UpdateInfo{Iterations: 3}, store)
	s.PostUpdate(runner.UpdateInfo{Iterations: 3}, store)
}

func TestTickTimingSystem_NoPreUpdateNoSample(t *testing.T) {
	m := NewManager(zerolog.Nop())
	s := NewTickTimingSystem(m, 1)

	// PostUpdate before any PreUpdate must not record a bogus window.
	s.PostUpdate(runner.UpdateInfo{}, ecs.NewStore())
}

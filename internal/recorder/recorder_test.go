package recorder

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydrosim/systems/internal/components"
	"github.com/hydrosim/systems/internal/ecs"
	"github.com/hydrosim/systems/internal/runner"
	"github.com/hydrosim/systems/pkg/core"
)

func newMemoryBackend(t *testing.T) *dbBackend {
	t.Helper()
	b, err := newDBBackend(BackendConfig{
		Type:       "sqlite",
		SqlitePath: ":memory:",
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestDBBackend_RunLifecycle(t *testing.T) {
	b := newMemoryBackend(t)

	run := &Run{WorldName: "basin", StepMs: 10}
	require.NoError(t, b.StartRun(run))
	assert.NotZero(t, run.ID)
	assert.False(t, run.StartedAt.IsZero())

	require.NoError(t, b.EndRun())

	var got Run
	require.NoError(t, b.db.First(&got, run.ID).Error)
	require.NotNil(t, got.EndedAt)
}

func TestDBBackend_RecordsAttachToRun(t *testing.T) {
	b := newMemoryBackend(t)

	require.NoError(t, b.StartRun(&Run{WorldName: "basin"}))
	require.NoError(t, b.RecordWrench(&WrenchRecord{Tick: 3, Entity: 7, Fz: 98.0}))
	require.NoError(t, b.RecordVelocityCmd(&VelocityCmdRecord{Tick: 3, Entity: 2, Lx: 1}))

	var wrenches []WrenchRecord
	require.NoError(t, b.db.Find(&wrenches).Error)
	require.Len(t, wrenches, 1)
	assert.NotZero(t, wrenches[0].RunID)
	assert.Equal(t, 98.0, wrenches[0].Fz)

	var cmds []VelocityCmdRecord
	require.NoError(t, b.db.Find(&cmds).Error)
	require.Len(t, cmds, 1)
	assert.Equal(t, 1.0, cmds[0].Lx)
}

func TestDBBackend_RecordsOutsideRunDropped(t *testing.T) {
	b := newMemoryBackend(t)

	require.NoError(t, b.RecordWrench(&WrenchRecord{Tick: 1}))

	var count int64
	require.NoError(t, b.db.Model(&WrenchRecord{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSystem_SamplesCommandComponents(t *testing.T) {
	b := newMemoryBackend(t)
	require.NoError(t, b.StartRun(&Run{WorldName: "basin"}))

	store := ecs.NewStore()
	body := store.NewEntity()
	ecs.Write(store, body, components.ExternalWrenchCmd(core.Wrench{
		Force: mgl64.Vec3{0, 0, 42},
	}))
	model := store.NewEntity()
	ecs.Write(store, model, components.LinearVelocityCmd(mgl64.Vec3{1, 0, 0}))
	ecs.Write(store, model, components.AngularVelocityCmd(mgl64.Vec3{0, 0, 2}))

	sys := NewSystem(b)
	sys.PostUpdate(runner.UpdateInfo{Iterations: 5}, store)

	var wrenches []WrenchRecord
	require.NoError(t, b.db.Find(&wrenches).Error)
	require.Len(t, wrenches, 1)
	assert.Equal(t, uint64(5), wrenches[0].Tick)
	assert.Equal(t, 42.0, wrenches[0].Fz)

	var cmds []VelocityCmdRecord
	require.NoError(t, b.db.Find(&cmds).Error)
	require.Len(t, cmds, 1)
	assert.Equal(t, 1.0, cmds[0].Lx)
	assert.Equal(t, 2.0, cmds[0].Az)
}

func TestSystem_PausedStepRecordsNothing(t *testing.T) {
	b := newMemoryBackend(t)
	require.NoError(t, b.StartRun(&Run{}))

	store := ecs.NewStore()
	e := store.NewEntity()
	ecs.Write(store, e, components.ExternalWrenchCmd(core.Wrench{}))

	sys := NewSystem(b)
	sys.PostUpdate(runner.UpdateInfo{Paused: true}, store)

	var count int64
	require.NoError(t, b.db.Model(&WrenchRecord{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestNewBackend_Factory(t *testing.T) {
	b, err := NewBackend(BackendConfig{Type: "none"})
	require.NoError(t, err)
	assert.Nil(t, b)

	_, err = NewBackend(BackendConfig{Type: "carrier-pigeon"})
	assert.Error(t, err)

	b, err = NewBackend(BackendConfig{Type: "sqlite", SqlitePath: ":memory:"})
	require.NoError(t, err)
	assert.NotNil(t, b)
}

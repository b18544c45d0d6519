package velocity

import (
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydrosim/systems/internal/components"
	"github.com/hydrosim/systems/internal/ecs"
	"github.com/hydrosim/systems/internal/runner"
	"github.com/hydrosim/systems/internal/transport"
	"github.com/hydrosim/systems/pkg/core"
)

type fixture struct {
	store *ecs.Store
	node  *transport.Node
	model ecs.Entity
	links map[string]ecs.Entity
	sys   *System
}

func newFixture(t *testing.T, cfg Config, linkNames ...string) *fixture {
	t.Helper()
	store := ecs.NewStore()
	node := transport.NewNode(nil)

	model := store.NewEntity()
	ecs.Write(store, model, components.Model{})
	ecs.Write(store, model, components.Name("sub"))

	links := make(map[string]ecs.Entity)
	for _, name := range linkNames {
		link := store.NewChild(model)
		ecs.Write(store, link, components.Link{})
		ecs.Write(store, link, components.Name(name))
		links[name] = link
	}

	sys := New(nil)
	require.NoError(t, sys.Configure(model, cfg, store, node))

	return &fixture{store: store, node: node, model: model, links: links, sys: sys}
}

// tick performs one full PostUpdate -> PreUpdate cycle: drain the
// mailboxes first, then apply on the following step, the order a message
// arriving between ticks experiences.
func (f *fixture) tick() {
	info := runner.UpdateInfo{Dt: time.Millisecond}
	f.sys.PostUpdate(info, f.store)
	f.sys.PreUpdate(info, f.store)
}

func modelCmds(t *testing.T, f *fixture) (mgl64.Vec3, mgl64.Vec3) {
	t.Helper()
	lin, ok := ecs.Read[components.LinearVelocityCmd](f.store, f.model)
	require.True(t, ok)
	ang, ok := ecs.Read[components.AngularVelocityCmd](f.store, f.model)
	require.True(t, ok)
	return mgl64.Vec3(lin), mgl64.Vec3(ang)
}

func TestConfigure_NotAModel(t *testing.T) {
	store := ecs.NewStore()
	node := transport.NewNode(nil)
	e := store.NewEntity()

	sys := New(nil)
	err := sys.Configure(e, Config{}, store, node)
	require.ErrorIs(t, err, ErrNotAModel)

	// Inert: ticking must neither write nor panic.
	sys.PreUpdate(runner.UpdateInfo{Dt: time.Millisecond}, store)
	sys.PostUpdate(runner.UpdateInfo{Dt: time.Millisecond}, store)
}

func TestModelCommandAppliedAfterOneCycle(t *testing.T) {
	f := newFixture(t, Config{})

	f.node.Publish("/model/sub/cmd_vel", core.Twist{
		Linear:  mgl64.Vec3{1, 0, 0},
		Angular: mgl64.Vec3{0, 0, 2},
	})
	f.tick()

	lin, ang := modelCmds(t, f)
	assert.Equal(t, mgl64.Vec3{1, 0, 0}, lin)
	assert.Equal(t, mgl64.Vec3{0, 0, 2}, ang)
}

func TestCommandsAreLevelTriggered(t *testing.T) {
	f := newFixture(t, Config{})

	f.node.Publish("/model/sub/cmd_vel", core.Twist{Linear: mgl64.Vec3{3, 0, 0}})
	f.tick()

	// Several ticks with no new message: the command persists.
	f.tick()
	f.tick()
	lin, _ := modelCmds(t, f)
	assert.Equal(t, mgl64.Vec3{3, 0, 0}, lin)
}

func TestLastWriteWinsWithinOneTick(t *testing.T) {
	f := newFixture(t, Config{}, "fin")

	f.node.Publish("/model/sub/link/fin/cmd_vel", core.Twist{Linear: mgl64.Vec3{1, 0, 0}})
	f.node.Publish("/model/sub/link/fin/cmd_vel", core.Twist{Linear: mgl64.Vec3{2, 0, 0}})
	f.tick()

	lin, ok := ecs.Read[components.LinearVelocityCmd](f.store, f.links["fin"])
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec3{2, 0, 0}, mgl64.Vec3(lin), "only the most recent value applies")
}

func TestTopicOverride(t *testing.T) {
	f := newFixture(t, Config{Topic: "/custom/cmd_vel"})

	f.node.Publish("/custom/cmd_vel", core.Twist{Linear: mgl64.Vec3{5, 0, 0}})
	f.tick()

	lin, _ := modelCmds(t, f)
	assert.Equal(t, mgl64.Vec3{5, 0, 0}, lin)
}

func TestUndeclaredLinkNoCrossTalk(t *testing.T) {
	f := newFixture(t, Config{LinkNames: []string{"fin"}}, "fin", "tail")

	// "tail" is a real link but was never declared; its topic has no
	// subscription and must not touch "fin".
	f.node.Publish("/model/sub/link/tail/cmd_vel", core.Twist{Linear: mgl64.Vec3{9, 9, 9}})
	f.tick()

	_, ok := ecs.Read[components.LinearVelocityCmd](f.store, f.links["tail"])
	assert.False(t, ok)
	_, ok = ecs.Read[components.LinearVelocityCmd](f.store, f.links["fin"])
	assert.False(t, ok, "fin has no cached target yet and is skipped")
}

func TestLazyLinkResolution(t *testing.T) {
	store := ecs.NewStore()
	node := transport.NewNode(nil)

	model := store.NewEntity()
	ecs.Write(store, model, components.Model{})
	ecs.Write(store, model, components.Name("sub"))

	sys := New(nil)
	require.NoError(t, sys.Configure(model, Config{LinkNames: []string{"fin"}}, store, node))

	node.Publish("/model/sub/link/fin/cmd_vel", core.Twist{Linear: mgl64.Vec3{1, 2, 3}})

	// The link does not exist yet: the tick proceeds, nothing resolves.
	info := runner.UpdateInfo{Dt: time.Millisecond}
	sys.PostUpdate(info, store)
	sys.PreUpdate(info, store)

	// The link appears later and is picked up on the next step.
	link := store.NewChild(model)
	ecs.Write(store, link, components.Link{})
	ecs.Write(store, link, components.Name("fin"))

	sys.PostUpdate(info, store)
	sys.PreUpdate(info, store)

	lin, ok := ecs.Read[components.LinearVelocityCmd](store, link)
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, mgl64.Vec3(lin))
}

func TestPausedTickDoesNothing(t *testing.T) {
	f := newFixture(t, Config{})

	f.node.Publish("/model/sub/cmd_vel", core.Twist{Linear: mgl64.Vec3{1, 0, 0}})

	paused := runner.UpdateInfo{Dt: time.Millisecond, Paused: true}
	f.sys.PostUpdate(paused, f.store)
	f.sys.PreUpdate(paused, f.store)

	_, ok := ecs.Read[components.LinearVelocityCmd](f.store, f.model)
	assert.False(t, ok, "paused steps write nothing")
	assert.Equal(t, core.Twist{}, f.sys.Target(), "paused steps drain nothing")

	f.tick()
	lin, _ := modelCmds(t, f)
	assert.Equal(t, mgl64.Vec3{1, 0, 0}, lin, "command survives the pause")
}

func TestBackwardTimeJumpSkipsStep(t *testing.T) {
	f := newFixture(t, Config{})

	f.node.Publish("/model/sub/cmd_vel", core.Twist{Linear: mgl64.Vec3{1, 0, 0}})
	f.sys.PostUpdate(runner.UpdateInfo{Dt: time.Millisecond}, f.store)
	f.sys.PreUpdate(runner.UpdateInfo{Dt: -time.Millisecond}, f.store)

	_, ok := ecs.Read[components.LinearVelocityCmd](f.store, f.model)
	assert.False(t, ok)
}

func TestDestroyedModelGoesInert(t *testing.T) {
	f := newFixture(t, Config{}, "fin")

	f.store.RemoveEntity(f.model)

	f.node.Publish("/model/sub/cmd_vel", core.Twist{Linear: mgl64.Vec3{1, 0, 0}})
	f.tick()
	f.tick()

	assert.False(t, f.store.Alive(f.model))
}

func TestConcurrentPublishersOneConsistentTarget(t *testing.T) {
	f := newFixture(t, Config{})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(v float64) {
			defer wg.Done()
			f.node.Publish("/model/sub/cmd_vel", core.Twist{Linear: mgl64.Vec3{v, v, v}})
		}(float64(i))
	}
	wg.Wait()

	f.tick()

	lin, _ := modelCmds(t, f)
	// Whichever message won, the applied vector is one message's value,
	// never a mix of components from different messages.
	assert.Equal(t, lin.X(), lin.Y())
	assert.Equal(t, lin.Y(), lin.Z())
}

func TestCommandOverwritesCounted(t *testing.T) {
	f := newFixture(t, Config{})

	f.node.Publish("/model/sub/cmd_vel", core.Twist{})
	f.node.Publish("/model/sub/cmd_vel", core.Twist{})
	f.node.Publish("/model/sub/cmd_vel", core.Twist{})

	assert.Equal(t, uint64(2), f.sys.CommandOverwrites())
}

// Package jointcmd carries scalar joint position commands: a Commander
// publishes them on the per-joint topics, and a System buffers and
// applies the latest command per joint each step, with the same
// double-buffered discipline the velocity pipeline uses.
package jointcmd

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/hydrosim/systems/internal/components"
	"github.com/hydrosim/systems/internal/ecs"
	"github.com/hydrosim/systems/internal/mailbox"
	"github.com/hydrosim/systems/internal/runner"
	"github.com/hydrosim/systems/internal/transport"
	"github.com/hydrosim/systems/pkg/core"
)

// ErrNotAModel is returned when the configured entity is not a model.
var ErrNotAModel = errors.New("joint command system must be attached to a model entity")

// Commander publishes position commands for a model's joints.
type Commander struct {
	node      *transport.Node
	namespace string
	model     string
	logger    *slog.Logger
}

// NewCommander creates a commander for the named model.
func NewCommander(node *transport.Node, namespace, model string, logger *slog.Logger) *Commander {
	if logger == nil {
		logger = slog.Default()
	}
	return &Commander{node: node, namespace: namespace, model: model, logger: logger}
}

// Command publishes a position command for the named joint's first axis.
func (c *Commander) Command(joint string, position float64) error {
	topic, err := core.ValidTopic(core.JointCmdPosTopic(c.namespace, c.model, joint))
	if err != nil {
		c.logger.Error("failed to build joint command topic", "joint", joint, "error", err)
		return err
	}
	c.node.Publish(topic, core.Double{Data: position})
	return nil
}

// System applies buffered joint position commands each step.
type System struct {
	model  ecs.Entity
	valid  bool
	logger *slog.Logger

	joints  map[string]ecs.Entity
	targets map[string]float64
	cmds    mailbox.Keyed[string, float64]
}

// New creates an unconfigured system.
func New(logger *slog.Logger) *System {
	if logger == nil {
		logger = slog.Default()
	}
	return &System{
		joints:  make(map[string]ecs.Entity),
		targets: make(map[string]float64),
		logger:  logger,
	}
}

// Configure enumerates the model's joints and subscribes to each joint's
// position command topic.
func (s *System) Configure(model ecs.Entity, namespace string, store *ecs.Store, node *transport.Node) error {
	if !store.Alive(model) || !ecs.Has[components.Model](store, model) {
		s.logger.Error("joint command system not attached to a model entity", "entity", model)
		return ErrNotAModel
	}
	s.model = model

	name, _ := ecs.Read[components.Name](store, model)

	for _, joint := range ecs.ChildrenWith[components.Joint](store, model) {
		jointName, ok := ecs.Read[components.Name](store, joint)
		if !ok {
			s.logger.Warn("joint without a name skipped", "joint", joint)
			continue
		}
		s.joints[string(jointName)] = joint

		topic := core.JointCmdPosTopic(namespace, string(name), string(jointName))
		jn := string(jointName)
		err := transport.Subscribe(node, topic, func(msg core.Double, _ transport.MessageInfo) {
			s.cmds.Put(jn, msg.Data)
		})
		if err != nil {
			s.logger.Error("joint cmd_pos subscription failed",
				"topic", topic, "joint", jn, "error", err)
			return err
		}
		s.logger.Info("joint command subscribed", "topic", topic)
	}

	s.valid = true
	return nil
}

// PreUpdate writes each cached joint target into its JointPositionCmd
// component.
func (s *System) PreUpdate(info runner.UpdateInfo, store *ecs.Store) {
	if !s.valid || info.Paused || !store.Alive(s.model) {
		return
	}

	names := make([]string, 0, len(s.targets))
	for name := range s.targets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		joint := s.joints[name]
		if !store.Alive(joint) {
			continue
		}
		ecs.Write(store, joint, components.JointPositionCmd(s.targets[name]))
	}
}

// PostUpdate drains freshly received commands into the target cache.
func (s *System) PostUpdate(info runner.UpdateInfo, _ *ecs.Store) {
	if !s.valid || info.Paused {
		return
	}
	for name, pos := range s.cmds.Drain() {
		s.targets[name] = pos
	}
}

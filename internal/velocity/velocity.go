// Package velocity implements the velocity command pipeline: commands
// arrive on cmd_vel topics at any rate and on any goroutine; the
// simulation goroutine applies one consistent target per step.
//
// The pipeline is double-buffered. PreUpdate writes the targets cached on
// the previous step into the command components, then PostUpdate drains
// the cross-thread mailboxes into the cache. A message landing mid-step
// can therefore never half-apply to the step in flight.
package velocity

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
var ErrNotAModel = errors.New("velocity control must be attached to a model entity")

// Config carries the declarative settings for one system instance.
type Config struct {
	// Namespace prefixes all derived topics.
	Namespace string
	// Topic overrides the derived model-level cmd_vel topic.
	Topic string
	// LinkNames lists the links that accept their own velocity commands.
	LinkNames []string
}

// System applies velocity commands for one model and its declared links.
type System struct {
	model     ecs.Entity
	modelName string
	valid     bool
	logger    *slog.Logger

	linkNames []string
	// links holds resolved link entities. Resolution is lazy, retried
	// every step, and never undone.
	links map[string]ecs.Entity

	// Simulation-goroutine-owned targets, refreshed in PostUpdate.
	target      core.Twist
	linkTargets map[string]core.Twist

	// Cross-thread mailboxes written by transport callbacks.
	modelCmds mailbox.Mailbox[core.Twist]
	linkCmds  mailbox.Keyed[string, core.Twist]
}

// New creates an unconfigured system.
func New(logger *slog.Logger) *System {
	if logger == nil {
		logger = slog.Default()
	}
	return &System{
		links:       make(map[string]ecs.Entity),
		linkTargets: make(map[string]core.Twist),
		logger:      logger,
	}
}

// Configure validates the model and subscribes the command callbacks.
// Subscriptions last for the node's lifetime; the system goes inert by
// itself once the model entity is destroyed.
func (s *System) Configure(model ecs.Entity, cfg Config, store *ecs.Store, node *transport.Node) error {
	if !store.Alive(model) || !ecs.Has[components.Model](store, model) {
		s.logger.Error("velocity control not attached to a model entity", "entity", model)
		return ErrNotAModel
	}
	s.model = model

	name, _ := ecs.Read[components.Name](store, model)
	s.modelName = string(name)

	topic := cfg.Topic
	if topic == "" {
		topic = core.ModelCmdVelTopic(cfg.Namespace, s.modelName)
	}
	if err := transport.Subscribe(node, topic, s.onCmdVel); err != nil {
		s.logger.Error("model cmd_vel subscription failed", "topic", topic, "error", err)
		return err
	}
	s.logger.Info("velocity control subscribed", "topic", topic)

	s.linkNames = append([]string(nil), cfg.LinkNames...)
	for _, linkName := range s.linkNames {
		linkTopic := core.LinkCmdVelTopic(cfg.Namespace, s.modelName, linkName)
		if err := transport.Subscribe(node, linkTopic, s.onLinkCmdVel); err != nil {
			s.logger.Error("link cmd_vel subscription failed",
				"topic", linkTopic, "link", linkName, "error", err)
			return err
		}
		s.logger.Info("velocity control subscribed", "topic", linkTopic)
	}

	s.valid = true
	return nil
}

// onCmdVel buffers the latest model-level command. Runs on the
// publisher's goroutine.
func (s *System) onCmdVel(msg core.Twist, _ transport.MessageInfo) {
	s.modelCmds.Put(msg)
}

// onLinkCmdVel buffers the latest command for the link the topic actually
// addresses. The check is an exact path-segment match so one link's
// command can never land on another link whose name contains it.
func (s *System) onLinkCmdVel(msg core.Twist, info transport.MessageInfo) {
	linkName, ok := core.LinkForTopic(info.Topic, s.linkNames)
	if !ok {
		s.logger.Warn("link cmd_vel on unrecognized topic", "topic", info.Topic)
		return
	}
	s.linkCmds.Put(linkName, msg)
}

// PreUpdate writes the cached targets into the velocity command
// components: every non-paused step, whether or not a new message
// arrived. Commands persist until replaced.
func (s *System) PreUpdate(info runner.UpdateInfo, store *ecs.Store) {
	if !s.valid {
		return
	}
	if info.Dt < 0 {
		s.logger.Warn("detected jump back in time, skipping step", "dt", info.Dt)
		return
	}
	if info.Paused {
		return
	}
	if !store.Alive(s.model) {
		return
	}

	ecs.Write(store, s.model, components.LinearVelocityCmd(s.target.Linear))
	ecs.Write(store, s.model, components.AngularVelocityCmd(s.target.Angular))

	if len(s.linkNames) == 0 {
		return
	}

	s.resolveLinks(store)

	for _, linkName := range s.sortedResolvedLinks() {
		link := s.links[linkName]
		if !store.Alive(link) {
			continue
		}
		target, ok := s.linkTargets[linkName]
		if !ok {
			s.logger.Debug("no velocity received yet for link", "link", linkName)
			continue
		}
		ecs.Write(store, link, components.LinearVelocityCmd(target.Linear))
		ecs.Write(store, link, components.AngularVelocityCmd(target.Angular))
	}
}

// resolveLinks looks up still-unresolved link names. A name that resolves
// stays resolved; one that never resolves is retried every step.
func (s *System) resolveLinks(store *ecs.Store) {
	for _, linkName := range s.linkNames {
		if _, ok := s.links[linkName]; ok {
			continue
		}
		link := s.findLink(store, linkName)
		if link == ecs.NullEntity {
			s.logger.Warn("failed to find link for model",
				"link", linkName, "model", s.modelName)
			continue
		}
		s.links[linkName] = link
	}
}

func (s *System) findLink(store *ecs.Store, name string) ecs.Entity {
	for _, link := range ecs.ChildrenWith[components.Link](store, s.model) {
		if n, ok := ecs.Read[components.Name](store, link); ok && string(n) == name {
			return link
		}
	}
	return ecs.NullEntity
}

func (s *System) sortedResolvedLinks() []string {
	names := make([]string, 0, len(s.links))
	for name := range s.links {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PostUpdate drains the mailboxes into the simulation-owned targets.
// This is the only point where cross-thread data enters the pipeline.
func (s *System) PostUpdate(info runner.UpdateInfo, _ *ecs.Store) {
	if !s.valid || info.Paused {
		return
	}

	if msg, ok := s.modelCmds.Take(); ok {
		s.target = msg
	}
	for linkName, msg := range s.linkCmds.Drain() {
		s.linkTargets[linkName] = msg
	}
}

// Target returns the model-level target applied on the next step. Test
// and status helper; simulation goroutine only.
func (s *System) Target() core.Twist {
	return s.target
}

// CommandOverwrites reports how many buffered commands were replaced
// before being applied, an indicator of publishers outpacing the step
// rate.
func (s *System) CommandOverwrites() uint64 {
	return s.modelCmds.Overwrites() + s.linkCmds.Overwrites()
}

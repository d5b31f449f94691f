package bridge

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"bridgelink/internal/protocol"
	"bridgelink/pkg/document"
)

const (
	LightsGo   = "GO"
	LightsStop = "STOP"

	DefaultSpeed          = 0.2 // travel per second
	DefaultTick           = 20 * time.Millisecond
	DefaultStatusInterval = time.Second
)

// Pusher delivers unsolicited documents to the operator. Delivery is best
// effort; false means the document was dropped.
type Pusher interface {
	Push(doc *document.Document) bool
}

// State is a point-in-time view of the bridge.
type State struct {
	Position  float64 `json:"current_position"`
	Target    float64 `json:"target_position"`
	Lights    string  `json:"bridge_lights"`
	Overrides bool    `json:"overrides"`
}

type SimulationOptions struct {
	Speed          float64
	Tick           time.Duration
	StatusInterval time.Duration
	Logger         *slog.Logger
}

// Simulation models a lifting bridge with traffic lights. Without overrides
// the lights follow the deck: GO only while it is fully lowered.
type Simulation struct {
	mu        sync.Mutex
	position  float64
	target    float64
	lights    string
	overrides bool

	speed          float64
	tick           time.Duration
	statusInterval time.Duration

	pusher Pusher
	logger *slog.Logger
}

func NewSimulation(pusher Pusher, opts SimulationOptions) *Simulation {
	if opts.Speed <= 0 {
		opts.Speed = DefaultSpeed
	}
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if opts.StatusInterval <= 0 {
		opts.StatusInterval = DefaultStatusInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Simulation{
		lights:         LightsGo,
		speed:          opts.Speed,
		tick:           opts.Tick,
		statusInterval: opts.StatusInterval,
		pusher:         pusher,
		logger:         opts.Logger.With("component", "bridge_simulation"),
	}
}

// Register adds the bridge commands to r.
func (s *Simulation) Register(r *Router) {
	r.Handle("set_overrides", s.setOverrides)
	r.Handle("set_bridge_position", s.setBridgePosition)
	r.Handle("get_bridge_position", s.getBridgePosition)
	r.Handle("get_light_condition", s.getLightCondition)
	r.Handle("set_light_condition", s.setLightCondition)
}

// Run advances the simulation until ctx is cancelled, pushing a status
// document every status interval.
func (s *Simulation) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	status := time.NewTicker(s.statusInterval)
	defer status.Stop()

	last := time.Now()
	s.logger.Info("simulation_started", "tick", s.tick.String(), "speed", s.speed)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("simulation_stopped")
			return
		case now := <-ticker.C:
			s.step(now.Sub(last))
			last = now
		case <-status.C:
			s.pushStatus()
		}
	}
}

// State returns the current bridge state.
func (s *Simulation) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Position:  s.position,
		Target:    s.target,
		Lights:    s.lights,
		Overrides: s.overrides,
	}
}

// step moves the deck toward its target by speed*delta.
func (s *Simulation) step(delta time.Duration) {
	s.mu.Lock()
	if !s.overrides {
		if s.position == 0 {
			s.lights = LightsGo
		} else {
			s.lights = LightsStop
		}
	}

	before := s.position
	s.position = moveTowards(s.position, s.target, s.speed*delta.Seconds())
	reached := s.position != before && s.position == s.target
	s.mu.Unlock()

	if reached {
		s.pushEvent("Bridge reached target position")
	}
}

func (s *Simulation) pushStatus() {
	st := s.State()
	doc := document.New()
	doc.SetNumber("current_position", st.Position)
	doc.SetString("bridge_lights", st.Lights)
	s.pusher.Push(doc)
}

func (s *Simulation) pushEvent(message string) {
	doc := document.New()
	doc.SetString("event", message)
	if !s.pusher.Push(doc) {
		s.logger.Debug("event_dropped", "event", message)
	}
}

// set_overrides accepts a bool, or a number where non-zero enables.
func (s *Simulation) setOverrides(cmd protocol.Command) *protocol.Response {
	var enabled bool
	switch {
	case cmd.HasArgument("enabled", document.KindBool):
		enabled = cmd.BoolArgument("enabled", false)
	case cmd.HasArgument("enabled", document.KindNumber):
		enabled = cmd.NumberArgument("enabled", 0) != 0
	default:
		return protocol.Err(cmd, protocol.ErrInvalidArgs)
	}

	s.mu.Lock()
	s.overrides = enabled
	s.mu.Unlock()

	s.logger.Info("overrides_changed", "enabled", enabled)
	return protocol.OK(cmd)
}

func (s *Simulation) setBridgePosition(cmd protocol.Command) *protocol.Response {
	s.mu.Lock()
	if !s.overrides {
		s.mu.Unlock()
		return protocol.Err(cmd, protocol.ErrPermissionDenied)
	}
	if !cmd.HasArgument("position", document.KindNumber) {
		s.mu.Unlock()
		return protocol.Err(cmd, protocol.ErrInvalidArgs)
	}
	target := cmd.NumberArgument("position", 0)
	if target < 0 || target > 1 {
		s.mu.Unlock()
		return protocol.Err(cmd, protocol.ErrInvalidArgs)
	}
	s.target = target
	s.mu.Unlock()

	s.pushEvent("Bridge target position set to "+formatPosition(target))
	return protocol.OK(cmd)
}

func (s *Simulation) getBridgePosition(cmd protocol.Command) *protocol.Response {
	payload := document.New()
	payload.SetNumber("position", s.State().Position)
	return protocol.Data(cmd, payload)
}

func (s *Simulation) getLightCondition(cmd protocol.Command) *protocol.Response {
	payload := document.New()
	payload.SetString("lights", s.State().Lights)
	return protocol.Data(cmd, payload)
}

func (s *Simulation) setLightCondition(cmd protocol.Command) *protocol.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.overrides {
		return protocol.Err(cmd, protocol.ErrPermissionDenied)
	}
	lights := cmd.StringArgument("light_condition", "")
	if lights != LightsGo && lights != LightsStop {
		return protocol.Err(cmd, protocol.ErrInvalidArgs)
	}
	s.lights = lights
	return protocol.OK(cmd)
}

func moveTowards(current, target, amount float64) float64 {
	if math.Abs(target-current) <= amount {
		return target
	}
	if target > current {
		return current + amount
	}
	return current - amount
}

// formatPosition renders v in shortest form, always with a fractional part.
func formatPosition(v float64) string {
	out := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(out, ".") {
		out += ".0"
	}
	return out
}

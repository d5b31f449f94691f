// Package bridge is the host application behind the operator link: a
// command router and a simulated bridge controller standing in for the
// physical I/O.
package bridge

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"bridgelink/internal/protocol"
	"bridgelink/pkg/document"
)

// ProtocolVersion is reported by the version command.
const ProtocolVersion = "2.1.0"

// CommandFunc answers one command.
type CommandFunc func(protocol.Command) *protocol.Response

// Router routes commands by name. Unknown names are rejected with
// UNRECOGNISED. Dispatch satisfies remote.Handler.
type Router struct {
	mu     sync.RWMutex
	routes map[string]CommandFunc
	logger *slog.Logger
}

func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		routes: make(map[string]CommandFunc),
		logger: logger,
	}
}

// Handle registers fn under name, replacing any previous registration.
func (r *Router) Handle(name string, fn CommandFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[name] = fn
}

// Names lists registered commands, sorted.
func (r *Router) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.routes))
	for name := range r.routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Router) Dispatch(cmd protocol.Command) *protocol.Response {
	r.mu.RLock()
	fn, ok := r.routes[cmd.Name()]
	r.mu.RUnlock()

	if !ok {
		r.logger.Info("unrecognised_command", "command", cmd.Name())
		return protocol.Err(cmd, protocol.ErrUnrecognised)
	}
	return fn(cmd)
}

// RegisterBuiltins adds ping, sum, simulate_error and version.
func RegisterBuiltins(r *Router) {
	r.Handle("ping", func(cmd protocol.Command) *protocol.Response {
		return protocol.OK(cmd)
	})

	r.Handle("sum", func(cmd protocol.Command) *protocol.Response {
		if !cmd.HasArgument("a", document.KindNumber) || !cmd.HasArgument("b", document.KindNumber) {
			return protocol.Err(cmd, protocol.ErrInvalidArgs)
		}
		payload := document.New()
		payload.SetNumber("result", cmd.NumberArgument("a", 0)+cmd.NumberArgument("b", 0))
		return protocol.Data(cmd, payload)
	})

	// simulate_error fails with the optional "code" kwarg, named from the
	// error taxonomy, or UNSPECIFIED.
	r.Handle("simulate_error", func(cmd protocol.Command) *protocol.Response {
		if _, present := cmd.Arguments().Value("code"); !present {
			return protocol.Err(cmd, protocol.ErrUnspecified)
		}
		name := cmd.StringArgument("code", "")
		if name == "" {
			return protocol.Err(cmd, protocol.ErrInvalidArgs)
		}
		code, ok := protocol.ParseErrorCode(strings.ToUpper(name))
		if !ok {
			return protocol.Err(cmd, protocol.ErrInvalidArgs)
		}
		return protocol.Err(cmd, code)
	})

	r.Handle("version", func(cmd protocol.Command) *protocol.Response {
		payload := document.New()
		payload.SetString("version", ProtocolVersion)
		return protocol.Data(cmd, payload)
	})
}

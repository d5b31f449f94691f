// Package remote is the controller side of the operator link: two
// single-client TCP channels, a polling dispatch loop on the command channel
// and a non-blocking push channel.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"bridgelink/internal/protocol"
	"bridgelink/pkg/document"
)

// Handler maps a valid command to a response. Returning nil means the
// handler has nothing to say, and the operator receives VOID. Handlers run
// on the dispatch worker; a slow handler stalls the command channel.
type Handler func(protocol.Command) *protocol.Response

var ErrAlreadyOpen = errors.New("remote: connection manager already open")

// ConnectionManager owns the command and push channels. The handler is fixed
// at construction.
type ConnectionManager struct {
	handler Handler
	opts    Options
	stats   counters
	logger  *slog.Logger
	wg      sync.WaitGroup // dispatch worker

	lifecycle sync.Mutex // serializes Open and Close

	mu      sync.RWMutex // guards the fields below
	open    bool
	command *channel
	push    *channel
	cancel  context.CancelFunc
}

// NewConnectionManager creates an idle manager. handler may be nil, in which
// case every valid command is answered with VOID.
func NewConnectionManager(handler Handler, opts Options) *ConnectionManager {
	opts = opts.withDefaults()
	return &ConnectionManager{
		handler: handler,
		opts:    opts,
		logger:  opts.Logger,
	}
}

// Open brings the access point up, starts both listeners and the dispatch
// worker.
func (m *ConnectionManager) Open(identity, credential string) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.mu.RLock()
	open := m.open
	m.mu.RUnlock()
	if open {
		return ErrAlreadyOpen
	}

	if err := m.opts.AccessPoint.Start(identity, credential); err != nil {
		return fmt.Errorf("failed to start access point: %w", err)
	}

	command := newChannel(ChannelCommand, &m.opts, &m.stats)
	if err := command.listen(m.opts.address(m.opts.CommandPort)); err != nil {
		m.opts.AccessPoint.Stop()
		return err
	}
	push := newChannel(ChannelPush, &m.opts, &m.stats)
	if err := push.listen(m.opts.address(m.opts.PushPort)); err != nil {
		command.close()
		m.opts.AccessPoint.Stop()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.command, m.push, m.cancel = command, push, cancel
	m.open = true
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.dispatchLoop(ctx, command)
	}()

	m.logger.Info("connection_manager_opened",
		"command_addr", command.addr().String(),
		"push_addr", push.addr().String(),
		"poll_interval", m.opts.PollInterval.String(),
	)
	return nil
}

// Close stops the dispatch worker, then both channels. It returns only after
// the worker has exited and is safe to call at any time, more than once.
func (m *ConnectionManager) Close() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	// Unpublish before waiting: the handler may call Push while the worker drains.
	m.mu.Lock()
	if !m.open {
		m.mu.Unlock()
		return
	}
	command, push, cancel := m.command, m.push, m.cancel
	m.command, m.push, m.cancel = nil, nil, nil
	m.open = false
	m.mu.Unlock()

	cancel()
	m.wg.Wait()

	command.close()
	push.close()
	m.opts.AccessPoint.Stop()
	m.logger.Info("connection_manager_closed")
}

// IsConnected reports whether ch has an active peer. Asking about the push
// channel also adopts a waiting push client, since that channel is driven by
// callers rather than the dispatch worker.
func (m *ConnectionManager) IsConnected(ch Channel) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	switch {
	case !m.open:
		return false
	case ch == ChannelPush:
		return m.push.refresh() != nil && m.push.connected()
	default:
		return m.command.connected()
	}
}

// Push sends doc to the push client. It never blocks or queues beyond the
// peer's write buffer: without a client, or with the buffer full, the push is
// dropped and Push returns false.
func (m *ConnectionManager) Push(doc *document.Document) bool {
	raw, err := doc.Serialize()
	if err != nil {
		m.logger.Warn("push_serialize_failed", "error", err.Error())
		m.stats.pushesDropped.Add(1)
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.open {
		m.stats.pushesDropped.Add(1)
		return false
	}

	p := m.push.refresh()
	if p == nil || !p.enqueue(append(raw, m.opts.Delimiter)) {
		m.stats.pushesDropped.Add(1)
		return false
	}
	m.stats.pushesSent.Add(1)
	return true
}

// Status reports both channels; an idle manager reports both as idle.
func (m *ConnectionManager) Status() []ChannelStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.open {
		return []ChannelStatus{
			{Channel: ChannelCommand.String(), State: StateIdle.String()},
			{Channel: ChannelPush.String(), State: StateIdle.String()},
		}
	}
	m.push.refresh()
	return []ChannelStatus{m.command.status(), m.push.status()}
}

// Stats returns a snapshot of the counters.
func (m *ConnectionManager) Stats() Stats {
	return m.stats.snapshot()
}

// Addr returns the bound listener address of ch, or nil when idle.
func (m *ConnectionManager) Addr(ch Channel) net.Addr {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.open {
		return nil
	}
	if ch == ChannelPush {
		return m.push.addr()
	}
	return m.command.addr()
}

// dispatchLoop wakes every PollInterval and handles at most one frame.
func (m *ConnectionManager) dispatchLoop(ctx context.Context, command *channel) {
	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll(command)
		}
	}
}

// poll runs one dispatch cycle. No peer and no data are both normal and end
// the cycle quietly.
func (m *ConnectionManager) poll(command *channel) {
	p := command.refresh()
	if p == nil {
		return
	}
	frame, ok := p.next()
	if !ok {
		return
	}
	if !p.allow() {
		m.stats.framesRateLimited.Add(1)
		p.logger.Warn("rate_limit_exceeded")
		return
	}

	cmd := protocol.ParseCommand(frame)
	if !cmd.Valid() {
		m.stats.commandsInvalid.Add(1)
		p.logger.Debug("invalid_command_dropped", "size", len(frame))
		return
	}

	resp := m.invoke(cmd, p.logger)
	raw, err := resp.WireBytes(m.opts.Delimiter)
	if err != nil {
		p.logger.Error("failed_to_render_response",
			"command", cmd.Name(),
			"error", err.Error(),
		)
		m.stats.voidResponses.Add(1)
		raw, _ = protocol.Void(cmd).WireBytes(m.opts.Delimiter)
	}

	if err := p.send(raw); err != nil {
		m.stats.writeFailures.Add(1)
		p.logger.Debug("response_write_failed",
			"command", cmd.Name(),
			"error", err.Error(),
		)
		return
	}
	m.stats.commandsHandled.Add(1)
	p.logger.Debug("command_handled",
		"command", cmd.Name(),
		"ticket", uint32(cmd.Ticket()),
		"response", string(resp.Kind()),
	)
}

// invoke calls the handler, substituting VOID for a missing handler, a nil
// response or a handler panic.
func (m *ConnectionManager) invoke(cmd protocol.Command, logger *slog.Logger) (resp *protocol.Response) {
	if m.handler == nil {
		m.stats.voidResponses.Add(1)
		return protocol.Void(cmd)
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("handler_panic",
				"command", cmd.Name(),
				"panic", fmt.Sprint(r),
			)
			m.stats.voidResponses.Add(1)
			resp = protocol.Void(cmd)
		}
	}()

	resp = m.handler(cmd)
	if resp == nil {
		m.stats.voidResponses.Add(1)
		return protocol.Void(cmd)
	}
	return resp
}

package remote

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

// Channel names one of the two single-client endpoints.
type Channel int

const (
	ChannelCommand Channel = iota
	ChannelPush
)

func (c Channel) String() string {
	switch c {
	case ChannelCommand:
		return "command"
	case ChannelPush:
		return "push"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

// State is a channel's position in its connection lifecycle.
type State int

const (
	StateIdle State = iota
	StateListening
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateConnected:
		return "connected"
	default:
		return "idle"
	}
}

// ChannelStatus describes a channel at one instant.
type ChannelStatus struct {
	Channel     string    `json:"channel"`
	State       string    `json:"state"`
	Address     string    `json:"address,omitempty"`
	PeerID      string    `json:"peer_id,omitempty"`
	PeerAddr    string    `json:"peer_addr,omitempty"`
	ConnectedAt time.Time `json:"connected_at,omitzero"`
}

// channel is a listener holding at most one active peer. Accepted
// connections wait in pending until refresh adopts them; the most recent one
// wins.
type channel struct {
	kind     Channel
	listener net.Listener
	pending  chan net.Conn
	acceptWG sync.WaitGroup

	mu   sync.Mutex
	peer *peer

	opts   *Options
	stats  *counters
	logger *slog.Logger
}

func newChannel(kind Channel, opts *Options, stats *counters) *channel {
	return &channel{
		kind:    kind,
		pending: make(chan net.Conn, 1),
		opts:    opts,
		stats:   stats,
		logger:  opts.Logger.With("channel", kind.String()),
	}
}

// listen moves the channel from Idle to Listening.
func (c *channel) listen(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s channel %s: %w", c.kind, addr, err)
	}
	c.listener = listener
	c.logger.Info("channel_listening", "address", listener.Addr().String())

	c.acceptWG.Add(1)
	go func() {
		defer c.acceptWG.Done()
		c.acceptLoop()
	}()
	return nil
}

// acceptLoop keeps only the newest unadopted connection in pending.
func (c *channel) acceptLoop() {
	for {
		conn, err := c.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			c.logger.Warn("failed_to_accept_connection", "error", err.Error())
			time.Sleep(c.opts.PollInterval)
			continue
		}
		c.offer(conn)
	}
}

// offer places conn in pending, closing any older connection still waiting.
func (c *channel) offer(conn net.Conn) {
	for {
		select {
		case c.pending <- conn:
			return
		default:
		}
		select {
		case stale := <-c.pending:
			c.logger.Info("pending_connection_replaced",
				"remote_addr", stale.RemoteAddr().String(),
			)
			stale.Close()
		default:
		}
	}
}

// refresh drops a dead peer and adopts a pending connection, superseding the
// current peer if there is one. It returns the active peer or nil.
func (c *channel) refresh() *peer {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.peer != nil && !c.peer.alive() && !c.peer.pending() {
		c.logger.Info("peer_dropped", "peer_id", c.peer.ID)
		c.stats.peersDisconnected.Add(1)
		c.peer.close()
		c.peer = nil
	}

	select {
	case conn := <-c.pending:
		if c.peer != nil {
			c.logger.Info("peer_superseded",
				"peer_id", c.peer.ID,
				"remote_addr", c.peer.remoteAddr(),
			)
			c.stats.peersSuperseded.Add(1)
			c.peer.close()
		}
		c.peer = newPeer(conn, c.kind, c.opts, c.stats)
		c.peer.start()
		c.stats.peersAccepted.Add(1)
		c.logger.Info("peer_accepted",
			"peer_id", c.peer.ID,
			"remote_addr", c.peer.remoteAddr(),
		)
	default:
	}
	return c.peer
}

// connected reports whether an active peer is held. It does not adopt
// pending connections.
func (c *channel) connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peer != nil && c.peer.alive()
}

func (c *channel) status() ChannelStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := ChannelStatus{Channel: c.kind.String(), State: StateListening.String()}
	if c.listener != nil {
		st.Address = c.listener.Addr().String()
	}
	if c.peer != nil && c.peer.alive() {
		st.State = StateConnected.String()
		st.PeerID = c.peer.ID
		st.PeerAddr = c.peer.remoteAddr()
		st.ConnectedAt = c.peer.connectedAt
	}
	return st
}

func (c *channel) addr() net.Addr {
	if c.listener == nil {
		return nil
	}
	return c.listener.Addr()
}

// close stops listening and drops every connection, returning to Idle.
func (c *channel) close() {
	if c.listener != nil {
		c.listener.Close()
	}
	c.acceptWG.Wait()

	select {
	case conn := <-c.pending:
		conn.Close()
	default:
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.peer != nil {
		c.peer.close()
		c.peer = nil
	}
	c.logger.Info("channel_closed")
}

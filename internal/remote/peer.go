package remote

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// peer is one accepted client on a channel. A reader goroutine owns the read
// side; done closes when it exits, which is how liveness is observed.
type peer struct {
	ID          string
	channel     Channel
	conn        net.Conn
	writer      *bufio.Writer
	limiter     *rate.Limiter // nil when limiting is off
	connectedAt time.Time

	frames chan []byte // command peers only
	out    chan []byte // push peers only

	done      chan struct{}
	quit      chan struct{}
	closeOnce sync.Once

	opts   *Options
	stats  *counters
	logger *slog.Logger
}

func newPeer(conn net.Conn, ch Channel, opts *Options, stats *counters) *peer {
	p := &peer{
		ID:          uuid.NewString(),
		channel:     ch,
		conn:        conn,
		writer:      bufio.NewWriter(conn),
		connectedAt: time.Now(),
		done:        make(chan struct{}),
		quit:        make(chan struct{}),
		opts:        opts,
		stats:       stats,
	}
	p.logger = opts.Logger.With("channel", ch.String(), "peer_id", p.ID)

	switch ch {
	case ChannelCommand:
		p.frames = make(chan []byte, frameQueueSize)
		if opts.CommandRate > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(opts.CommandRate), opts.CommandBurst)
		}
	case ChannelPush:
		p.out = make(chan []byte, opts.PushBuffer)
	}
	return p
}

// start launches the reader and, for push peers, the writer.
func (p *peer) start() {
	go p.listen()
	if p.channel == ChannelPush {
		go p.drain()
	}
}

// listen reads delimited frames until the peer goes away. Push peers have
// their input read and discarded so a disconnect is still noticed.
func (p *peer) listen() {
	defer close(p.done)

	reader := bufio.NewReaderSize(p.conn, p.opts.MaxFrameSize)
	for {
		frame, err := p.readFrame(reader)
		if err != nil {
			p.logReadError(err)
			return
		}
		if frame == nil || p.frames == nil {
			continue
		}
		p.stats.framesReceived.Add(1)

		select {
		case p.frames <- frame:
		case <-p.quit:
			return
		}
	}
}

// readFrame returns the next frame without its delimiter. It returns nil for
// blank lines and for frames longer than MaxFrameSize, which are discarded up
// to the next delimiter.
func (p *peer) readFrame(reader *bufio.Reader) ([]byte, error) {
	line, err := reader.ReadSlice(p.opts.Delimiter)
	if errors.Is(err, bufio.ErrBufferFull) {
		for errors.Is(err, bufio.ErrBufferFull) {
			_, err = reader.ReadSlice(p.opts.Delimiter)
		}
		if err != nil {
			return nil, err
		}
		p.stats.framesOversized.Add(1)
		p.logger.Warn("message_too_large",
			"max_size", p.opts.MaxFrameSize,
		)
		return nil, nil
	}
	if err != nil {
		// partial frame without delimiter at EOF is dropped
		return nil, err
	}

	line = bytes.TrimRight(line[:len(line)-1], "\r")
	if len(bytes.TrimSpace(line)) == 0 {
		return nil, nil
	}
	frame := make([]byte, len(line))
	copy(frame, line)
	return frame, nil
}

func (p *peer) logReadError(err error) {
	select {
	case <-p.quit:
		return // closed by us
	default:
	}
	if errors.Is(err, io.EOF) {
		p.logger.Info("peer_disconnected")
		return
	}
	if errors.Is(err, net.ErrClosed) ||
		strings.Contains(err.Error(), "connection reset") ||
		strings.Contains(err.Error(), "forcibly closed") {
		p.logger.Info("peer_connection_lost", "error", err.Error())
		return
	}
	p.logger.Warn("peer_read_error", "error", err.Error())
}

// next returns a queued frame without blocking.
func (p *peer) next() ([]byte, bool) {
	select {
	case frame := <-p.frames:
		return frame, true
	default:
		return nil, false
	}
}

// allow applies the inbound rate limit.
func (p *peer) allow() bool {
	return p.limiter == nil || p.limiter.Allow()
}

// alive reports whether the read side is still open.
func (p *peer) alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// pending reports whether frames read before a disconnect are still queued.
func (p *peer) pending() bool {
	return len(p.frames) > 0
}

// send writes data within WriteTimeout. A failed write closes the peer.
func (p *peer) send(data []byte) error {
	p.conn.SetWriteDeadline(time.Now().Add(p.opts.WriteTimeout))
	if _, err := p.writer.Write(data); err != nil {
		p.close()
		return err
	}
	if err := p.writer.Flush(); err != nil {
		p.close()
		return err
	}
	return nil
}

// enqueue hands data to the push writer. It never blocks: a full buffer or a
// dead peer drops the data.
func (p *peer) enqueue(data []byte) bool {
	if !p.alive() {
		return false
	}
	select {
	case p.out <- data:
		return true
	default:
		return false
	}
}

// drain is the push writer loop.
func (p *peer) drain() {
	for {
		select {
		case data := <-p.out:
			if err := p.send(data); err != nil {
				p.stats.writeFailures.Add(1)
				p.logger.Debug("push_write_failed", "error", err.Error())
				return
			}
		case <-p.done:
			return
		case <-p.quit:
			return
		}
	}
}

func (p *peer) remoteAddr() string {
	return p.conn.RemoteAddr().String()
}

func (p *peer) close() {
	p.closeOnce.Do(func() {
		close(p.quit)
		p.conn.Close()
	})
}

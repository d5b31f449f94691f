// Package client is the operator side of the link: it executes commands on
// the command channel and follows the push channel.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"bridgelink/internal/protocol"
	"bridgelink/pkg/document"

	"github.com/Masterminds/semver/v3"
)

var (
	ErrNotConnected        = errors.New("client: not connected")
	ErrTicketMismatch      = errors.New("client: reply ticket does not match command")
	ErrIncompatibleVersion = errors.New("client: incompatible controller version")
)

const dialTimeout = 10 * time.Second

// Client executes one command at a time on the command channel.
type Client struct {
	addr   string
	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	ticket protocol.Ticket
}

// Dial connects to the controller's command channel. A newer connection to
// the same controller supersedes this one.
func Dial(ctx context.Context, addr string) (*Client, error) {
	conn, err := dialContext(ctx, addr)
	if err != nil {
		return nil, err
	}
	return &Client{
		addr:   addr,
		conn:   conn,
		reader: bufio.NewReader(conn),
	}, nil
}

func dialContext(ctx context.Context, addr string) (net.Conn, error) {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connection failed: %w", err)
	}
	return conn, nil
}

// Execute sends name with kwargs and waits for the matching reply. Tickets
// are non-zero and increase per call. The controller never answers a frame
// it cannot parse, so callers should bound ctx.
func (c *Client) Execute(ctx context.Context, name string, kwargs *document.Document) (protocol.Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return protocol.Reply{}, ErrNotConnected
	}

	c.ticket++
	if c.ticket == 0 {
		c.ticket = 1
	}
	ticket := c.ticket

	raw, err := protocol.NewCommand(name, ticket, kwargs).Render().Serialize()
	if err != nil {
		return protocol.Reply{}, fmt.Errorf("failed to encode command: %w", err)
	}

	conn := c.conn
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	if _, err := conn.Write(append(raw, '\n')); err != nil {
		return protocol.Reply{}, c.fail(ctx, err)
	}

	for {
		line, err := c.reader.ReadBytes('\n')
		if err != nil {
			return protocol.Reply{}, c.fail(ctx, err)
		}
		reply, err := protocol.ParseReply(line)
		if err != nil {
			return protocol.Reply{}, err
		}
		switch {
		case reply.Ticket == ticket:
			return reply, nil
		case reply.Ticket < ticket:
			// late answer to an abandoned call
			continue
		default:
			return reply, fmt.Errorf("%w: sent %d, got %d", ErrTicketMismatch, ticket, reply.Ticket)
		}
	}
}

// fail drops the connection after an I/O error; the reply stream can no
// longer be trusted.
func (c *Client) fail(ctx context.Context, err error) error {
	c.conn.Close()
	c.conn = nil
	c.reader = nil
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		if _, ok := ctx.Deadline(); ok {
			return context.DeadlineExceeded
		}
	}
	return fmt.Errorf("command channel: %w", err)
}

// Handshake asks for the controller's protocol version and checks it
// against constraint, e.g. "^2.0".
func (c *Client) Handshake(ctx context.Context, constraint string) (*semver.Version, error) {
	want, err := semver.NewConstraint(constraint)
	if err != nil {
		return nil, fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}

	reply, err := c.Execute(ctx, "version", nil)
	if err != nil {
		return nil, err
	}
	if reply.Kind != protocol.KindData {
		return nil, fmt.Errorf("%w: version command answered %s", ErrIncompatibleVersion, reply.Kind)
	}

	got, err := semver.NewVersion(reply.Payload.GetString("version", ""))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompatibleVersion, err)
	}
	if !want.Check(got) {
		return got, fmt.Errorf("%w: controller %s does not satisfy %s", ErrIncompatibleVersion, got, constraint)
	}
	return got, nil
}

// Connected reports whether the command connection is still usable.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *Client) Addr() string { return c.addr }

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.reader = nil
	return err
}

// Subscribe connects to the push channel and delivers each pushed document.
// The channel is closed when ctx ends or the controller drops the
// connection. Frames that are not documents are skipped.
func Subscribe(ctx context.Context, addr string) (<-chan *document.Document, error) {
	conn, err := dialContext(ctx, addr)
	if err != nil {
		return nil, err
	}

	out := make(chan *document.Document, 16)
	go func() {
		defer close(out)
		defer conn.Close()
		stop := context.AfterFunc(ctx, func() { conn.Close() })
		defer stop()

		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			doc, err := document.Parse(scanner.Bytes())
			if err != nil {
				continue
			}
			select {
			case out <- doc:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

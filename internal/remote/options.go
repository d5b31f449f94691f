package remote

import (
	"log/slog"
	"net"
	"strconv"
	"time"
)

const (
	DefaultCommandPort  = 55555
	DefaultPushPort     = 55055
	DefaultPollInterval = 50 * time.Millisecond
	DefaultMaxFrameSize = 4096
	DefaultWriteTimeout = 2 * time.Second
	DefaultPushBuffer   = 8
	DefaultDelimiter    = '\n'

	// queued frames per command peer before its reader stops pulling from the socket
	frameQueueSize = 16
	minFrameSize   = 16
)

// Options configures a ConnectionManager. Zero fields take defaults, except
// the ports: zero there means "any free port", which tests rely on.
type Options struct {
	BindHost     string
	CommandPort  int
	PushPort     int
	PollInterval time.Duration
	MaxFrameSize int
	WriteTimeout time.Duration
	PushBuffer   int
	Delimiter    byte

	// CommandRate is the per-peer inbound limit in frames per second; 0 disables it.
	CommandRate  float64
	CommandBurst int

	AccessPoint AccessPoint
	Logger      *slog.Logger
}

// DefaultOptions returns the stock controller endpoints.
func DefaultOptions() Options {
	return Options{
		CommandPort: DefaultCommandPort,
		PushPort:    DefaultPushPort,
	}
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.MaxFrameSize < minFrameSize {
		o.MaxFrameSize = DefaultMaxFrameSize
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
	if o.PushBuffer <= 0 {
		o.PushBuffer = DefaultPushBuffer
	}
	if o.Delimiter == 0 {
		o.Delimiter = DefaultDelimiter
	}
	if o.CommandRate > 0 && o.CommandBurst <= 0 {
		o.CommandBurst = 1
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.AccessPoint == nil {
		o.AccessPoint = &LoggingAccessPoint{Logger: o.Logger}
	}
	return o
}

func (o Options) address(port int) string {
	return net.JoinHostPort(o.BindHost, strconv.Itoa(port))
}

// Package protocol implements the command/response message model: inbound
// commands, the typed response taxonomy and client-side reply decoding.
package protocol

import (
	"math"

	"bridgelink/pkg/document"
)

// Wire field names.
const (
	FieldCommand   = "command"
	FieldTicket    = "ticket"
	FieldKwargs    = "kwargs"
	FieldResponse  = "response"
	FieldPayload   = "payload"
	FieldErrorCode = "error_code"
)

// Ticket correlates a command with its response. Zero means no correlation
// was requested.
type Ticket uint32

const maxTicket = math.MaxUint32

// Command is one parsed inbound message. It is immutable; Arguments returns a
// copy.
type Command struct {
	name      string
	ticket    Ticket
	arguments *document.Document
}

// ParseCommand always yields a Command. Input that is not a well-formed
// document, or has no non-empty "command" string, yields an invalid Command.
func ParseCommand(raw []byte) Command {
	parsed, err := document.Parse(raw)
	if err != nil {
		return Command{arguments: document.New()}
	}
	return Command{
		name:      parsed.GetString(FieldCommand, ""),
		ticket:    Ticket(parsed.GetUint(FieldTicket, maxTicket, 0)),
		arguments: parsed.GetDocument(FieldKwargs),
	}
}

// NewCommand builds a command directly, for handlers and tests.
func NewCommand(name string, ticket Ticket, arguments *document.Document) Command {
	return Command{name: name, ticket: ticket, arguments: arguments.Clone()}
}

func (c Command) Name() string { return c.name }

func (c Command) Ticket() Ticket { return c.ticket }

// Valid reports whether the command may be dispatched.
func (c Command) Valid() bool { return c.name != "" }

// Arguments returns a copy of the kwargs document, never nil.
func (c Command) Arguments() *document.Document {
	return c.arguments.Clone()
}

// HasArgument reports whether kwargs holds key with the given kind.
func (c Command) HasArgument(key string, kind document.Kind) bool {
	return c.arguments.Has(key, kind)
}

func (c Command) BoolArgument(key string, def bool) bool {
	return c.arguments.GetBool(key, def)
}

func (c Command) NumberArgument(key string, def float64) float64 {
	return c.arguments.GetNumber(key, def)
}

func (c Command) StringArgument(key string, def string) string {
	return c.arguments.GetString(key, def)
}

// Render produces the wire form of the command, as an operator sends it.
func (c Command) Render() *document.Document {
	d := document.New()
	d.SetString(FieldCommand, c.name)
	d.SetNumber(FieldTicket, float64(c.ticket))
	d.SetDocument(FieldKwargs, c.arguments)
	return d
}

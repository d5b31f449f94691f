package protocol

import (
	"bytes"
	"errors"
	"fmt"

	"bridgelink/pkg/document"
)

// Kind tags a response on the wire.
type Kind string

const (
	KindOK   Kind = "OK"
	KindData Kind = "DATA"
	KindErr  Kind = "ERR"
	KindVoid Kind = "VOID"
)

// Response is a tagged union over the four response kinds. Construct it with
// OK, Data, Err or Void.
type Response struct {
	kind    Kind
	ticket  Ticket
	payload *document.Document
	code    ErrorCode
}

// OK acknowledges a command.
func OK(cmd Command) *Response {
	return &Response{kind: KindOK, ticket: cmd.Ticket()}
}

// Data acknowledges a command and carries payload. The payload is copied.
func Data(cmd Command, payload *document.Document) *Response {
	return &Response{kind: KindData, ticket: cmd.Ticket(), payload: payload.Clone()}
}

// Err rejects a command with code.
func Err(cmd Command, code ErrorCode) *Response {
	return &Response{kind: KindErr, ticket: cmd.Ticket(), code: code}
}

// Void is sent by the dispatch loop when no handler produced a response.
func Void(cmd Command) *Response {
	return &Response{kind: KindVoid, ticket: cmd.Ticket()}
}

func (r *Response) Kind() Kind { return r.kind }

func (r *Response) Ticket() Ticket { return r.ticket }

// Code is meaningful for ERR responses only.
func (r *Response) Code() ErrorCode { return r.code }

// Render builds a fresh document for the response. Field order is response,
// ticket, then the variant field.
func (r *Response) Render() *document.Document {
	d := document.New()
	d.SetString(FieldResponse, string(r.kind))
	d.SetInt(FieldTicket, int64(r.ticket))

	switch r.kind {
	case KindData:
		d.SetDocument(FieldPayload, r.payload)
	case KindErr:
		d.SetInt(FieldErrorCode, int64(r.code))
	case KindOK, KindVoid:
	}
	return d
}

// WireBytes renders and serializes the response followed by delim.
func (r *Response) WireBytes(delim byte) ([]byte, error) {
	raw, err := r.Render().Serialize()
	if err != nil {
		return nil, fmt.Errorf("render %s response: %w", r.kind, err)
	}
	return append(raw, delim), nil
}

var ErrMalformedReply = errors.New("protocol: malformed reply")

// Reply is a decoded response frame, as seen by a remote operator.
type Reply struct {
	Kind    Kind
	Ticket  Ticket
	Payload *document.Document
	Code    ErrorCode
	Raw     []byte // frame as received, without the delimiter
}

// ParseReply decodes one response frame. Frames that are not documents or
// carry no recognised response tag are rejected.
func ParseReply(raw []byte) (Reply, error) {
	d, err := document.Parse(raw)
	if err != nil {
		return Reply{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}

	kind := Kind(d.GetString(FieldResponse, ""))
	switch kind {
	case KindOK, KindData, KindErr, KindVoid:
	default:
		return Reply{}, fmt.Errorf("%w: response tag %q", ErrMalformedReply, kind)
	}

	reply := Reply{
		Kind:    kind,
		Ticket:  Ticket(d.GetUint(FieldTicket, maxTicket, 0)),
		Payload: d.GetDocument(FieldPayload),
		Code:    ErrUnspecified,
		Raw:     bytes.TrimRight(raw, "\r\n"),
	}
	if kind == KindErr {
		reply.Code = ErrorCode(d.GetInt(FieldErrorCode, int64(ErrUnspecified)))
	}
	return reply, nil
}

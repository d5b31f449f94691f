package protocol

import (
	"testing"

	"bridgelink/pkg/document"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	cmd := ParseCommand([]byte(`{"command":"sum","ticket":12,"kwargs":{"a":2,"b":3}}`))

	require.True(t, cmd.Valid())
	assert.Equal(t, "sum", cmd.Name())
	assert.Equal(t, Ticket(12), cmd.Ticket())
	assert.True(t, cmd.HasArgument("a", document.KindNumber))
	assert.Equal(t, 3.0, cmd.NumberArgument("b", 0))
}

func TestParseCommandInvalidInput(t *testing.T) {
	inputs := []string{"", "not-json", "{", `["command","ping"]`, `{"command":"ping"`}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			cmd := ParseCommand([]byte(in))
			assert.False(t, cmd.Valid())
			assert.Empty(t, cmd.Name())
			assert.NotNil(t, cmd.Arguments())
		})
	}
}

func TestParseCommandWithoutName(t *testing.T) {
	for _, in := range []string{`{}`, `{"command":""}`, `{"command":5,"ticket":3}`} {
		assert.False(t, ParseCommand([]byte(in)).Valid(), in)
	}
}

func TestParseCommandDefaults(t *testing.T) {
	t.Run("missing ticket", func(t *testing.T) {
		assert.Equal(t, Ticket(0), ParseCommand([]byte(`{"command":"ping"}`)).Ticket())
	})
	t.Run("malformed ticket", func(t *testing.T) {
		for _, in := range []string{
			`{"command":"ping","ticket":"7"}`,
			`{"command":"ping","ticket":-1}`,
			`{"command":"ping","ticket":1.5}`,
			`{"command":"ping","ticket":4294967296}`,
		} {
			cmd := ParseCommand([]byte(in))
			assert.True(t, cmd.Valid(), in)
			assert.Equal(t, Ticket(0), cmd.Ticket(), in)
		}
	})
	t.Run("malformed kwargs", func(t *testing.T) {
		cmd := ParseCommand([]byte(`{"command":"ping","kwargs":"nope"}`))
		assert.True(t, cmd.Valid())
		assert.Equal(t, 0, cmd.Arguments().Len())
	})
}

func TestCommandArgumentsAreImmutable(t *testing.T) {
	cmd := ParseCommand([]byte(`{"command":"sum","kwargs":{"a":2}}`))
	args := cmd.Arguments()
	args.SetNumber("a", 99)
	assert.Equal(t, 2.0, cmd.NumberArgument("a", 0))
}

func TestCommandRenderRoundTrips(t *testing.T) {
	kwargs := document.New()
	kwargs.SetNumber("position", 0.5)
	cmd := NewCommand("set_bridge_position", 12, kwargs)

	raw, err := cmd.Render().Serialize()
	require.NoError(t, err)
	assert.Equal(t, `{"command":"set_bridge_position","ticket":12,"kwargs":{"position":0.5}}`, string(raw))

	parsed := ParseCommand(raw)
	assert.Equal(t, "set_bridge_position", parsed.Name())
	assert.Equal(t, Ticket(12), parsed.Ticket())
	assert.Equal(t, 0.5, parsed.NumberArgument("position", 0))
}

func TestResponseRender(t *testing.T) {
	ticketed := ParseCommand([]byte(`{"command":"ping","ticket":7}`))
	plain := ParseCommand([]byte(`{"command":"sum","kwargs":{"a":2,"b":3}}`))

	payload := document.New()
	payload.SetNumber("result", 5)

	cases := []struct {
		name     string
		response *Response
		want     string
	}{
		{"ok", OK(ticketed), `{"response":"OK","ticket":7}`},
		{"data", Data(plain, payload), `{"response":"DATA","ticket":0,"payload":{"result":5}}`},
		{"err", Err(plain, ErrInvalidArgs), `{"response":"ERR","ticket":0,"error_code":1}`},
		{"void", Void(plain), `{"response":"VOID","ticket":0}`},
		{"void ticketed", Void(ticketed), `{"response":"VOID","ticket":7}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := tc.response.Render().Serialize()
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(raw))
		})
	}
}

func TestRenderIsIdempotent(t *testing.T) {
	payload := document.New()
	payload.SetString("lights", "GO")
	resp := Data(NewCommand("get_light_condition", 3, nil), payload)

	first := resp.Render()
	first.SetString("tampered", "yes")
	second := resp.Render()
	third := resp.Render()

	assert.True(t, second.Equal(third))
	assert.Equal(t, document.KindInvalid, second.Kind("tampered"))
}

func TestDataCopiesPayload(t *testing.T) {
	payload := document.New()
	payload.SetNumber("result", 1)
	resp := Data(NewCommand("sum", 0, nil), payload)
	payload.SetNumber("result", 2)

	assert.Equal(t, 1.0, resp.Render().GetDocument(FieldPayload).GetNumber("result", 0))
}

func TestEveryResponseEchoesTicket(t *testing.T) {
	for _, ticket := range []Ticket{0, 1, 65535, 4294967295} {
		cmd := NewCommand("x", ticket, nil)
		for _, resp := range []*Response{OK(cmd), Data(cmd, nil), Err(cmd, ErrTimeout), Void(cmd)} {
			got := resp.Render().GetUint(FieldTicket, maxTicket, 1)
			assert.Equal(t, uint64(ticket), got)
		}
	}
}

func TestWireBytes(t *testing.T) {
	raw, err := OK(NewCommand("ping", 4, nil)).WireBytes('\n')
	require.NoError(t, err)
	assert.Equal(t, "{\"response\":\"OK\",\"ticket\":4}\n", string(raw))
}

func TestParseReply(t *testing.T) {
	reply, err := ParseReply([]byte("{\"response\":\"ERR\",\"ticket\":9,\"error_code\":3}\n"))
	require.NoError(t, err)
	assert.Equal(t, `{"response":"ERR","ticket":9,"error_code":3}`, string(reply.Raw))
	assert.Equal(t, KindErr, reply.Kind)
	assert.Equal(t, Ticket(9), reply.Ticket)
	assert.Equal(t, ErrPermissionDenied, reply.Code)

	reply, err = ParseReply([]byte(`{"response":"DATA","ticket":0,"payload":{"position":0.5}}`))
	require.NoError(t, err)
	assert.Equal(t, 0.5, reply.Payload.GetNumber("position", 0))

	_, err = ParseReply([]byte(`{"ticket":1}`))
	assert.ErrorIs(t, err, ErrMalformedReply)
	_, err = ParseReply([]byte(`garbage`))
	assert.ErrorIs(t, err, ErrMalformedReply)
}

func TestErrorCodeNames(t *testing.T) {
	assert.Equal(t, "INVALID_ARGS", ErrInvalidArgs.String())
	assert.Equal(t, "UNSPECIFIED", ErrorCode(42).String())

	code, ok := ParseErrorCode("NOT_FOUND")
	assert.True(t, ok)
	assert.Equal(t, ErrNotFound, code)

	_, ok = ParseErrorCode("nope")
	assert.False(t, ok)
}

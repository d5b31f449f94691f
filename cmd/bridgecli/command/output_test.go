package command

import (
	"bytes"
	"os"
	"testing"
	"time"

	"bridgelink/internal/protocol"
	"bridgelink/pkg/document"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func TestPrintPayloadAligns(t *testing.T) {
	payload := document.New()
	payload.SetNumber("position", 0.5)
	payload.SetString("lights", "GO")
	payload.SetBool("ok", true)

	var buf bytes.Buffer
	printPayload(&buf, payload)

	assert.Equal(t,
		"position --------> 0.5\n"+
			"lights ----------> GO\n"+
			"ok --------------> true\n",
		buf.String())
}

func TestPrintReply(t *testing.T) {
	tests := []struct {
		name  string
		reply protocol.Reply
		want  string
	}{
		{"ok", protocol.Reply{Kind: protocol.KindOK}, "OK\n"},
		{"err", protocol.Reply{Kind: protocol.KindErr, Code: protocol.ErrPermissionDenied}, "Error: PERMISSION_DENIED\n"},
		{"unknown code", protocol.Reply{Kind: protocol.KindErr, Code: protocol.ErrorCode(77)}, "Error: UNSPECIFIED\n"},
		{"void", protocol.Reply{Kind: protocol.KindVoid}, "(no response)\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printReply(&buf, tt.reply)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestPrintUpdate(t *testing.T) {
	update := document.New()
	update.SetNumber("current_position", 0.2)
	update.SetString("bridge_lights", "STOP")

	var buf bytes.Buffer
	at := time.Date(2026, 1, 2, 13, 4, 5, 123456000, time.UTC)
	printUpdate(&buf, at, update)

	assert.Equal(t,
		"(13:04:05.123456)\tcurrent_position: \t0.2\n"+
			"(13:04:05.123456)\tbridge_lights: \tSTOP\n",
		buf.String())
}

func TestFormatNestedValue(t *testing.T) {
	inner := document.New()
	inner.SetInt("a", 1)
	outer := document.New()
	outer.SetDocument("inner", inner)

	assert.Equal(t, `{"a":1}`, formatValue(outer, "inner"))
	assert.Equal(t, "", formatValue(outer, "missing"))
}

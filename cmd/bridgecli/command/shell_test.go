package command

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"bridgelink/internal/bridge"
	"bridgelink/internal/client"
	"bridgelink/internal/remote"
	"bridgelink/pkg/document"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialController(t *testing.T) *client.Client {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := bridge.NewRouter(logger)
	bridge.RegisterBuiltins(router)
	sim := bridge.NewSimulation(nopPusher{}, bridge.SimulationOptions{Logger: logger})
	sim.Register(router)

	m := remote.NewConnectionManager(router.Dispatch, remote.Options{
		BindHost:     "127.0.0.1",
		PollInterval: 2 * time.Millisecond,
		Logger:       logger,
	})
	require.NoError(t, m.Open("test-ap", "secret"))
	t.Cleanup(m.Close)

	c, err := client.Dial(context.Background(), m.Addr(remote.ChannelCommand).String())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

type nopPusher struct{}

func (nopPusher) Push(*document.Document) bool { return false }

func TestRunShell(t *testing.T) {
	c := dialController(t)
	timeout = 2 * time.Second

	script := strings.Join([]string{
		"ping",
		"SET_BRIDGE_POSITION position=0.5",
		"set_overrides enabled=on",
		"set_bridge_position position=0.5 stray",
		"show_json",
		"get_light_condition",
		"hide_json",
		"sum a=2 b=3",
		"exit",
		"ping",
	}, "\n")

	var out, errOut bytes.Buffer
	err := runShell(context.Background(), c, strings.NewReader(script), &out, &errOut)
	require.NoError(t, err)

	got := out.String()
	assert.Equal(t, 3, strings.Count(got, "OK\n"), got)
	assert.Contains(t, got, "Error: PERMISSION_DENIED")
	assert.Contains(t, got, `{"response":"DATA","ticket":5,"payload":{"lights":"GO"}}`)
	assert.Contains(t, got, "lights --------> GO")
	assert.Contains(t, got, "result --------> 5")
	assert.Contains(t, errOut.String(), "Warning: ignoring invalid token 'stray' (no '=')")
	assert.False(t, showJSON)
}

func TestRunShellEndOfInput(t *testing.T) {
	c := dialController(t)

	var out bytes.Buffer
	err := runShell(context.Background(), c, strings.NewReader("ping\n"), &out, io.Discard)
	assert.NoError(t, err)
	assert.Contains(t, out.String(), "OK")
}

package client

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bridgelink/internal/bridge"
	"bridgelink/internal/protocol"
	"bridgelink/internal/remote"
	"bridgelink/internal/status"
	"bridgelink/pkg/document"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
)

// ControllerIntegrationTestSuite runs the full controller stack: connection
// manager, router, bridge simulation and status API.
type ControllerIntegrationTestSuite struct {
	suite.Suite
	manager *remote.ConnectionManager
	sim     *bridge.Simulation
	api     *httptest.Server
	cancel  context.CancelFunc
	done    chan struct{}
}

func (s *ControllerIntegrationTestSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gin.SetMode(gin.TestMode)

	router := bridge.NewRouter(logger)
	bridge.RegisterBuiltins(router)

	s.manager = remote.NewConnectionManager(router.Dispatch, remote.Options{
		BindHost:     "127.0.0.1",
		PollInterval: 2 * time.Millisecond,
		Logger:       logger,
	})
	pusher := status.NewMirroredPusher(s.manager, nil, logger)

	s.sim = bridge.NewSimulation(pusher, bridge.SimulationOptions{
		Speed:          2,
		Tick:           time.Millisecond,
		StatusInterval: 10 * time.Millisecond,
		Logger:         logger,
	})
	s.sim.Register(router)

	s.Require().NoError(s.manager.Open("test-ap", "secret"))

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		s.sim.Run(ctx)
	}()

	handler := status.NewHandler(s.manager, pusher, s.sim, nil, logger)
	s.api = httptest.NewServer(status.NewRouter(handler, logger))
}

func (s *ControllerIntegrationTestSuite) TearDownTest() {
	s.api.Close()
	s.cancel()
	<-s.done
	s.manager.Close()
}

func (s *ControllerIntegrationTestSuite) ctx() context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	s.T().Cleanup(cancel)
	return ctx
}

func (s *ControllerIntegrationTestSuite) dial() *Client {
	c, err := Dial(s.ctx(), s.manager.Addr(remote.ChannelCommand).String())
	s.Require().NoError(err)
	s.T().Cleanup(func() { c.Close() })
	return c
}

func (s *ControllerIntegrationTestSuite) subscribe() <-chan *document.Document {
	updates, err := Subscribe(s.ctx(), s.manager.Addr(remote.ChannelPush).String())
	s.Require().NoError(err)
	s.Require().Eventually(func() bool {
		return s.manager.IsConnected(remote.ChannelPush)
	}, time.Second, 2*time.Millisecond)
	return updates
}

// waitForEvent skips status documents until an event arrives.
func (s *ControllerIntegrationTestSuite) waitForEvent(updates <-chan *document.Document) string {
	timeout := time.After(2 * time.Second)
	for {
		select {
		case doc, ok := <-updates:
			s.Require().True(ok, "push channel closed")
			if doc.Has("event", document.KindString) {
				return doc.GetString("event", "")
			}
		case <-timeout:
			s.FailNow("no event pushed")
		}
	}
}

func (s *ControllerIntegrationTestSuite) execute(c *Client, name string, kwargs *document.Document) protocol.Reply {
	reply, err := c.Execute(s.ctx(), name, kwargs)
	s.Require().NoError(err)
	return reply
}

func (s *ControllerIntegrationTestSuite) TestBridgeOperation() {
	updates := s.subscribe()
	c := s.dial()

	enable := document.New()
	enable.SetBool("enabled", true)
	s.Equal(protocol.KindOK, s.execute(c, "set_overrides", enable).Kind)

	target := document.New()
	target.SetNumber("position", 0.1)
	s.Equal(protocol.KindOK, s.execute(c, "set_bridge_position", target).Kind)

	s.Equal("Bridge target position set to 0.1", s.waitForEvent(updates))
	s.Equal("Bridge reached target position", s.waitForEvent(updates))

	reply := s.execute(c, "get_bridge_position", nil)
	s.Equal(protocol.KindData, reply.Kind)
	s.Equal(0.1, reply.Payload.GetNumber("position", 0))
}

func (s *ControllerIntegrationTestSuite) TestStatusPushes() {
	updates := s.subscribe()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case doc, ok := <-updates:
			s.Require().True(ok, "push channel closed")
			if doc.Has("current_position", document.KindNumber) {
				s.Equal(bridge.LightsGo, doc.GetString("bridge_lights", ""))
				return
			}
		case <-timeout:
			s.FailNow("no status pushed")
		}
	}
}

func (s *ControllerIntegrationTestSuite) TestStatusAPI() {
	c := s.dial()
	s.Equal(protocol.KindOK, s.execute(c, "ping", nil).Kind)

	resp, err := http.Get(s.api.URL + "/status")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var body struct {
		Channels []remote.ChannelStatus `json:"channels"`
		Stats    remote.Stats           `json:"stats"`
		Bridge   bridge.State           `json:"bridge"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Require().Len(body.Channels, 2)
	s.Equal("connected", body.Channels[0].State)
	s.NotEmpty(body.Channels[0].PeerID)
	s.GreaterOrEqual(body.Stats.CommandsHandled, uint64(1))
	s.Equal(bridge.LightsGo, body.Bridge.Lights)
}

func (s *ControllerIntegrationTestSuite) TestPushViaAPI() {
	updates := s.subscribe()

	resp, err := http.Post(s.api.URL+"/push", "application/json", strings.NewReader(`{"event":"operator notice"}`))
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusAccepted, resp.StatusCode)

	s.Equal("operator notice", s.waitForEvent(updates))
}

func (s *ControllerIntegrationTestSuite) TestNewerOperatorTakesOver() {
	first := s.dial()
	s.Equal(protocol.KindOK, s.execute(first, "ping", nil).Kind)

	second := s.dial()
	s.Equal(protocol.KindOK, s.execute(second, "ping", nil).Kind)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_, err := first.Execute(ctx, "ping", nil)
	s.Error(err)
	s.False(first.Connected())
}

func TestControllerIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(ControllerIntegrationTestSuite))
}

package remote

import "sync/atomic"

// Stats is a snapshot of manager counters since construction.
type Stats struct {
	PeersAccepted     uint64 `json:"peers_accepted"`
	PeersSuperseded   uint64 `json:"peers_superseded"`
	PeersDisconnected uint64 `json:"peers_disconnected"`
	FramesReceived    uint64 `json:"frames_received"`
	FramesOversized   uint64 `json:"frames_oversized"`
	FramesRateLimited uint64 `json:"frames_rate_limited"`
	CommandsInvalid   uint64 `json:"commands_invalid"`
	CommandsHandled   uint64 `json:"commands_handled"`
	VoidResponses     uint64 `json:"void_responses"`
	WriteFailures     uint64 `json:"write_failures"`
	PushesSent        uint64 `json:"pushes_sent"`
	PushesDropped     uint64 `json:"pushes_dropped"`
}

type counters struct {
	peersAccepted     atomic.Uint64
	peersSuperseded   atomic.Uint64
	peersDisconnected atomic.Uint64
	framesReceived    atomic.Uint64
	framesOversized   atomic.Uint64
	framesRateLimited atomic.Uint64
	commandsInvalid   atomic.Uint64
	commandsHandled   atomic.Uint64
	voidResponses     atomic.Uint64
	writeFailures     atomic.Uint64
	pushesSent        atomic.Uint64
	pushesDropped     atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		PeersAccepted:     c.peersAccepted.Load(),
		PeersSuperseded:   c.peersSuperseded.Load(),
		PeersDisconnected: c.peersDisconnected.Load(),
		FramesReceived:    c.framesReceived.Load(),
		FramesOversized:   c.framesOversized.Load(),
		FramesRateLimited: c.framesRateLimited.Load(),
		CommandsInvalid:   c.commandsInvalid.Load(),
		CommandsHandled:   c.commandsHandled.Load(),
		VoidResponses:     c.voidResponses.Load(),
		WriteFailures:     c.writeFailures.Load(),
		PushesSent:        c.pushesSent.Load(),
		PushesDropped:     c.pushesDropped.Load(),
	}
}

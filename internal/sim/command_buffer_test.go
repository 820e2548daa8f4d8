package sim

import (
	"testing"

	"bulletsim/server/internal/telemetry"
	"bulletsim/server/logging"
)

func TestCommandBufferWraparound(t *testing.T) {
	buffer := NewCommandBuffer(3, nil)
	cmds := []Command{
		{ActorID: "a", Type: CommandFire},
		{ActorID: "b", Type: CommandArm},
		{ActorID: "c", Type: CommandDisarm},
	}
	for _, cmd := range cmds {
		if !buffer.Push(cmd) {
			t.Fatalf("expected push to succeed for %+v", cmd)
		}
	}
	if buffer.Push(Command{ActorID: "overflow"}) {
		t.Fatalf("expected push to fail when buffer full")
	}
	drained := buffer.Drain()
	if len(drained) != len(cmds) {
		t.Fatalf("expected %d commands, got %d", len(cmds), len(drained))
	}
	for i, cmd := range drained {
		if cmd.ActorID != cmds[i].ActorID {
			t.Fatalf("expected drain order %v, got %v", cmds[i].ActorID, cmd.ActorID)
		}
	}
	// Push past the end of the ring so the indices wrap.
	for _, cmd := range []Command{{ActorID: "d"}, {ActorID: "e"}} {
		if !buffer.Push(cmd) {
			t.Fatalf("expected push to succeed after drain for %+v", cmd)
		}
	}
	if got := buffer.Drain(); len(got) != 2 || got[0].ActorID != "d" || got[1].ActorID != "e" {
		t.Fatalf("unexpected order after drain: %+v", got)
	}
	for _, cmd := range []Command{{ActorID: "f"}, {ActorID: "g"}, {ActorID: "h"}} {
		if !buffer.Push(cmd) {
			t.Fatalf("expected push to succeed for %+v", cmd)
		}
	}
	wrapped := buffer.Drain()
	if len(wrapped) != 3 || wrapped[0].ActorID != "f" || wrapped[2].ActorID != "h" {
		t.Fatalf("unexpected order after wraparound: %+v", wrapped)
	}
}

func TestCommandBufferOverflowMetrics(t *testing.T) {
	metrics := &logging.Metrics{}
	buffer := NewCommandBuffer(1, telemetry.WrapMetrics(metrics))
	if !buffer.Push(Command{ActorID: "one"}) {
		t.Fatalf("expected initial push to succeed")
	}
	if buffer.Push(Command{ActorID: "two"}) {
		t.Fatalf("expected push to fail when capacity exceeded")
	}
	if got := metrics.Load(commandBufferOccupancyMetricKey); got != 1 {
		t.Fatalf("expected occupancy 1, got %d", got)
	}
	if got := metrics.Load(commandBufferOverflowMetricKey); got != 1 {
		t.Fatalf("expected one overflow, got %d", got)
	}
	drained := buffer.Drain()
	if len(drained) != 1 || drained[0].ActorID != "one" {
		t.Fatalf("unexpected drained commands: %+v", drained)
	}
	if got := metrics.Load(commandBufferOccupancyMetricKey); got != 0 {
		t.Fatalf("expected occupancy reset, got %d", got)
	}
}

func TestNilCommandBuffer(t *testing.T) {
	var buffer *CommandBuffer
	if buffer.Push(Command{}) || buffer.Len() != 0 || buffer.Drain() != nil || buffer.Capacity() != 0 {
		t.Fatalf("expected nil buffer to be inert")
	}
}

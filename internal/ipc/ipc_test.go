package ipc

import (
	"net"
	"testing"
)

func TestSendReceiveRoundTrip(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	sc := NewConn(server)
	cc := NewConn(client)

	want := Message{Kind: KindUpdateGraph, Code: "out = sine(440)"}
	go func() {
		if err := sc.Send(want); err != nil {
			t.Errorf("Send: %v", err)
		}
	}()

	got, err := cc.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestCoalesceUpdatesKeepsOnlyMostRecentUpdateGraph(t *testing.T) {
	in := []Message{
		{Kind: KindUpdateGraph, Code: "v1"},
		{Kind: KindSetTempo, CPS: 1.5},
		{Kind: KindUpdateGraph, Code: "v2"},
		{Kind: KindUpdateGraph, Code: "v3"},
		{Kind: KindHush},
	}
	out := CoalesceUpdates(in)

	want := []Message{
		{Kind: KindSetTempo, CPS: 1.5},
		{Kind: KindUpdateGraph, Code: "v3"},
		{Kind: KindHush},
	}
	if len(out) != len(want) {
		t.Fatalf("got %d messages, want %d: %+v", len(out), len(want), out)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("message %d = %+v, want %+v", i, out[i], want[i])
		}
	}
}

func TestCoalesceUpdatesPreservesNonUpdateOrder(t *testing.T) {
	in := []Message{
		{Kind: KindHush},
		{Kind: KindUpdateGraph, Code: "v1"},
		{Kind: KindSetTempo, CPS: 2.0},
		{Kind: KindPanic},
	}
	out := CoalesceUpdates(in)
	if len(out) != 4 {
		t.Fatalf("got %d messages, want 4 (nothing dropped when only one UpdateGraph is present): %+v", len(out), out)
	}
}

func TestListenRejectsNothingOnFreshPath(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/phonon.sock"
	ln, err := Listen(path)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()
}

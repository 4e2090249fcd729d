package gossip

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/aerosyn-sim/swarmcore/internal/telemetry"
)

type fakePeerSource struct {
	urls []string
}

func (f fakePeerSource) PeerURLs() []string { return f.urls }
func (f fakePeerSource) Count() int         { return len(f.urls) }

type fakeSender struct {
	mu    sync.Mutex
	sent  []string
	ttls  []int
	fail  map[string]bool
}

func (f *fakeSender) SendDelta(url string, msg DeltaMsg) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[url] {
		return errors.New("boom")
	}
	f.sent = append(f.sent, url)
	f.ttls = append(f.ttls, msg.TTL)
	return nil
}

type fakeMergeSink struct {
	mu     sync.Mutex
	merged []telemetry.TelemetryDelta
}

func (f *fakeMergeSink) MergeDelta(delta telemetry.TelemetryDelta) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.merged = append(f.merged, delta)
}

func testDelta() telemetry.TelemetryDelta {
	return telemetry.TelemetryDelta{
		Entries: []telemetry.TelemetryDeltaEntry{
			{Drone: "drone-1", Point: telemetry.DronePoint{X: 1, Y: 2, Z: 3}},
		},
	}
}

func TestDisseminateForwardsToFanoutPeers(t *testing.T) {
	peers := fakePeerSource{urls: []string{"http://a", "http://b", "http://c", "http://d"}}
	sender := &fakeSender{fail: map[string]bool{}}
	sink := &fakeMergeSink{}
	ds := NewDisseminationSystem("self", 2, 4, peers, sender, sink)

	if err := ds.Disseminate(testDelta()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sent, _, _, _ := ds.Stats()
	if sent != 2 {
		t.Fatalf("expected fanout of 2 peers contacted, got %d", sent)
	}
}

func TestDisseminateWithFewerPeersThanFanoutSendsToAll(t *testing.T) {
	peers := fakePeerSource{urls: []string{"http://a"}}
	sender := &fakeSender{fail: map[string]bool{}}
	sink := &fakeMergeSink{}
	ds := NewDisseminationSystem("self", 5, 4, peers, sender, sink)

	ds.Disseminate(testDelta())
	sent, _, _, _ := ds.Stats()
	if sent != 1 {
		t.Fatalf("expected the single available peer to be contacted, got %d", sent)
	}
}

func TestDisseminateWithNoPeersIsNoOp(t *testing.T) {
	peers := fakePeerSource{urls: nil}
	sender := &fakeSender{fail: map[string]bool{}}
	sink := &fakeMergeSink{}
	ds := NewDisseminationSystem("self", 3, 4, peers, sender, sink)

	if err := ds.Disseminate(testDelta()); err != nil {
		t.Fatalf("expected no-op dissemination with zero peers to succeed, got %v", err)
	}
}

func TestProcessReceivedMergesAndForwards(t *testing.T) {
	peers := fakePeerSource{urls: []string{"http://a"}}
	sender := &fakeSender{fail: map[string]bool{}}
	sink := &fakeMergeSink{}
	ds := NewDisseminationSystem("relay-2", 3, 4, peers, sender, sink)

	msg := DeltaMsg{ID: uuid.New(), TTL: 3, Data: testDelta(), SenderID: "relay-1"}
	if err := ds.ProcessReceived(msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sink.merged) != 1 {
		t.Fatalf("expected the received delta to be merged once, got %d merges", len(sink.merged))
	}
}

func TestProcessReceivedDropsDuplicateMessageID(t *testing.T) {
	peers := fakePeerSource{urls: []string{"http://a"}}
	sender := &fakeSender{fail: map[string]bool{}}
	sink := &fakeMergeSink{}
	ds := NewDisseminationSystem("relay-2", 3, 4, peers, sender, sink)

	id := uuid.New()
	msg := DeltaMsg{ID: id, TTL: 3, Data: testDelta(), SenderID: "relay-1"}
	ds.ProcessReceived(msg)
	ds.ProcessReceived(msg)

	if len(sink.merged) != 1 {
		t.Fatalf("expected a duplicate message id to be dropped, got %d merges", len(sink.merged))
	}

	_, _, dropped, _ := ds.Stats()
	if dropped != 1 {
		t.Fatalf("expected dropped count of 1, got %d", dropped)
	}
}

func TestProcessReceivedDropsExpiredTTL(t *testing.T) {
	peers := fakePeerSource{urls: []string{"http://a"}}
	sender := &fakeSender{fail: map[string]bool{}}
	sink := &fakeMergeSink{}
	ds := NewDisseminationSystem("relay-2", 3, 4, peers, sender, sink)

	msg := DeltaMsg{ID: uuid.New(), TTL: 0, Data: testDelta(), SenderID: "relay-1"}
	ds.ProcessReceived(msg)

	if len(sink.merged) != 0 {
		t.Fatalf("expected a TTL-expired message to never reach the merge sink")
	}
}

func TestProcessReceivedDecrementsTTLWhenForwarding(t *testing.T) {
	peers := fakePeerSource{urls: []string{"http://a", "http://b"}}
	sender := &fakeSender{fail: map[string]bool{}}
	sink := &fakeMergeSink{}
	ds := NewDisseminationSystem("relay-2", 5, 4, peers, sender, sink)

	msg := DeltaMsg{ID: uuid.New(), TTL: 1, Data: testDelta(), SenderID: "relay-1"}
	ds.ProcessReceived(msg)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.sent) != 2 {
		t.Fatalf("expected forwarding to both peers, got %d", len(sender.sent))
	}
	for i, ttl := range sender.ttls {
		if ttl != 0 {
			t.Fatalf("expected forwarded message %d to carry TTL 0 after decrementing 1, got %d", i, ttl)
		}
	}
}

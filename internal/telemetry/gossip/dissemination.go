package gossip

import (
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aerosyn-sim/swarmcore/internal/telemetry"
)

// DeltaMsg is a TelemetryDelta wrapped with TTL and dedup identity for
// gossip dissemination.
type DeltaMsg struct {
	ID        uuid.UUID             `json:"id"`
	TTL       int                   `json:"ttl"`
	Data      telemetry.TelemetryDelta `json:"data"`
	SenderID  string                `json:"sender_id"`
	TimestampMs int64               `json:"timestamp_ms"`
}

// PeerSource supplies the set of peer relay URLs to gossip to; the SWIM
// membership layer is the production implementation.
type PeerSource interface {
	PeerURLs() []string
	Count() int
}

// MergeSink receives a fully-processed incoming delta so the relay's own
// CRDT state can absorb it. internal/telemetry/gossip never holds the
// merged state itself.
type MergeSink interface {
	MergeDelta(delta telemetry.TelemetryDelta)
}

// DisseminationSystem pushes TelemetryDelta journals to a fanout of
// peers with a bounded TTL, deduplicating by message ID. It lives
// entirely in the peripheral telemetry layer; the simulation core never
// references it and stays network-free.
type DisseminationSystem struct {
	selfID     string
	fanout     int
	defaultTTL int

	peers  PeerSource
	sender Sender
	sink   MergeSink
	cache  *DeduplicationCache

	mutex         sync.RWMutex
	running       bool
	stopCh        chan struct{}
	sentCount     int64
	receivedCount int64
	droppedCount  int64
}

// NewDisseminationSystem wires a dissemination system for selfID.
func NewDisseminationSystem(selfID string, fanout, defaultTTL int, peers PeerSource, sender Sender, sink MergeSink) *DisseminationSystem {
	return &DisseminationSystem{
		selfID:     selfID,
		fanout:     fanout,
		defaultTTL: defaultTTL,
		peers:      peers,
		sender:     sender,
		sink:       sink,
		cache:      NewDeduplicationCache(10000),
		stopCh:     make(chan struct{}),
	}
}

// Start launches the periodic push loop. No-op if already running.
func (ds *DisseminationSystem) Start(pushInterval time.Duration, pending func() *telemetry.TelemetryDelta) {
	ds.mutex.Lock()
	if ds.running {
		ds.mutex.Unlock()
		return
	}
	ds.running = true
	ds.mutex.Unlock()

	go ds.loop(pushInterval, pending)
}

// Stop halts the push loop.
func (ds *DisseminationSystem) Stop() {
	ds.mutex.Lock()
	defer ds.mutex.Unlock()
	if !ds.running {
		return
	}
	ds.running = false
	close(ds.stopCh)
}

func (ds *DisseminationSystem) loop(interval time.Duration, pending func() *telemetry.TelemetryDelta) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			delta := pending()
			if delta == nil || len(delta.Entries) == 0 {
				continue
			}
			if err := ds.Disseminate(*delta); err != nil {
				log.Printf("[gossip] dissemination error: %v", err)
			}
		case <-ds.stopCh:
			return
		}
	}
}

// Disseminate wraps delta with a fresh message ID and TTL and forwards
// it to a random fanout of peers.
func (ds *DisseminationSystem) Disseminate(delta telemetry.TelemetryDelta) error {
	msg := DeltaMsg{
		ID:          uuid.New(),
		TTL:         ds.defaultTTL,
		Data:        delta,
		SenderID:    ds.selfID,
		TimestampMs: time.Now().UnixMilli(),
	}
	return ds.forward(msg)
}

// ProcessReceived handles a delta received from a peer: dedups, applies
// it to the local merge sink, decrements TTL, and continues forwarding.
func (ds *DisseminationSystem) ProcessReceived(msg DeltaMsg) error {
	ds.mutex.Lock()
	ds.receivedCount++
	ds.mutex.Unlock()

	if ds.cache.Contains(msg.ID) {
		ds.mutex.Lock()
		ds.droppedCount++
		ds.mutex.Unlock()
		return nil
	}
	ds.cache.Add(msg.ID)

	if msg.TTL <= 0 {
		ds.mutex.Lock()
		ds.droppedCount++
		ds.mutex.Unlock()
		return nil
	}

	ds.sink.MergeDelta(msg.Data)

	msg.TTL--
	msg.SenderID = ds.selfID
	return ds.forward(msg)
}

func (ds *DisseminationSystem) forward(msg DeltaMsg) error {
	peers := ds.peers.PeerURLs()
	if len(peers) == 0 {
		return nil
	}

	targetCount := ds.fanout
	if len(peers) < targetCount {
		targetCount = len(peers)
	}
	targets := selectRandomPeers(peers, targetCount)

	var firstErr error
	sent := 0
	for _, url := range targets {
		if err := ds.sender.SendDelta(url, msg); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		sent++
	}

	ds.mutex.Lock()
	ds.sentCount += int64(sent)
	ds.mutex.Unlock()

	return firstErr
}

func selectRandomPeers(peers []string, count int) []string {
	if len(peers) <= count {
		return peers
	}
	shuffled := make([]string, len(peers))
	copy(shuffled, peers)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled[:count]
}

// Stats reports dissemination counters for the metrics/REST facade.
func (ds *DisseminationSystem) Stats() (sent, received, dropped int64, cacheSize int) {
	ds.mutex.RLock()
	defer ds.mutex.RUnlock()
	return ds.sentCount, ds.receivedCount, ds.droppedCount, ds.cache.Size()
}

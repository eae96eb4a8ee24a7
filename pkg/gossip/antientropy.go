// Package gossip drives periodic anti-entropy between replicas: picking a
// random fanout of live peers and pulling any events they have that this
// replica hasn't seen yet. Grounded on the teacher's DisseminationSystem
// heartbeat loop, adapted from push-flooding of deltas to pull-based replay.
package gossip

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	lru "github.com/hashicorp/golang-lru"

	"github.com/crdtlab/replikit/pkg/replication"
	"github.com/crdtlab/replikit/pkg/transport"
)

// PeerSource supplies the current set of reachable peer transport addresses.
type PeerSource interface {
	PeerAddrs() []string
	Count() int
}

// unknownPeer is passed to transport.ConnectRemote when the peer's numeric
// ReplicaID isn't known (membership only hands out addresses). It only
// affects how far back Observed bookkeeping starts a replay from; the
// causal VTime filter still guarantees no already-seen event is reapplied.
const unknownPeer replication.ReplicaID = 0

// AntiEntropy periodically connects to a random subset of peers and
// replays any events they hold that this replica doesn't.
type AntiEntropy[D any] struct {
	replicaID replication.ReplicaID
	replica   *replication.Replicator[D]
	client    *transport.Client[D]
	peers     PeerSource
	fanout    int
	interval  time.Duration

	recentlyContacted *lru.Cache // url -> time.Time, skips peers already contacted within the last interval

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}

	roundCount   int64
	successCount int64
	errorCount   int64
}

// NewAntiEntropy builds an anti-entropy loop for one replica. fanout caps
// how many peers are contacted per round; interval sets the round period.
func NewAntiEntropy[D any](replicaID replication.ReplicaID, replica *replication.Replicator[D], client *transport.Client[D], peers PeerSource, fanout int, interval time.Duration) *AntiEntropy[D] {
	cache, _ := lru.New(1024)
	return &AntiEntropy[D]{
		replicaID:         replicaID,
		replica:           replica,
		client:            client,
		peers:             peers,
		fanout:            fanout,
		interval:          interval,
		recentlyContacted: cache,
		stopCh:            make(chan struct{}),
	}
}

// Start begins the periodic anti-entropy loop in the background.
func (ae *AntiEntropy[D]) Start() {
	ae.mu.Lock()
	defer ae.mu.Unlock()
	if ae.running {
		return
	}
	ae.running = true
	go ae.loop()
	log.Printf("ANTI-ENTROPY: event=started fanout=%d interval=%v", ae.fanout, ae.interval)
}

// Stop halts the anti-entropy loop.
func (ae *AntiEntropy[D]) Stop() {
	ae.mu.Lock()
	defer ae.mu.Unlock()
	if !ae.running {
		return
	}
	ae.running = false
	close(ae.stopCh)
	log.Printf("ANTI-ENTROPY: event=stopped")
}

func (ae *AntiEntropy[D]) loop() {
	ticker := time.NewTicker(ae.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), ae.interval)
			if err := ae.runRound(ctx); err != nil {
				log.Printf("ANTI-ENTROPY: event=round_error err=%v", err)
			}
			cancel()
		case <-ae.stopCh:
			return
		}
	}
}

// runRound contacts up to fanout random peers and pulls their events,
// preferring peers not already contacted earlier in this interval. If every
// known peer was recently contacted, it falls back to the full peer list
// rather than skipping the round entirely.
func (ae *AntiEntropy[D]) runRound(ctx context.Context) error {
	peerURLs := ae.peers.PeerAddrs()
	if len(peerURLs) == 0 {
		return nil
	}

	now := time.Now()
	candidates := make([]string, 0, len(peerURLs))
	for _, url := range peerURLs {
		if last, ok := ae.recentlyContacted.Get(url); !ok || now.Sub(last.(time.Time)) >= ae.interval {
			candidates = append(candidates, url)
		}
	}
	if len(candidates) == 0 {
		candidates = peerURLs
	}

	targets := selectRandomPeers(candidates, ae.fanout)

	var result *multierror.Error
	successCount := 0

	for _, url := range targets {
		// Peer addresses come from membership (SWIM), which has no notion of
		// the numeric ReplicaID the replicator uses for Observed bookkeeping,
		// so each round starts from unknownPeer; the Replicate request's VTime
		// filter still excludes events local has already seen.
		if err := transport.ConnectRemote[D](ctx, ae.client, url, ae.replica, unknownPeer); err != nil {
			result = multierror.Append(result, fmt.Errorf("peer %s: %w", url, err))
			continue
		}
		ae.recentlyContacted.Add(url, time.Now())
		successCount++
	}

	ae.mu.Lock()
	ae.roundCount++
	ae.successCount += int64(successCount)
	if result != nil {
		ae.errorCount += int64(result.Len())
	}
	ae.mu.Unlock()

	log.Printf("ANTI-ENTROPY: event=round_done peers=%d/%d", successCount, len(targets))

	if result != nil {
		return result
	}
	return nil
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

// Stats reports anti-entropy round counters.
func (ae *AntiEntropy[D]) Stats() map[string]interface{} {
	ae.mu.RLock()
	defer ae.mu.RUnlock()
	return map[string]interface{}{
		"running":      ae.running,
		"fanout":       ae.fanout,
		"rounds":       ae.roundCount,
		"peer_success": ae.successCount,
		"peer_errors":  ae.errorCount,
		"cache_size":   ae.recentlyContacted.Len(),
		"known_peers":  ae.peers.Count(),
	}
}

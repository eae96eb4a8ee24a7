// Package membership provides cluster peer discovery over SWIM, giving the
// gossip layer a live set of peers to pick fanout targets from without a
// central registry.
package membership

import (
	"fmt"
	"log"
	"time"

	"github.com/hashicorp/memberlist"
)

// Events implements memberlist.EventDelegate for join/leave/update logging.
type Events struct {
	replicaName string
}

func (e *Events) NotifyJoin(n *memberlist.Node) {
	if n.Name != e.replicaName {
		log.Printf("MEMBERSHIP: event=join node=%s addr=%s", n.Name, n.Address())
	}
}

func (e *Events) NotifyLeave(n *memberlist.Node) {
	log.Printf("MEMBERSHIP: event=leave node=%s", n.Name)
}

func (e *Events) NotifyUpdate(n *memberlist.Node) {
	log.Printf("MEMBERSHIP: event=update node=%s", n.Name)
}

// Config configures a Manager.
type Config struct {
	ReplicaName   string   // unique name of this replica in the cluster (e.g. "replica-1")
	BindAddr      string   // address to bind the SWIM protocol to
	BindPort      int      // SWIM gossip port
	TransportPort int      // port the replication transport (HTTP) listens on
	Seeds         []string // addresses of existing members to join through
}

// Manager wraps a memberlist instance and exposes the subset of its surface
// the replication and gossip layers need: a live peer list and transport
// addresses to send to.
type Manager struct {
	ml            *memberlist.Memberlist
	replicaName   string
	transportPort int
}

// New creates a Manager, binds the local SWIM agent, and attempts to join
// the given seeds.
func New(cfg Config) (*Manager, error) {
	mlCfg := memberlist.DefaultLANConfig()
	mlCfg.Name = cfg.ReplicaName
	mlCfg.BindAddr = cfg.BindAddr
	mlCfg.BindPort = cfg.BindPort
	mlCfg.Events = &Events{replicaName: cfg.ReplicaName}

	// Tuned for a small, bursty cluster, starting from memberlist's LAN defaults:
	// less probing overhead, more tolerance for slow replicas.
	mlCfg.PushPullInterval = 30 * time.Second
	mlCfg.ProbeTimeout = 1 * time.Second
	mlCfg.ProbeInterval = 5 * time.Second

	ml, err := memberlist.Create(mlCfg)
	if err != nil {
		return nil, fmt.Errorf("membership: create: %w", err)
	}

	m := &Manager{
		ml:            ml,
		replicaName:   cfg.ReplicaName,
		transportPort: cfg.TransportPort,
	}

	if len(cfg.Seeds) > 0 {
		seeds := make([]string, 0, len(cfg.Seeds))
		for _, s := range cfg.Seeds {
			if s != cfg.ReplicaName {
				seeds = append(seeds, s)
			}
		}
		if len(seeds) > 0 {
			n, err := ml.Join(seeds)
			if err != nil {
				log.Printf("MEMBERSHIP: warn=join_failed seeds=%v err=%v", seeds, err)
			} else {
				log.Printf("MEMBERSHIP: joined=%d seeds=%v", n, seeds)
			}
		}
	}

	return m, nil
}

// Peers returns the live members of the cluster, excluding the local node.
func (m *Manager) Peers() []*memberlist.Node {
	all := m.ml.Members()
	peers := make([]*memberlist.Node, 0, len(all))
	for _, n := range all {
		if n.Name != m.replicaName {
			peers = append(peers, n)
		}
	}
	return peers
}

// PeerAddrs returns the transport (HTTP) base URL of every live peer.
func (m *Manager) PeerAddrs() []string {
	peers := m.Peers()
	addrs := make([]string, 0, len(peers))
	for _, n := range peers {
		addrs = append(addrs, fmt.Sprintf("http://%s:%d", n.Addr.String(), m.transportPort))
	}
	return addrs
}

// Count returns the number of live members, including the local node.
func (m *Manager) Count() int {
	return m.ml.NumMembers()
}

func (m *Manager) ReplicaName() string {
	return m.replicaName
}

func (m *Manager) LocalAddr() string {
	return m.ml.LocalNode().Address()
}

// Join attempts to add a single additional node to the cluster.
func (m *Manager) Join(addr string) error {
	n, err := m.ml.Join([]string{addr})
	if err != nil {
		return fmt.Errorf("membership: join %s: %w", addr, err)
	}
	log.Printf("MEMBERSHIP: joined=%d via=%s", n, addr)
	return nil
}

// Leave gracefully removes the local node from the cluster.
func (m *Manager) Leave() error {
	if err := m.ml.Leave(5 * time.Second); err != nil {
		return fmt.Errorf("membership: leave: %w", err)
	}
	return nil
}

// Shutdown tears down the local SWIM agent without notifying peers.
func (m *Manager) Shutdown() error {
	if err := m.ml.Shutdown(); err != nil {
		return fmt.Errorf("membership: shutdown: %w", err)
	}
	return nil
}

// Stats reports membership counters in the same shape the rest of the
// system exposes operational stats in.
func (m *Manager) Stats() map[string]interface{} {
	return map[string]interface{}{
		"replica_name":  m.replicaName,
		"total_members": m.ml.NumMembers(),
		"live_peers":    len(m.Peers()),
		"local_addr":    m.ml.LocalNode().Address(),
	}
}

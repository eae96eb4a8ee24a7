// Package config centralizes the runtime configuration for a replikit
// replica, the same role the teacher's internal/config played for drones.
package config

import "time"

// ReplicaConfig is the centralized configuration for one replica process.
type ReplicaConfig struct {
	// Identity
	ReplicaName string `json:"replica_name"`

	// Networking
	SwimPort      int    `json:"swim_port"`      // SWIM membership gossip port
	TransportPort int    `json:"transport_port"` // HTTP replication transport port
	BindAddr      string `json:"bind_addr"`
	Seeds         []string `json:"seeds"` // existing cluster members to join through

	// CRDT selection
	CrdtKind string `json:"crdt_kind"` // "counter", "lwwregister", "mvregister", "orset", "lseq", "rga"

	// Anti-entropy
	Fanout              int           `json:"fanout"`                // peers contacted per anti-entropy round
	AntiEntropyInterval time.Duration `json:"anti_entropy_interval"` // period between rounds

	// Durability
	StoreKind string `json:"store_kind"` // "memory" or "file"
	StoreDir  string `json:"store_dir"`  // directory for the file store

	// Timeouts
	TransportTimeout time.Duration `json:"transport_timeout"` // outbound HTTP call timeout
}

// DefaultConfig returns the baseline configuration a replica starts from
// before command-line flags are applied.
func DefaultConfig() *ReplicaConfig {
	return &ReplicaConfig{
		ReplicaName:         "replica-1",
		SwimPort:            7946,
		TransportPort:       8080,
		BindAddr:            "0.0.0.0",
		CrdtKind:            "counter",
		Fanout:              3,
		AntiEntropyInterval: 30 * time.Second,
		StoreKind:           "memory",
		StoreDir:            "./replikit-data",
		TransportTimeout:    5 * time.Second,
	}
}

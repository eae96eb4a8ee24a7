// Command replikitd runs a single replica: an operation-based CRDT driven
// by a replication.Replicator, reachable over HTTP, discovering peers over
// SWIM and pulling their updates on a periodic anti-entropy schedule.
// Adapted from the teacher's drone main(): same flag/signal/HTTP-handler
// shape, generalized from one fixed domain CRDT to any of this module's
// op-based CRDTs.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crdtlab/replikit/internal/config"
	"github.com/crdtlab/replikit/internal/telemetry"
	"github.com/crdtlab/replikit/pkg/gossip"
	"github.com/crdtlab/replikit/pkg/membership"
	"github.com/crdtlab/replikit/pkg/opcrdt"
	"github.com/crdtlab/replikit/pkg/replication"
	"github.com/crdtlab/replikit/pkg/store/filestore"
	"github.com/crdtlab/replikit/pkg/store/memstore"
	"github.com/crdtlab/replikit/pkg/transport"
)

var startTime = time.Now()

func main() {
	var (
		replicaName   = flag.String("id", "replica-1", "Unique name of this replica")
		replicaIDFlag = flag.Uint64("replica-id", 1, "Numeric replica id used in the vector clock")
		crdtKind      = flag.String("crdt", "counter", "CRDT kind: counter, lwwregister, mvregister, orset, lseq, rga")
		bindAddr      = flag.String("bind", "0.0.0.0", "Bind address")
		swimPort      = flag.Int("swim-port", 7946, "SWIM membership port")
		transportPort = flag.Int("transport-port", 8080, "HTTP replication transport port")
		fanout        = flag.Int("fanout", 3, "Number of peers contacted per anti-entropy round")
		antiEntropyMs = flag.Int("anti-entropy-ms", 30000, "Anti-entropy round interval in milliseconds (-1 to disable)")
		storeKind     = flag.String("store", "memory", "Event store: memory or file")
		storeDir      = flag.String("store-dir", "./replikit-data", "Directory for the file store")
		seeds         = flag.String("seeds", "", "Comma-separated list of existing SWIM members to join through")
		showUsage     = flag.Bool("help", false, "Show usage help")
	)
	flag.Parse()

	if *showUsage {
		printUsage()
		return
	}

	cfg := config.DefaultConfig()
	cfg.ReplicaName = *replicaName
	cfg.CrdtKind = *crdtKind
	cfg.BindAddr = *bindAddr
	cfg.SwimPort = *swimPort
	cfg.TransportPort = *transportPort
	cfg.Fanout = *fanout
	cfg.AntiEntropyInterval = time.Duration(*antiEntropyMs) * time.Millisecond
	cfg.StoreKind = *storeKind
	cfg.StoreDir = *storeDir
	if *seeds != "" {
		cfg.Seeds = splitCSV(*seeds)
	}

	replicaID := replication.ReplicaID(*replicaIDFlag)

	var err error
	switch cfg.CrdtKind {
	case "counter":
		err = run(cfg, replicaID, opcrdt.NewCounter(), decodeCounterCommand)
	case "lwwregister":
		err = run(cfg, replicaID, opcrdt.NewLWWRegister[string](replicaID), decodeRegisterCommand)
	case "mvregister":
		err = run(cfg, replicaID, opcrdt.NewMVRegister[string](), decodeRegisterCommand)
	case "orset":
		err = run(cfg, replicaID, opcrdt.NewORSet[string](), decodeORSetCommand)
	case "lseq":
		err = run(cfg, replicaID, opcrdt.NewLSeq[string](replicaID), decodeLSeqCommand)
	case "rga":
		err = run(cfg, replicaID, opcrdt.NewRGA[string](replicaID), decodeRGACommand)
	default:
		err = fmt.Errorf("unknown crdt kind %q", cfg.CrdtKind)
	}

	if err != nil {
		log.Fatalf("replikitd: %v", err)
	}
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

// run wires together the store, replicator, membership, transport server,
// and anti-entropy loop for one CRDT type D, then blocks serving HTTP until
// a shutdown signal arrives.
func run[D any](cfg *config.ReplicaConfig, replicaID replication.ReplicaID, crdt replication.Crdt[D], decodeCommand func(*http.Request) (any, error)) error {
	ctx := context.Background()
	logger := telemetry.NewLogger(cfg.ReplicaName)
	metrics, err := telemetry.NewMetrics(cfg.ReplicaName)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	store, err := openStore[D](cfg)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}

	replica, err := replication.NewReplicator(ctx, replicaID, crdt, store)
	if err != nil {
		return fmt.Errorf("replicator: %w", err)
	}

	members, err := membership.New(membership.Config{
		ReplicaName:   cfg.ReplicaName,
		BindAddr:      cfg.BindAddr,
		BindPort:      cfg.SwimPort,
		TransportPort: cfg.TransportPort,
		Seeds:         cfg.Seeds,
	})
	if err != nil {
		return fmt.Errorf("membership: %w", err)
	}

	client := transport.NewClient[D](cfg.TransportTimeout)
	server := transport.NewServer[D](replica)

	var antiEntropy *gossip.AntiEntropy[D]
	if cfg.AntiEntropyInterval > 0 {
		antiEntropy = gossip.NewAntiEntropy(replicaID, replica, client, members, cfg.Fanout, cfg.AntiEntropyInterval)
	}

	mux := http.NewServeMux()
	mux.Handle("/protocol", server.Handler())
	mux.HandleFunc("/command", commandHandler(ctx, replica, decodeCommand, logger, metrics))
	mux.HandleFunc("/query", queryHandler(replica))
	mux.HandleFunc("/stats", statsHandler(members, antiEntropy))

	httpServer := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.TransportPort), Handler: mux}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutdown signal received, stopping...")

		if antiEntropy != nil {
			fmt.Println("Stopping anti-entropy...")
			antiEntropy.Stop()
		}

		fmt.Println("Leaving cluster...")
		if err := members.Leave(); err != nil {
			fmt.Printf("Error leaving cluster: %v\n", err)
		}
		if err := members.Shutdown(); err != nil {
			fmt.Printf("Error shutting down membership: %v\n", err)
		}

		fmt.Println("Stopping HTTP server...")
		if err := httpServer.Shutdown(context.Background()); err != nil {
			fmt.Printf("Error stopping HTTP server: %v\n", err)
		}

		os.Exit(0)
	}()

	fmt.Printf("=== replikit %s ===\n", cfg.ReplicaName)
	fmt.Printf("CRDT: %s\n", cfg.CrdtKind)
	fmt.Printf("SWIM: %s:%d\n", cfg.BindAddr, cfg.SwimPort)
	fmt.Printf("Transport: http://%s:%d\n", cfg.BindAddr, cfg.TransportPort)
	fmt.Printf("Anti-entropy: fanout=%d interval=%v\n", cfg.Fanout, cfg.AntiEntropyInterval)
	fmt.Println("Starting...")

	if antiEntropy != nil {
		antiEntropy.Start()
	}

	return httpServer.ListenAndServe()
}

func openStore[D any](cfg *config.ReplicaConfig) (replication.Store[D], error) {
	switch cfg.StoreKind {
	case "file":
		return filestore.Open[D](cfg.StoreDir)
	default:
		return memstore.New[D](), nil
	}
}

func commandHandler[D any](ctx context.Context, replica *replication.Replicator[D], decode func(*http.Request) (any, error), logger *telemetry.Logger, m *telemetry.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		cmd, err := decode(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, err := replica.Send(r.Context(), replication.CommandMsg[D](cmd)); err != nil {
			logger.LogError("command", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		m.IncrCommand(fmt.Sprintf("%T", cmd))
		logger.LogCommandApplied(fmt.Sprintf("%T", cmd), 0)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"status": "applied"})
	}
}

func queryHandler[D any](replica *replication.Replicator[D]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"value": replica.Query()})
	}
}

func statsHandler[D any](members *membership.Manager, ae *gossip.AntiEntropy[D]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		stats := map[string]interface{}{
			"membership": members.Stats(),
			"uptime":     time.Since(startTime).Seconds(),
		}
		if ae != nil {
			stats["anti_entropy"] = ae.Stats()
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
	}
}

func decodeCounterCommand(r *http.Request) (any, error) {
	var body struct {
		Delta int64 `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body.Delta, nil
}

func decodeRegisterCommand(r *http.Request) (any, error) {
	var body struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}
	return &body.Value, nil
}

func decodeORSetCommand(r *http.Request) (any, error) {
	var body struct {
		Kind  string `json:"kind"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}
	kind := opcrdt.ORSetAdd
	if body.Kind == "remove" {
		kind = opcrdt.ORSetRemove
	}
	return opcrdt.ORSetCmd[string]{Kind: kind, Value: body.Value}, nil
}

func decodeLSeqCommand(r *http.Request) (any, error) {
	var body struct {
		Kind  string `json:"kind"`
		Index uint32 `json:"index"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}
	kind := opcrdt.LSeqInsert
	if body.Kind == "remove" {
		kind = opcrdt.LSeqRemoveAt
	}
	return opcrdt.LSeqCmd[string]{Kind: kind, Index: body.Index, Value: body.Value}, nil
}

func decodeRGACommand(r *http.Request) (any, error) {
	var body struct {
		Kind  string `json:"kind"`
		Index uint32 `json:"index"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}
	kind := opcrdt.RGAInsert
	if body.Kind == "remove" {
		kind = opcrdt.RGARemoveAt
	}
	return opcrdt.RGACmd[string]{Kind: kind, Index: body.Index, Value: body.Value}, nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `
=== replikit replica ===

USAGE:
  %s [options]

EXAMPLES:
  %s -id=replica-1 -crdt=counter
  %s -id=replica-2 -crdt=orset -seeds=127.0.0.1:7946
  %s -id=replica-3 -store=file -store-dir=/var/lib/replikit

OPTIONS:
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0])

	flag.PrintDefaults()

	fmt.Fprintf(os.Stderr, `
ENDPOINTS (HTTP):
  POST /protocol  - replication protocol messages from peers
  POST /command   - apply a command to the local CRDT
  GET  /query     - current observable value
  GET  /stats     - membership and anti-entropy statistics
`)
}

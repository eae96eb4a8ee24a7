// Package telemetry provides structured logging and counters for a
// replikit replica, generalizing the teacher's DroneLogger from
// sensor/delta events to replication/membership/anti-entropy events.
package telemetry

import (
	"fmt"
	"log"
	"os"
	"time"

	metrics "github.com/armon/go-metrics"
)

// Logger emits structured, greppable log lines prefixed with the replica's
// own name, the same convention as the teacher's per-drone logger.
type Logger struct {
	replicaName string
	logger      *log.Logger
}

func NewLogger(replicaName string) *Logger {
	logger := log.New(os.Stdout, fmt.Sprintf("[%s] ", replicaName), log.LstdFlags|log.Lmicroseconds)
	return &Logger{replicaName: replicaName, logger: logger}
}

func (l *Logger) LogCommandApplied(kind string, seq uint64) {
	l.logger.Printf("COMMAND_APPLIED: kind=%s seq=%d applied_at=%d", kind, seq, time.Now().UnixMilli())
}

func (l *Logger) LogReplicationStarted(peer string) {
	l.logger.Printf("REPLICATION_STARTED: peer=%s started_at=%d", peer, time.Now().UnixMilli())
}

func (l *Logger) LogReplicationDone(peer string, eventCount int, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	l.logger.Printf("REPLICATION_DONE: peer=%s events=%d status=%s done_at=%d",
		peer, eventCount, status, time.Now().UnixMilli())
}

func (l *Logger) LogAntiEntropyRound(peerCount, successCount int) {
	l.logger.Printf("ANTI_ENTROPY_ROUND: peers=%d succeeded=%d round_at=%d",
		peerCount, successCount, time.Now().UnixMilli())
}

func (l *Logger) LogPeerJoin(peer string) {
	l.logger.Printf("PEER_JOIN: peer=%s joined_at=%d", peer, time.Now().UnixMilli())
}

func (l *Logger) LogPeerLeave(peer string) {
	l.logger.Printf("PEER_LEAVE: peer=%s left_at=%d", peer, time.Now().UnixMilli())
}

func (l *Logger) LogError(operation string, err error) {
	l.logger.Printf("ERROR: operation=%s error=%s occurred_at=%d", operation, err.Error(), time.Now().UnixMilli())
}

func (l *Logger) LogSnapshot(state interface{}) {
	l.logger.Printf("STATE_SNAPSHOT: value=%v snapshot_at=%d", state, time.Now().UnixMilli())
}

// Metrics wraps an armon/go-metrics sink with the counters a replica's
// subsystems emit, mirroring the GetStats()-style maps the teacher exposed
// per subsystem but as time-series-capable counters/samples.
type Metrics struct {
	sink *metrics.InmemSink
	m    *metrics.Metrics
}

// NewMetrics builds an in-memory metrics sink retaining 1-minute buckets
// for the last 10 minutes, enough for an operator /stats endpoint to report
// rolling throughput without an external time-series backend.
func NewMetrics(replicaName string) (*Metrics, error) {
	sink := metrics.NewInmemSink(time.Minute, 10*time.Minute)
	cfg := metrics.DefaultConfig(replicaName)
	cfg.EnableHostname = false
	m, err := metrics.New(cfg, sink)
	if err != nil {
		return nil, err
	}
	return &Metrics{sink: sink, m: m}, nil
}

func (m *Metrics) IncrCommand(kind string) {
	m.m.IncrCounter([]string{"replikit", "command", kind}, 1)
}

func (m *Metrics) IncrReplicationRound(ok bool) {
	if ok {
		m.m.IncrCounter([]string{"replikit", "anti_entropy", "success"}, 1)
	} else {
		m.m.IncrCounter([]string{"replikit", "anti_entropy", "error"}, 1)
	}
}

func (m *Metrics) SampleReplicationLatency(d time.Duration) {
	m.m.AddSample([]string{"replikit", "replication", "latency_ms"}, float32(d.Milliseconds()))
}

func (m *Metrics) SetGauge(name string, value float32) {
	m.m.SetGauge([]string{"replikit", name}, value)
}

// Snapshot returns the current in-memory metrics data, suitable for
// rendering from a /stats HTTP handler.
func (m *Metrics) Snapshot() []metrics.IntervalMetrics {
	data, err := m.sink.Data()
	if err != nil {
		return nil
	}
	out := make([]metrics.IntervalMetrics, 0, len(data))
	for _, d := range data {
		out = append(out, *d)
	}
	return out
}

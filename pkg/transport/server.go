// Package transport carries replication.Protocol messages between replicas
// over plain HTTP, playing the role the teacher's pkg/gossip TCP sender and
// server played for delta messages.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/crdtlab/replikit/pkg/replication"
)

// Replicator is the subset of replication.Replicator[D] the transport needs,
// so Server doesn't have to depend on the concrete type beyond D.
type Replicator[D any] interface {
	Send(ctx context.Context, msg replication.Protocol[D]) (replication.Protocol[D], error)
}

// Server exposes a single replica's Send over HTTP POST /protocol. A request
// body is a JSON-encoded replication.Protocol[D]; the response body is the
// reply Protocol[D] Send() produced.
type Server[D any] struct {
	replica Replicator[D]
}

func NewServer[D any](replica Replicator[D]) *Server[D] {
	return &Server[D]{replica: replica}
}

func (s *Server[D]) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/protocol", s.handleProtocol)
	return mux
}

func (s *Server[D]) handleProtocol(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reqID := r.Header.Get("X-Request-Id")

	var msg replication.Protocol[D]
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	reply, err := s.replica.Send(r.Context(), msg)
	if err != nil {
		log.Printf("TRANSPORT: event=handle_error request_id=%s err=%v", reqID, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-Id", reqID)
	if err := json.NewEncoder(w).Encode(reply); err != nil {
		log.Printf("TRANSPORT: event=encode_error request_id=%s err=%v", reqID, err)
	}
}

// ListenAndServe starts the HTTP server for this replica. It blocks until
// the context is cancelled or the server fails.
func (s *Server[D]) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("transport: serve: %w", err)
		}
		return nil
	}
}

package transport

import (
	"context"

	"github.com/crdtlab/replikit/pkg/replication"
)

// ConnectRemote drives the Connect -> Replicate -> Replicated handshake
// against a peer reachable over HTTP, mirroring replication.Connect's
// from.Send(ConnectMsg(to.ID())): Connect itself is processed locally, by
// local, to produce the initial Replicate request — it is never put on the
// wire. Only the Replicate/Replicated exchange that follows actually talks
// to the peer, via driveRemoteReplicate. peerID identifies the remote for
// Observed bookkeeping (how much of its stream local has already pulled);
// the causal VTime filter in the resulting Replicate request is what
// actually excludes already-seen events, so an unknown peerID only costs
// an extra full rescan on the peer's side, not a correctness break.
func ConnectRemote[D any](ctx context.Context, client *Client[D], peerURL string, local Replicator[D], peerID replication.ReplicaID) error {
	initial, err := local.Send(ctx, replication.ConnectMsg[D](peerID))
	if err != nil {
		return err
	}
	return driveRemoteReplicate(ctx, client, peerURL, local, initial)
}

// ReplicateRemoteFrom starts a replay directly against a peer over HTTP,
// skipping the Connect handshake, mirroring replication.ReplicateFrom.
func ReplicateRemoteFrom[D any](ctx context.Context, client *Client[D], peerURL string, local Replicator[D], observedFromPeer uint64, filter replication.VTime, selfID replication.ReplicaID) error {
	initial := replication.ReplicateMsg[D](replication.Replicate{
		SeqNr:    observedFromPeer + 1,
		MaxCount: replication.DefaultReplicateBatch,
		Filter:   filter,
		ReplyTo:  selfID,
	})
	return driveRemoteReplicate(ctx, client, peerURL, local, initial)
}

func driveRemoteReplicate[D any](ctx context.Context, client *Client[D], peerURL string, local Replicator[D], initial replication.Protocol[D]) error {
	msg := initial
	for {
		replicatedResponse, err := client.Send(ctx, peerURL, msg)
		if err != nil {
			return err
		}
		msg, err = local.Send(ctx, replicatedResponse)
		if err != nil {
			return err
		}
		if msg.Kind == replication.KindNoop {
			return nil
		}
	}
}

package replication

import "context"

// DefaultReplicateBatch bounds how many events a single Replicate round
// trip asks for, mirroring the original's hardcoded max_count of 100.
const DefaultReplicateBatch = 100

// Replicator drives one replica's local state machine: applying locally
// issued commands, answering replication requests from peers, and folding
// in events peers send back. Grounded on sypytkowski-commutative's
// Replicator<C, Db>.
type Replicator[D any] struct {
	store Store[D]
	state Snapshot[D]
}

// NewReplicator restores a Replicator from its store: the last snapshot
// (or a fresh zero state seeded with id and crdt), replayed forward over
// every event saved after that snapshot's sequence.
func NewReplicator[D any](ctx context.Context, id ReplicaID, crdt Crdt[D], store Store[D]) (*Replicator[D], error) {
	state := Snapshot[D]{
		ID:       id,
		Version:  NewVTime(),
		Observed: make(map[ReplicaID]uint64),
		State:    crdt,
	}

	if snapshot, ok, err := store.LoadSnapshot(ctx); err != nil {
		return nil, err
	} else if ok {
		state = *snapshot
	}

	events, err := store.LoadEvents(ctx, state.Seq+1)
	if err != nil {
		return nil, err
	}
	for _, event := range events {
		if event.LocalSeq > state.Seq {
			state.Seq = event.LocalSeq
		}
		state.Version.Merge(event.Version)
		state.Observed[event.Origin] = event.OriginSeq
		state.State.Effect(event)
	}

	return &Replicator[D]{store: store, state: state}, nil
}

// Query returns the CRDT's current observable value.
func (r *Replicator[D]) Query() any {
	return r.state.State.Query()
}

// ID returns this replicator's own replica identity.
func (r *Replicator[D]) ID() ReplicaID {
	return r.state.ID
}

// Observed returns the highest sequence number this replicator has pulled
// from peer so far, for driving a replay handshake from the outside (e.g.
// over a network transport rather than an in-process Connect/ReplicateFrom).
func (r *Replicator[D]) Observed(peer ReplicaID) uint64 {
	return r.state.Observed[peer]
}

// Version returns a snapshot of this replicator's current version vector.
func (r *Replicator[D]) Version() VTime {
	return r.state.Version.Clone()
}

// Send feeds msg through the state machine and returns the reply to send
// back (KindNoop when there is nothing further to do).
func (r *Replicator[D]) Send(ctx context.Context, msg Protocol[D]) (Protocol[D], error) {
	switch msg.Kind {
	case KindNoop:
		return NoopMsg[D](), nil

	case KindCommand:
		seq := r.state.Seq + 1
		version := r.state.Version.Clone()
		version.Increment(r.state.ID)

		data := r.state.State.Prepare(msg.Command)
		event := Event[D]{
			Origin:    r.state.ID,
			OriginSeq: seq,
			LocalSeq:  seq,
			Version:   version.Clone(),
			Data:      data,
		}

		if err := r.store.SaveEvents(ctx, []Event[D]{event}); err != nil {
			return Protocol[D]{}, err
		}
		r.state.Seq = seq
		r.state.Version = version
		r.state.State.Effect(event)
		return NoopMsg[D](), nil

	case KindConnect:
		seqNr := r.state.Observed[msg.Connect.ReplicaID] + 1
		return ReplicateMsg[D](Replicate{
			SeqNr:    seqNr,
			MaxCount: DefaultReplicateBatch,
			Filter:   r.state.Version.Clone(),
			ReplyTo:  r.state.ID,
		}), nil

	case KindReplicate:
		replicated, err := r.replay(ctx, r.state.ID, msg.Replicate.Filter, msg.Replicate.SeqNr, msg.Replicate.MaxCount)
		if err != nil {
			return Protocol[D]{}, err
		}
		return ReplicatedMsg(replicated), nil

	case KindReplicated:
		return r.applyReplicated(ctx, *msg.Replicated)
	}

	return NoopMsg[D](), nil
}

func (r *Replicator[D]) applyReplicated(ctx context.Context, rep Replicated[D]) (Protocol[D], error) {
	if len(rep.Events) == 0 {
		if rep.ToSeqNr > r.state.Observed[rep.From] {
			prevObserved := r.state.Observed[rep.From]
			r.state.Observed[rep.From] = rep.ToSeqNr
			if err := r.store.SaveSnapshot(ctx, r.state.clone()); err != nil {
				r.state.Observed[rep.From] = prevObserved
				return Protocol[D]{}, err
			}
		}
		return NoopMsg[D](), nil
	}

	prev := r.state.clone()
	remoteSeqNr := r.state.Observed[rep.From]
	toSave := make([]Event[D], 0, len(rep.Events))

	for _, e := range rep.Events {
		if !r.state.IsUnseen(rep.From, e) {
			continue
		}
		r.state.Seq++
		r.state.Version.Merge(e.Version)
		if e.LocalSeq > remoteSeqNr {
			remoteSeqNr = e.LocalSeq
		}

		newEvent := e
		newEvent.LocalSeq = r.state.Seq

		r.state.State.Effect(e)
		r.state.Observed[rep.From] = remoteSeqNr
		toSave = append(toSave, newEvent)
	}

	if err := r.store.SaveEvents(ctx, toSave); err != nil {
		r.state = prev
		return Protocol[D]{}, err
	}

	return ReplicateMsg[D](Replicate{
		SeqNr:    rep.ToSeqNr + 1,
		MaxCount: DefaultReplicateBatch,
		Filter:   r.state.Version.Clone(),
		ReplyTo:  r.state.ID,
	}), nil
}

// replay loads up to count events at or after seqNr that filter hasn't
// already observed; replicaID is stamped as the batch's From (Send passes
// this replicator's own id).
func (r *Replicator[D]) replay(ctx context.Context, replicaID ReplicaID, filter VTime, seqNr uint64, count uint64) (Replicated[D], error) {
	all, err := r.store.LoadEvents(ctx, seqNr)
	if err != nil {
		return Replicated[D]{}, err
	}

	events := make([]Event[D], 0, count)
	var lastSeqNr uint64
	var i uint64
	for _, e := range all {
		if e.LocalSeq > lastSeqNr {
			lastSeqNr = e.LocalSeq
		}
		switch e.Version.Compare(filter) {
		case Greater, Concurrent:
			events = append(events, e)
			i++
		}
		if i >= count {
			break
		}
	}

	return Replicated[D]{From: replicaID, ToSeqNr: lastSeqNr, Events: events}, nil
}

// Connect drives the full Connect -> Replicate -> Replicated handshake
// between two in-process replicators until the replay is caught up.
// Grounded on lib.rs's free functions connect/replicate/replicate_impl.
func Connect[D any](ctx context.Context, from, to *Replicator[D]) error {
	initial, err := from.Send(ctx, ConnectMsg[D](to.ID()))
	if err != nil {
		return err
	}
	return driveReplicate(ctx, from, to, initial)
}

// ReplicateFrom starts a replay directly, without the Connect handshake.
func ReplicateFrom[D any](ctx context.Context, replica, from *Replicator[D]) error {
	initial := ReplicateMsg[D](Replicate{
		SeqNr:    replica.state.Observed[from.state.ID] + 1,
		MaxCount: DefaultReplicateBatch,
		Filter:   replica.state.Version.Clone(),
		ReplyTo:  replica.state.ID,
	})
	return driveReplicate(ctx, replica, from, initial)
}

func driveReplicate[D any](ctx context.Context, replica, from *Replicator[D], initial Protocol[D]) error {
	msg := initial
	for {
		replicatedResponse, err := from.Send(ctx, msg)
		if err != nil {
			return err
		}
		msg, err = replica.Send(ctx, replicatedResponse)
		if err != nil {
			return err
		}
		if msg.Kind == KindNoop {
			return nil
		}
	}
}

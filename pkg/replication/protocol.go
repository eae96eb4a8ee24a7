package replication

// Kind tags which arm of a Protocol envelope is populated.
type Kind int

const (
	KindNoop Kind = iota
	KindCommand
	KindConnect
	KindReplicate
	KindReplicated
)

// Connect asks the receiver to start pulling events from ReplicaID: it
// answers with the Replicate request to send to that peer.
type Connect struct {
	ReplicaID ReplicaID
}

// Replicate asks for events from SeqNr onward, up to MaxCount of them, that
// the sender (ReplyTo) has not already observed according to Filter.
type Replicate struct {
	SeqNr    uint64
	MaxCount uint64
	Filter   VTime
	ReplyTo  ReplicaID
}

// Replicated carries a batch of events from From, numbered up to
// ToSeqNr in From's own local sequence. An empty Events slice signals the
// replay is caught up.
type Replicated[D any] struct {
	From     ReplicaID
	ToSeqNr  uint64
	Events   []Event[D]
}

// Protocol is the message envelope exchanged between two Replicators.
// Command carries an untyped command value bound to a concrete Crdt's Cmd
// type; Prepare on the receiving Replicator is responsible for asserting
// its concrete type.
type Protocol[D any] struct {
	Kind       Kind
	Command    any
	Connect    *Connect
	Replicate  *Replicate
	Replicated *Replicated[D]
}

func NoopMsg[D any]() Protocol[D] {
	return Protocol[D]{Kind: KindNoop}
}

func CommandMsg[D any](cmd any) Protocol[D] {
	return Protocol[D]{Kind: KindCommand, Command: cmd}
}

func ConnectMsg[D any](replica ReplicaID) Protocol[D] {
	return Protocol[D]{Kind: KindConnect, Connect: &Connect{ReplicaID: replica}}
}

func ReplicateMsg[D any](r Replicate) Protocol[D] {
	return Protocol[D]{Kind: KindReplicate, Replicate: &r}
}

func ReplicatedMsg[D any](r Replicated[D]) Protocol[D] {
	return Protocol[D]{Kind: KindReplicated, Replicated: &r}
}

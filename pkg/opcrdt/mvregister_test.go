package opcrdt

import (
	"context"
	"testing"

	"github.com/crdtlab/replikit/pkg/replication"
)

func TestMVRegisterKeepsConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	alice, _ := replication.NewReplicator[*string](ctx, 0, NewMVRegister[string](), newMemStore[*string]())
	bob, _ := replication.NewReplicator[*string](ctx, 1, NewMVRegister[string](), newMemStore[*string]())

	nice := "nice"
	nah := "nah"
	if _, err := alice.Send(ctx, replication.CommandMsg[*string](&nice)); err != nil {
		t.Fatalf("alice send: %v", err)
	}
	if _, err := bob.Send(ctx, replication.CommandMsg[*string](&nah)); err != nil {
		t.Fatalf("bob send: %v", err)
	}

	if err := replication.ReplicateFrom[*string](ctx, alice, bob); err != nil {
		t.Fatalf("replicate a<-b: %v", err)
	}
	if err := replication.ReplicateFrom[*string](ctx, bob, alice); err != nil {
		t.Fatalf("replicate b<-a: %v", err)
	}

	aliceValue := alice.Query().([]string)
	bobValue := bob.Query().([]string)

	if len(aliceValue) != 2 {
		t.Fatalf("expected both concurrent writes retained, got %v", aliceValue)
	}
	if !sameSet(aliceValue, bobValue) {
		t.Fatalf("replicas diverged: %v vs %v", aliceValue, bobValue)
	}
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int)
	for _, v := range a {
		seen[v]++
	}
	for _, v := range b {
		seen[v]--
	}
	for _, c := range seen {
		if c != 0 {
			return false
		}
	}
	return true
}

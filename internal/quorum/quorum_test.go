package quorum

import (
	"testing"

	"kvstore/internal/address"
	"kvstore/internal/ring"
	"kvstore/internal/wire"
)

func triple() []ring.ReplicaAssignment {
	return []ring.ReplicaAssignment{
		{Addr: address.New(1, 0), Role: wire.Primary},
		{Addr: address.New(2, 0), Role: wire.Secondary},
		{Addr: address.New(3, 0), Role: wire.Tertiary},
	}
}

func TestBeginStampsReplicaRoles(t *testing.T) {
	c := New(address.New(9, 0))
	_, out := c.Begin(OpCreate, "k", "v", 0, triple())
	if len(out) != 3 {
		t.Fatalf("len(out) = %d, want 3", len(out))
	}
	wantRoles := []wire.ReplicaRole{wire.Primary, wire.Secondary, wire.Tertiary}
	for i, o := range out {
		kc, ok := o.Msg.(wire.KvCreate)
		if !ok {
			t.Fatalf("out[%d].Msg = %T, want wire.KvCreate", i, o.Msg)
		}
		if kc.Replica != wantRoles[i] {
			t.Fatalf("out[%d] role = %v, want %v", i, kc.Replica, wantRoles[i])
		}
	}
}

func TestWriteSucceedsOnTwoOfThree(t *testing.T) {
	c := New(address.New(9, 0))
	transID, _ := c.Begin(OpCreate, "k", "v", 0, triple())

	reply := func(from address.Address, ok bool) *Resolution {
		return c.IngestReply(wire.KvReply{Hdr: wire.Header{TransID: transID, From: from}, Success: ok}, 1)
	}

	if r := reply(address.New(1, 0), true); r != nil {
		t.Fatalf("resolved too early: %v", r)
	}
	r := reply(address.New(2, 0), true)
	if r == nil || !r.Success {
		t.Fatalf("expected success resolution after 2 acks, got %v", r)
	}
}

func TestWriteFailsOnTwoFailures(t *testing.T) {
	c := New(address.New(9, 0))
	transID, _ := c.Begin(OpUpdate, "k", "v", 0, triple())

	c.IngestReply(wire.KvReply{Hdr: wire.Header{TransID: transID, From: address.New(1, 0)}, Success: false}, 1)
	r := c.IngestReply(wire.KvReply{Hdr: wire.Header{TransID: transID, From: address.New(2, 0)}, Success: false}, 1)
	if r == nil || r.Success {
		t.Fatalf("expected failure resolution after 2 nacks, got %v", r)
	}
}

func TestReadAgreesOnValue(t *testing.T) {
	c := New(address.New(9, 0))
	transID, _ := c.Begin(OpRead, "k", "", 0, triple())

	c.IngestReply(wire.KvReadReply{Hdr: wire.Header{TransID: transID, From: address.New(1, 0)}, Success: true, Value: "v1"}, 1)
	r := c.IngestReply(wire.KvReadReply{Hdr: wire.Header{TransID: transID, From: address.New(2, 0)}, Success: true, Value: "v1"}, 1)
	if r == nil || !r.Success || r.Value != "v1" {
		t.Fatalf("expected ReadSuccess(v1), got %v", r)
	}
}

func TestReadDisagreementPrefersMajority(t *testing.T) {
	c := New(address.New(9, 0))
	transID, _ := c.Begin(OpRead, "k", "", 0, triple())

	c.IngestReply(wire.KvReadReply{Hdr: wire.Header{TransID: transID, From: address.New(1, 0)}, Success: true, Value: "stale"}, 1)
	c.IngestReply(wire.KvReadReply{Hdr: wire.Header{TransID: transID, From: address.New(2, 0)}, Success: true, Value: "fresh"}, 1)
	r := c.IngestReply(wire.KvReadReply{Hdr: wire.Header{TransID: transID, From: address.New(3, 0)}, Success: true, Value: "fresh"}, 1)
	if r == nil || !r.Success || r.Value != "fresh" {
		t.Fatalf("expected majority value 'fresh', got %v", r)
	}
}

func TestReadAllDisagreeIsFailure(t *testing.T) {
	c := New(address.New(9, 0))
	transID, _ := c.Begin(OpRead, "k", "", 0, triple())

	c.IngestReply(wire.KvReadReply{Hdr: wire.Header{TransID: transID, From: address.New(1, 0)}, Success: true, Value: "a"}, 1)
	c.IngestReply(wire.KvReadReply{Hdr: wire.Header{TransID: transID, From: address.New(2, 0)}, Success: true, Value: "b"}, 1)
	r := c.IngestReply(wire.KvReadReply{Hdr: wire.Header{TransID: transID, From: address.New(3, 0)}, Success: true, Value: "c"}, 1)
	if r == nil || r.Success {
		t.Fatalf("3-way disagreement should be a read failure, got %v", r)
	}
}

func TestTimeoutResolvesFailure(t *testing.T) {
	c := New(address.New(9, 0))
	transID, _ := c.Begin(OpDelete, "k", "", 0, triple())
	c.IngestReply(wire.KvReply{Hdr: wire.Header{TransID: transID, From: address.New(1, 0)}, Success: true}, 1)

	if res := c.Sweep(TCoord); len(res) != 0 {
		t.Fatalf("Sweep(TCoord) should not yet time out: %v", res)
	}
	res := c.Sweep(TCoord + 1)
	if len(res) != 1 || res[0].Success {
		t.Fatalf("Sweep(TCoord+1) should resolve a failure, got %v", res)
	}
	if c.Pending() != 0 {
		t.Fatalf("Pending() = %d after timeout, want 0", c.Pending())
	}
}

func TestLateReplyAfterResolutionIsDropped(t *testing.T) {
	c := New(address.New(9, 0))
	transID, _ := c.Begin(OpCreate, "k", "v", 0, triple())
	c.IngestReply(wire.KvReply{Hdr: wire.Header{TransID: transID, From: address.New(1, 0)}, Success: true}, 1)
	c.IngestReply(wire.KvReply{Hdr: wire.Header{TransID: transID, From: address.New(2, 0)}, Success: true}, 1)

	r := c.IngestReply(wire.KvReply{Hdr: wire.Header{TransID: transID, From: address.New(3, 0)}, Success: true}, 2)
	if r != nil {
		t.Fatalf("reply arriving after resolution must be dropped, got %v", r)
	}
}

func TestUnknownTransactionIsDropped(t *testing.T) {
	c := New(address.New(9, 0))
	if r := c.IngestReply(wire.KvReply{Hdr: wire.Header{TransID: 12345, From: address.New(1, 0)}, Success: true}, 1); r != nil {
		t.Fatalf("unknown transaction id should be dropped, got %v", r)
	}
}

func TestExactlyOneResolutionPerTransaction(t *testing.T) {
	c := New(address.New(9, 0))
	transID, _ := c.Begin(OpCreate, "k", "v", 0, triple())

	resolutions := 0
	for _, from := range []address.Address{address.New(1, 0), address.New(2, 0), address.New(3, 0)} {
		if c.IngestReply(wire.KvReply{Hdr: wire.Header{TransID: transID, From: from}, Success: true}, 1) != nil {
			resolutions++
		}
	}
	if resolutions != 1 {
		t.Fatalf("expected exactly one resolution, got %d", resolutions)
	}
}

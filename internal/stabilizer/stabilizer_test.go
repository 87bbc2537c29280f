package stabilizer

import (
	"testing"

	"kvstore/internal/address"
	"kvstore/internal/ring"
	"kvstore/internal/storage"
	"kvstore/internal/wire"
)

func buildRing(addrs ...address.Address) *ring.Ring {
	r := ring.New()
	r.Build(addrs)
	return r
}

// excludedFrom returns the one address present in r but absent from
// triple, given r holds exactly one more node than triple has entries.
func excludedFrom(t *testing.T, r *ring.Ring, triple []ring.ReplicaAssignment) address.Address {
	t.Helper()
	for _, n := range r.Nodes() {
		found := false
		for _, ra := range triple {
			if ra.Addr.Equal(n.Addr) {
				found = true
				break
			}
		}
		if !found {
			return n.Addr
		}
	}
	t.Fatal("no excluded address found")
	return address.Address{}
}

func TestRefreshNeighborsTracksSuccessorsAndPredecessors(t *testing.T) {
	a1, a2, a3, a4 := address.New(1, 0), address.New(2, 0), address.New(3, 0), address.New(4, 0)
	r := buildRing(a1, a2, a3, a4)

	s := New(a1)
	s.RefreshNeighbors(r)

	if len(s.HasMyReplicas()) != 2 || len(s.HaveReplicasOf()) != 2 {
		t.Fatalf("expected 2 successors and 2 predecessors on a 4-peer ring, got has=%v have=%v", s.HasMyReplicas(), s.HaveReplicasOf())
	}
}

func TestReconcileNoOpWhenStillPrimaryAndTripleUnchanged(t *testing.T) {
	a1, a2, a3 := address.New(1, 0), address.New(2, 0), address.New(3, 0)
	r := buildRing(a1, a2, a3)
	triple := r.FindNodes("k")
	primary := triple[0].Addr

	store := storage.New()
	store.Create("k", "v", wire.Primary)

	s := New(primary)
	s.Reconcile(r, store) // seeds lastTriple
	out := s.Reconcile(r, store)
	if len(out) != 0 {
		t.Fatalf("expected no repair traffic on unchanged triple, got %v", out)
	}
}

func TestReconcileHandsOffWhenNoLongerInTriple(t *testing.T) {
	a1, a2, a3, a4 := address.New(1, 0), address.New(2, 0), address.New(3, 0), address.New(4, 0)
	r := buildRing(a1, a2, a3, a4)
	triple := r.FindNodes("k")
	primary := triple[0].Addr
	excluded := excludedFrom(t, r, triple)

	store := storage.New()
	store.Create("k", "v", wire.Primary)
	s := New(excluded)

	out := s.Reconcile(r, store)
	if store.Len() != 0 {
		t.Fatalf("key should be erased locally once out of the triple, store.Len() = %d", store.Len())
	}
	if len(out) != 1 {
		t.Fatalf("expected one handoff CREATE, got %v", out)
	}
	kc, ok := out[0].Msg.(wire.KvCreate)
	if !ok || kc.Key != "k" || kc.Value != "v" || kc.Replica != wire.Primary {
		t.Fatalf("expected handoff KvCreate(k,v,Primary), got %v", out[0].Msg)
	}
	if !out[0].Target.Equal(primary) {
		t.Fatalf("handoff target = %v, want new primary %v", out[0].Target, primary)
	}
	if kc.Hdr.TransID&reservedBit == 0 {
		t.Fatalf("handoff transaction id must carry the reserved bit, got %#x", kc.Hdr.TransID)
	}
}

func TestReconcileNonPrimaryDropoutIsSilentErase(t *testing.T) {
	a1, a2, a3, a4 := address.New(1, 0), address.New(2, 0), address.New(3, 0), address.New(4, 0)
	r := buildRing(a1, a2, a3, a4)
	triple := r.FindNodes("k")
	excluded := excludedFrom(t, r, triple)

	store := storage.New()
	store.Create("k", "v", wire.Secondary)
	s := New(excluded)

	out := s.Reconcile(r, store)
	if store.Len() != 0 {
		t.Fatalf("non-primary dropout should erase locally, store.Len() = %d", store.Len())
	}
	if len(out) != 0 {
		t.Fatalf("non-primary dropout issues no repair traffic, got %v", out)
	}
}

func TestReconcileCorrectsRoleInPlace(t *testing.T) {
	a1, a2, a3 := address.New(1, 0), address.New(2, 0), address.New(3, 0)
	r := buildRing(a1, a2, a3)
	triple := r.FindNodes("k")
	primary := triple[0].Addr

	store := storage.New()
	store.Create("k", "v", wire.Tertiary) // deliberately wrong role
	s := New(primary)

	s.Reconcile(r, store)
	rec, ok := store.Get("k")
	if !ok || rec.Role != wire.Primary {
		t.Fatalf("expected role corrected to Primary, got %v (present=%v)", rec.Role, ok)
	}
}

func TestReconcilePropagatesCreateToNewcomerAndDeleteToDeparting(t *testing.T) {
	a1, a2, a3, a4 := address.New(1, 0), address.New(2, 0), address.New(3, 0), address.New(4, 0)
	r4 := buildRing(a1, a2, a3, a4)
	triple4 := r4.FindNodes("k")
	primary := triple4[0].Addr
	excluded := excludedFrom(t, r4, triple4)

	store := storage.New()
	store.Create("k", "v", wire.Primary)
	s := New(primary)
	// Prime lastTriple as if excluded (not triple4[2]) held the third
	// replica slot before this ring change, so Reconcile must issue a
	// CREATE to the newcomer triple4[2] and a DELETE to excluded.
	s.lastTriple["k"] = []address.Address{primary, triple4[1].Addr, excluded}

	out := s.Reconcile(r4, store)
	var createdTo, deletedTo []address.Address
	for _, o := range out {
		switch m := o.Msg.(type) {
		case wire.KvCreate:
			_ = m
			createdTo = append(createdTo, o.Target)
		case wire.KvDelete:
			deletedTo = append(deletedTo, o.Target)
		}
	}
	if len(createdTo) != 1 || !createdTo[0].Equal(triple4[2].Addr) {
		t.Fatalf("expected a CREATE to the newcomer %v, got %v", triple4[2].Addr, createdTo)
	}
	if len(deletedTo) != 1 || !deletedTo[0].Equal(excluded) {
		t.Fatalf("expected a DELETE to the departing replica %v, got %v", excluded, deletedTo)
	}
}

func TestOwnsHashNonWrappingArc(t *testing.T) {
	cases := []struct {
		hash, pred, self uint32
		want             bool
	}{
		{hash: 50, pred: 10, self: 100, want: true},
		{hash: 10, pred: 10, self: 100, want: false}, // exclusive lower bound
		{hash: 100, pred: 10, self: 100, want: true}, // inclusive upper bound
		{hash: 101, pred: 10, self: 100, want: false},
	}
	for _, c := range cases {
		if got := ownsHash(c.hash, c.pred, c.self); got != c.want {
			t.Errorf("ownsHash(%d, pred=%d, self=%d) = %v, want %v", c.hash, c.pred, c.self, got, c.want)
		}
	}
}

func TestOwnsHashWrapsAroundRingOrigin(t *testing.T) {
	// self is the smallest hash on the ring, so its arc wraps through 0:
	// everything above pred and everything up to and including self.
	if !ownsHash(900, 800, 50) {
		t.Fatal("expected ownership above pred to wrap to the low end of the ring")
	}
	if !ownsHash(10, 800, 50) {
		t.Fatal("expected ownership below self to wrap to the low end of the ring")
	}
	if ownsHash(400, 800, 50) {
		t.Fatal("hash strictly between self and pred belongs to some other node")
	}
}

func TestReconcileStablePrimarySkipsRingSearch(t *testing.T) {
	a1, a2, a3, a4, a5 := address.New(1, 0), address.New(2, 0), address.New(3, 0), address.New(4, 0), address.New(5, 0)
	r := buildRing(a1, a2, a3, a4, a5)

	store := storage.New()
	var primaryKeys []string
	for _, k := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "k10", "k11"} {
		triple := r.FindNodes(k)
		if triple[0].Addr.Equal(a1) {
			store.Create(k, "v-"+k, wire.Primary)
			primaryKeys = append(primaryKeys, k)
		}
	}
	if len(primaryKeys) == 0 {
		t.Skip("no key hashed to a1 as primary with this fixture; adjust key set")
	}

	s := New(a1)
	s.Reconcile(r, store) // seed lastTriple via the cached fast path
	out := s.Reconcile(r, store)
	if len(out) != 0 {
		t.Fatalf("expected no repair traffic once lastTriple is seeded and the ring is unchanged, got %v", out)
	}
	for _, k := range primaryKeys {
		rec, ok := store.Get(k)
		if !ok || rec.Role != wire.Primary {
			t.Fatalf("key %q role changed unexpectedly: %v (present=%v)", k, rec.Role, ok)
		}
	}
}

func TestNextTransIDMonotonicallyReserved(t *testing.T) {
	s := New(address.New(1, 0))
	first := s.nextTransID()
	second := s.nextTransID()
	if first&reservedBit == 0 || second&reservedBit == 0 {
		t.Fatalf("expected both ids to carry the reserved bit, got %#x and %#x", first, second)
	}
	if first == second {
		t.Fatalf("expected distinct transaction ids, got %#x twice", first)
	}
}

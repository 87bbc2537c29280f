package wire

import (
	"testing"

	"kvstore/internal/address"
)

func roundTrip(t *testing.T, msg Message) Message {
	t.Helper()
	b, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return got
}

func TestJoinReqRoundTrip(t *testing.T) {
	want := JoinReq{
		Hdr:       Header{TransID: 7, From: address.New(1, 0)},
		Addr:      address.New(2, 100),
		Heartbeat: 42,
	}
	got := roundTrip(t, want)
	jr, ok := got.(JoinReq)
	if !ok {
		t.Fatalf("got %T, want JoinReq", got)
	}
	if jr != want {
		t.Fatalf("got %+v, want %+v", jr, want)
	}
}

func TestGossipRoundTrip(t *testing.T) {
	want := Gossip{
		Hdr: Header{TransID: 1, From: address.New(1, 0)},
		Member: []MembershipEntry{
			{ID: 1, Port: 0, Heartbeat: 3, LastSeen: 10},
			{ID: 2, Port: 0, Heartbeat: 5, LastSeen: 11},
		},
	}
	got := roundTrip(t, want)
	g, ok := got.(Gossip)
	if !ok {
		t.Fatalf("got %T, want Gossip", got)
	}
	if len(g.Member) != 2 || g.Member[0] != want.Member[0] || g.Member[1] != want.Member[1] {
		t.Fatalf("got %+v, want %+v", g, want)
	}
}

func TestEmptyGossipRoundTrip(t *testing.T) {
	want := Gossip{Hdr: Header{TransID: 1, From: address.New(1, 0)}}
	got := roundTrip(t, want).(Gossip)
	if len(got.Member) != 0 {
		t.Fatalf("expected zero members, got %d", len(got.Member))
	}
}

func TestKvCreateRoundTrip(t *testing.T) {
	want := KvCreate{
		Hdr:     Header{TransID: 99, From: address.New(3, 1)},
		Key:     "some-key",
		Value:   "some-value",
		Replica: Secondary,
	}
	got := roundTrip(t, want).(KvCreate)
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestKvReadReplyRoundTrip(t *testing.T) {
	want := KvReadReply{
		Hdr:     Header{TransID: 5, From: address.New(1, 0)},
		Success: true,
		Value:   "v",
	}
	got := roundTrip(t, want).(KvReadReply)
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestKvReplyRoundTrip(t *testing.T) {
	want := KvReply{Hdr: Header{TransID: 5, From: address.New(1, 0)}, Success: false}
	got := roundTrip(t, want).(KvReply)
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestDecodeRejectsTruncatedHeader(t *testing.T) {
	if _, err := Decode([]byte{0, 1, 2}); err == nil {
		t.Fatal("expected error for truncated header")
	}
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	b, err := Encode(KvReply{Hdr: Header{From: address.New(1, 0)}, Success: true})
	if err != nil {
		t.Fatal(err)
	}
	b[0] = 0xFF
	if _, err := Decode(b); err == nil {
		t.Fatal("expected error for unknown msg_type")
	}
}

func TestDecodeRejectsTruncatedString(t *testing.T) {
	b, err := Encode(KvRead{Hdr: Header{From: address.New(1, 0)}, Key: "abcdef"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(b[:len(b)-2]); err == nil {
		t.Fatal("expected error for truncated string body")
	}
}

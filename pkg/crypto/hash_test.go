package crypto

import (
	"testing"
	"time"
)

func TestHashIsSHA256(t *testing.T) {
	// Known SHA-256 vector.
	got := HashString("abc").String()
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Fatalf("HashString(\"abc\") = %s, want %s", got, want)
	}
	if Hash([]byte("abc")) != HashString("abc") {
		t.Fatal("Hash and HashString must agree on identical input")
	}
}

func TestHashDeterministic(t *testing.T) {
	if HashString("x") != HashString("x") {
		t.Fatal("hashing is not deterministic")
	}
	if HashString("x") == HashString("y") {
		t.Fatal("distinct preimages collided")
	}
}

func TestDeriveIdentity(t *testing.T) {
	at := time.Unix(1700000000, 123456789)

	id := DeriveIdentity("alice", at)
	if !id.Valid() {
		t.Fatalf("derived identity %q is not 16 hex characters", id)
	}
	if id != DeriveIdentity("alice", at) {
		t.Fatal("same handle and instant must derive the same identity")
	}
	if id == DeriveIdentity("bob", at) {
		t.Fatal("different handles must derive different identities")
	}
	if id == DeriveIdentity("alice", at.Add(time.Nanosecond)) {
		t.Fatal("different instants must derive different identities")
	}
}

func TestContentHash(t *testing.T) {
	h := ContentHash([]byte("file contents"))
	if len(h) != 16 {
		t.Fatalf("content hash %q is not 16 hex characters", h)
	}
	if h != ContentHash([]byte("file contents")) {
		t.Fatal("content hash is not deterministic")
	}
	if h == ContentHash([]byte("other contents")) {
		t.Fatal("distinct contents collided")
	}
}

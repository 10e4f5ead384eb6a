package mpt

import (
	"bytes"
	"strings"
	"testing"
)

func TestEmptyTrie(t *testing.T) {
	tr := New(NewMemoryDB())
	if tr.RootHash() != nil {
		t.Errorf("RootHash() of empty trie = %v, want nil", tr.RootHash())
	}
	v, err := tr.Get([]byte("anything"))
	if err != nil {
		t.Fatalf("Get on empty trie: %v", err)
	}
	if v != nil {
		t.Errorf("Get on empty trie = %v, want nil", v)
	}
}

func TestInsertGet(t *testing.T) {
	tr := New(NewMemoryDB())
	if err := tr.Insert([]byte("aaaa"), []byte("a")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, err := tr.Get([]byte("aaaa"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, []byte("a")) {
		t.Errorf("Get(aaaa) = %q, want %q", got, "a")
	}
}

func TestSingleLeafRootHash(t *testing.T) {
	tr := New(NewMemoryDB())
	if err := tr.Insert([]byte("aaaa"), []byte("a")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := tr.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	leaf := &LeafNode{Path: bytesToNibbles([]byte("aaaa")), Value: []byte("a")}
	wantHash, _, err := hashNode(leaf)
	if err != nil {
		t.Fatalf("hashNode: %v", err)
	}
	if tr.RootHash() == nil || *tr.RootHash() != wantHash {
		t.Errorf("RootHash() = %v, want %v", tr.RootHash(), wantHash)
	}
}

func TestOverwriteNoSibling(t *testing.T) {
	tr := New(NewMemoryDB())
	if err := tr.Insert([]byte("aaaa"), []byte("v1")); err != nil {
		t.Fatalf("Insert v1: %v", err)
	}
	if err := tr.Insert([]byte("aaaa"), []byte("v2")); err != nil {
		t.Fatalf("Insert v2: %v", err)
	}
	got, err := tr.Get([]byte("aaaa"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, []byte("v2")) {
		t.Errorf("Get(aaaa) = %q, want %q", got, "v2")
	}
	if _, ok := tr.root.(*LeafNode); !ok {
		t.Errorf("root after overwrite is %T, want *LeafNode (no sibling Branch introduced)", tr.root)
	}
}

func TestCommitIdempotent(t *testing.T) {
	tr := New(NewMemoryDB())
	if err := tr.Insert([]byte("aaaa"), []byte("a")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	h1, err := tr.Commit()
	if err != nil {
		t.Fatalf("first Commit: %v", err)
	}
	h2, err := tr.Commit()
	if err != nil {
		t.Fatalf("second Commit: %v", err)
	}
	if *h1 != *h2 {
		t.Errorf("Commit() not idempotent: %v != %v", h1, h2)
	}
}

func TestOrderIndependence(t *testing.T) {
	kvs := map[string]string{
		"aaaa":  "1",
		"aaaab": strings.Repeat("b", 20),
		"aa":    strings.Repeat("d", 400),
		"zzzz":  "9",
	}

	build := func(keys []string) Hash {
		tr := New(NewMemoryDB())
		for _, k := range keys {
			if err := tr.Insert([]byte(k), []byte(kvs[k])); err != nil {
				t.Fatalf("Insert(%q): %v", k, err)
			}
		}
		h, err := tr.Commit()
		if err != nil {
			t.Fatalf("Commit: %v", err)
		}
		return *h
	}

	h1 := build([]string{"aaaa", "aaaab", "aa", "zzzz"})
	h2 := build([]string{"zzzz", "aa", "aaaab", "aaaa"})
	if h1 != h2 {
		t.Errorf("root hash depends on insertion order: %v != %v", h1, h2)
	}
}

// TestExtensionAndRevert reproduces the extension/overwrite/revert scenario:
// insert ("aaaa","a") and ("aaaab", 20xb); snapshot root R1; insert
// ("aaaa", 35xc) and ("aa", 400xd); verify the new reads; revert to R1 and
// confirm "aaaa" is restored to its original value.
func TestExtensionAndRevert(t *testing.T) {
	db := NewMemoryDB()
	tr := New(db)

	if err := tr.Insert([]byte("aaaa"), []byte("a")); err != nil {
		t.Fatalf("Insert aaaa: %v", err)
	}
	if err := tr.Insert([]byte("aaaab"), []byte(strings.Repeat("b", 20))); err != nil {
		t.Fatalf("Insert aaaab: %v", err)
	}
	r1, err := tr.Commit()
	if err != nil {
		t.Fatalf("Commit R1: %v", err)
	}

	if err := tr.Insert([]byte("aaaa"), []byte(strings.Repeat("c", 35))); err != nil {
		t.Fatalf("Insert aaaa v2: %v", err)
	}
	if err := tr.Insert([]byte("aa"), []byte(strings.Repeat("d", 400))); err != nil {
		t.Fatalf("Insert aa: %v", err)
	}
	r2, err := tr.Commit()
	if err != nil {
		t.Fatalf("Commit R2: %v", err)
	}
	if *r1 == *r2 {
		t.Fatalf("R1 and R2 must differ after further edits")
	}

	if got, err := tr.Get([]byte("aaaab")); err != nil || !bytes.Equal(got, []byte(strings.Repeat("b", 20))) {
		t.Errorf("Get(aaaab) = %q, %v", got, err)
	}
	if got, err := tr.Get([]byte("a")); err != nil || got != nil {
		t.Errorf("Get(a) = %q, %v, want nil", got, err)
	}
	if got, err := tr.Get([]byte("aaaa")); err != nil || !bytes.Equal(got, []byte(strings.Repeat("c", 35))) {
		t.Errorf("Get(aaaa) = %q, %v", got, err)
	}
	if got, err := tr.Get([]byte("aa")); err != nil || !bytes.Equal(got, []byte(strings.Repeat("d", 400))) {
		t.Errorf("Get(aa) = %q, %v", got, err)
	}

	if err := tr.Revert(*r1); err != nil {
		t.Fatalf("Revert: %v", err)
	}
	if got, err := tr.Get([]byte("aaaa")); err != nil || !bytes.Equal(got, []byte("a")) {
		t.Errorf("after Revert, Get(aaaa) = %q, %v, want %q", got, err, "a")
	}
}

func TestRevertUnknownHashFails(t *testing.T) {
	tr := New(NewMemoryDB())
	var bogus Hash
	err := tr.Revert(bogus)
	if err == nil {
		t.Fatal("Revert of an unknown hash should fail")
	}
	if kind, ok := KindOf(err); !ok || kind != StateNotFound {
		t.Errorf("Revert error kind = %v, ok=%v, want StateNotFound", kind, ok)
	}
}

package mpt

import "bytes"

// GetProof commits any pending edits, then walks the same path Get would
// follow and snapshots every node it touches into a fresh, caller-owned
// MemoryDB. The returned bool reports whether the walk terminated in a
// matching value, exactly as Get's result would.
func (t *Trie) GetProof(key []byte) (*MemoryDB, bool, error) {
	if t.dirty {
		if _, err := t.Commit(); err != nil {
			return nil, false, err
		}
	}

	proof := NewMemoryDB()
	if t.root == nil {
		return proof, false, nil
	}

	exists, err := walkCollect(t.db, proof, t.root, bytesToNibbles(key))
	if err != nil {
		return nil, false, err
	}
	return proof, exists, nil
}

// walkCollect mirrors getNode's recursion but additionally records every
// node it visits, by hash, into proof — so a verifier given only proof can
// redo the same walk without access to the original Database.
func walkCollect(db, proof Database, n Node, p Nibbles) (bool, error) {
	if n == nil {
		return false, nil
	}

	hash, enc, err := hashNode(n)
	if err != nil {
		return false, err
	}
	if err := proof.Insert(hash, enc); err != nil {
		return false, databaseErrorf(err, "proof: storing node %x", hash)
	}

	switch x := n.(type) {
	case *LeafNode:
		return bytes.Equal([]byte(x.Path), []byte(p)), nil

	case *ExtensionNode:
		if !isPrefix(x.Shared, p) {
			return false, nil
		}
		return walkCollectSubtree(db, proof, x.Child, p[len(x.Shared):])

	case *BranchNode:
		if len(p) == 0 {
			return len(x.Value) > 0, nil
		}
		return walkCollectSubtree(db, proof, x.Children[p[0]], p[1:])

	default:
		return false, encodingErrorf("proof: unknown node type %T", n)
	}
}

func walkCollectSubtree(db, proof Database, st Subtree, p Nibbles) (bool, error) {
	switch st.Kind {
	case SubtreeEmpty:
		return false, nil
	case SubtreeInline:
		return walkCollect(db, proof, st.Node, p)
	case SubtreeHash:
		n, err := resolve(db, st.Hash)
		if err != nil {
			return false, err
		}
		return walkCollect(db, proof, n, p)
	default:
		return false, encodingErrorf("proof: unknown subtree kind %d", st.Kind)
	}
}

// VerifyProof checks whether key resolves to a value under rootHash using
// only the nodes in proof, never touching any other Database. Any failure
// along the way — a missing root, malformed encoding, or a dangling
// reference proof doesn't cover — is reported as false, never as an error:
// a tampered or incomplete proof is indistinguishable from "key not
// proved" to this verifier.
func VerifyProof(rootHash Hash, proof Database, key []byte) bool {
	enc, err := proof.Get(rootHash)
	if err != nil || enc == nil {
		return false
	}

	root, err := decodeNode(enc)
	if err != nil {
		return false
	}

	value, err := getNode(proof, root, bytesToNibbles(key))
	if err != nil {
		return false
	}
	return value != nil
}

package mpt

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
)

// Trie is an in-memory Merkle Patricia Trie backed by a content-addressed
// Database. It owns its in-memory root exclusively; edits are copy-on-write
// rebuilds that never write to the Database until Commit.
type Trie struct {
	root     Node
	db       Database
	rootHash *Hash // last committed root, if any
	dirty    bool  // true iff root has edits not yet flushed by Commit
}

// New returns an empty trie backed by db. An empty trie has no root and no
// root hash until the first Insert and Commit.
func New(db Database) *Trie {
	return &Trie{db: db}
}

// RootHash returns the hash recorded by the most recent Commit or Revert,
// or nil if the trie has never been committed.
func (t *Trie) RootHash() *Hash {
	return t.rootHash
}

// Insert sets key to value. It marks the trie dirty and never writes to the
// Database — every edit is an in-memory copy-on-write rewrite that only reads
// the Database to load children referenced by hash; size-based inlining
// decisions are deferred to Commit.
func (t *Trie) Insert(key, value []byte) error {
	path := bytesToNibbles(key)
	newRoot, err := t.insertNode(t.root, path, value)
	if err != nil {
		return err
	}
	t.root = newRoot
	t.dirty = true
	return nil
}

// Get returns the value stored for key, or nil if key has never been
// inserted. An empty value stored at a Branch node is treated as "no value"
// and also yields nil, so it cannot be told apart from a missing key. It
// never mutates the trie.
func (t *Trie) Get(key []byte) ([]byte, error) {
	if t.root == nil {
		return nil, nil
	}
	path := bytesToNibbles(key)
	return getNode(t.db, t.root, path)
}

// Commit flushes the in-memory tree to the Database bottom-up and returns
// the new root hash. It is idempotent: a second call with no intervening
// edit is a no-op that returns the previous hash.
func (t *Trie) Commit() (*Hash, error) {
	if !t.dirty {
		return t.rootHash, nil
	}
	if t.root == nil {
		t.dirty = false
		return nil, nil
	}

	collapsed, err := t.collapseInternals(t.root)
	if err != nil {
		return nil, err
	}

	hash, enc, err := hashNode(collapsed)
	if err != nil {
		return nil, err
	}
	// The root is always materialized in the store, even when its own
	// encoding would be short enough to inline were it not the root.
	if err := t.db.Insert(hash, enc); err != nil {
		return nil, databaseErrorf(err, "commit: storing root %x", hash)
	}

	t.root = collapsed
	t.rootHash = &hash
	t.dirty = false
	log.Debug("mpt: committed trie", "root", hash)
	return &hash, nil
}

// Revert discards the in-memory tree and reattaches the trie to a
// previously committed root hash, loading that root node from the
// Database. It fails with a StateNotFound error if hash is absent from
// the store.
func (t *Trie) Revert(hash Hash) error {
	enc, err := t.db.Get(hash)
	if err != nil {
		return databaseErrorf(err, "revert: fetching root %x", hash)
	}
	if enc == nil {
		return newError(StateNotFound, fmt.Sprintf("revert: root %x not found in store", hash), nil)
	}

	root, err := decodeNode(enc)
	if err != nil {
		return err
	}

	t.root = root
	rootCopy := hash
	t.rootHash = &rootCopy
	t.dirty = false
	log.Debug("mpt: reverted trie", "root", hash)
	return nil
}

// insertNode implements the structural recursion over the current node at
// this position (nil means "nothing here yet") and the remaining key path p.
func (t *Trie) insertNode(n Node, p Nibbles, value []byte) (Node, error) {
	if n == nil {
		return &LeafNode{Path: p, Value: value}, nil
	}

	switch x := n.(type) {
	case *LeafNode:
		shared, pRest, lRest := commonPrefix(p, x.Path)

		if len(pRest) == 0 && len(lRest) == 0 {
			// Exact key match: update in place, no Branch created.
			return &LeafNode{Path: x.Path, Value: value}, nil
		}

		branch := newBranch()
		if err := t.setBranchPath(branch, pRest, value); err != nil {
			return nil, err
		}
		if err := t.setBranchPath(branch, lRest, x.Value); err != nil {
			return nil, err
		}

		var result Node = branch
		if len(shared) > 0 {
			result = &ExtensionNode{Shared: shared, Child: inlineSubtree(branch)}
		}
		return result, nil

	case *BranchNode:
		if len(p) == 0 {
			nb := *x
			nb.Value = value
			return &nb, nil
		}
		i := p[0]
		child, err := t.insertSubtree(x.Children[i], p[1:], value)
		if err != nil {
			return nil, err
		}
		nb := *x
		nb.Children[i] = inlineSubtree(child)
		return &nb, nil

	case *ExtensionNode:
		shared, pRest, shRest := commonPrefix(p, x.Shared)

		if len(shRest) == 0 {
			child, err := t.insertSubtree(x.Child, pRest, value)
			if err != nil {
				return nil, err
			}
			return &ExtensionNode{Shared: x.Shared, Child: inlineSubtree(child)}, nil
		}

		branch := newBranch()
		var divertedChild Subtree
		if len(shRest[1:]) == 0 {
			divertedChild = x.Child
		} else {
			divertedChild = inlineSubtree(&ExtensionNode{Shared: shRest[1:], Child: x.Child})
		}
		branch.Children[shRest[0]] = divertedChild

		if err := t.setBranchPath(branch, pRest, value); err != nil {
			return nil, err
		}

		var result Node = branch
		if len(shared) > 0 {
			result = &ExtensionNode{Shared: shared, Child: inlineSubtree(branch)}
		}
		return result, nil

	default:
		return nil, encodingErrorf("insert: unknown node type %T", n)
	}
}

// setBranchPath writes value at the position path designates within
// branch: the branch's own Value slot when path is empty, or recursively
// into the appropriate child otherwise.
func (t *Trie) setBranchPath(branch *BranchNode, path Nibbles, value []byte) error {
	if len(path) == 0 {
		branch.Value = value
		return nil
	}
	i := path[0]
	child, err := t.insertSubtree(branch.Children[i], path[1:], value)
	if err != nil {
		return err
	}
	branch.Children[i] = inlineSubtree(child)
	return nil
}

// insertSubtree resolves a Subtree reference before inserting into it:
// Empty becomes a fresh Leaf, Inline recurses directly, Hash is fetched
// and decoded from the Database first (producing a dirty in-memory child).
func (t *Trie) insertSubtree(st Subtree, path Nibbles, value []byte) (Node, error) {
	switch st.Kind {
	case SubtreeEmpty:
		return &LeafNode{Path: path, Value: value}, nil
	case SubtreeInline:
		return t.insertNode(st.Node, path, value)
	case SubtreeHash:
		n, err := resolve(t.db, st.Hash)
		if err != nil {
			return nil, err
		}
		return t.insertNode(n, path, value)
	default:
		return nil, encodingErrorf("insert: unknown subtree kind %d", st.Kind)
	}
}

// getNode implements the structural recursion of a key lookup against an
// arbitrary Database. Trie.Get calls this with the trie's own store; the
// standalone proof verifier calls it with a proof store instead, reusing
// the exact same walk.
func getNode(db Database, n Node, p Nibbles) ([]byte, error) {
	switch x := n.(type) {
	case *LeafNode:
		if bytes.Equal([]byte(x.Path), []byte(p)) {
			return x.Value, nil
		}
		return nil, nil

	case *ExtensionNode:
		if !isPrefix(x.Shared, p) {
			return nil, nil
		}
		return getSubtree(db, x.Child, p[len(x.Shared):])

	case *BranchNode:
		if len(p) == 0 {
			// An empty stored value at a Branch is treated as "no value"
			// here, not as a hit with an empty payload.
			if len(x.Value) == 0 {
				return nil, nil
			}
			return x.Value, nil
		}
		return getSubtree(db, x.Children[p[0]], p[1:])

	default:
		return nil, encodingErrorf("get: unknown node type %T", n)
	}
}

func getSubtree(db Database, st Subtree, p Nibbles) ([]byte, error) {
	switch st.Kind {
	case SubtreeEmpty:
		return nil, nil
	case SubtreeInline:
		return getNode(db, st.Node, p)
	case SubtreeHash:
		n, err := resolve(db, st.Hash)
		if err != nil {
			return nil, err
		}
		return getNode(db, n, p)
	default:
		return nil, encodingErrorf("get: unknown subtree kind %d", st.Kind)
	}
}

// resolve fetches and decodes the node stored under hash. A missing entry
// is a SubtreeNotFound integrity error, not a miss: every Hash reference
// reachable from a committed root is guaranteed present in a sound store.
func resolve(db Database, hash Hash) (Node, error) {
	enc, err := db.Get(hash)
	if err != nil {
		return nil, databaseErrorf(err, "resolving subtree %x", hash)
	}
	if enc == nil {
		log.Error("mpt: dangling subtree reference", "hash", hash)
		return nil, newError(SubtreeNotFound, fmt.Sprintf("subtree %x not found in store", hash), nil)
	}
	return decodeNode(enc)
}

// collapseInternals rewrites n's immediate structure with its children
// collapsed bottom-up, without yet deciding n's own inline/hash fate — that
// decision belongs to the caller, since the root is always materialized
// regardless of its own encoded size.
func (t *Trie) collapseInternals(n Node) (Node, error) {
	switch x := n.(type) {
	case *LeafNode:
		return x, nil

	case *ExtensionNode:
		child, err := t.collapseToSubtree(x.Child)
		if err != nil {
			return nil, err
		}
		return &ExtensionNode{Shared: x.Shared, Child: child}, nil

	case *BranchNode:
		nb := newBranch()
		nb.Value = x.Value
		for i := 0; i < 16; i++ {
			child, err := t.collapseToSubtree(x.Children[i])
			if err != nil {
				return nil, err
			}
			nb.Children[i] = child
		}
		return nb, nil

	default:
		return nil, encodingErrorf("commit: unknown node type %T", n)
	}
}

// collapseToSubtree collapses a single child reference: Empty and Hash
// pass through unchanged, Inline nodes are recursively collapsed and then
// either re-inlined or hashed and stored, per the <32-byte rule.
func (t *Trie) collapseToSubtree(st Subtree) (Subtree, error) {
	switch st.Kind {
	case SubtreeEmpty, SubtreeHash:
		return st, nil
	case SubtreeInline:
		collapsed, err := t.collapseInternals(st.Node)
		if err != nil {
			return Subtree{}, err
		}
		hash, enc, err := hashNode(collapsed)
		if err != nil {
			return Subtree{}, err
		}
		if len(enc) < hashInlineThreshold {
			return inlineSubtree(collapsed), nil
		}
		if err := t.db.Insert(hash, enc); err != nil {
			return Subtree{}, databaseErrorf(err, "commit: storing node %x", hash)
		}
		return hashSubtree(hash), nil
	default:
		return Subtree{}, encodingErrorf("commit: unknown subtree kind %d", st.Kind)
	}
}

// isPrefix reports whether prefix is a prefix of p.
func isPrefix(prefix, p Nibbles) bool {
	if len(prefix) > len(p) {
		return false
	}
	return bytes.Equal([]byte(prefix), []byte(p[:len(prefix)]))
}

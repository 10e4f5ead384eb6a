package mpt

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// Hash is a 32-byte Keccak-256 digest. It is used both as a store key and
// as the Hash form of a Subtree reference.
type Hash = common.Hash

// hashInlineThreshold is the encoded-length cutoff below which a child is
// embedded inline rather than stored by hash: the Inline/Hash split is
// driven solely by encoded length.
const hashInlineThreshold = 32

// Node is the sum type of the three node kinds this trie can hold at any
// position: Leaf, Extension, Branch.
type Node interface {
	node()
}

// LeafNode carries the suffix of nibbles remaining from this point to the
// end of some key, and that key's value.
type LeafNode struct {
	Path  Nibbles
	Value []byte
}

// ExtensionNode consumes a non-empty nibble path before following Child.
type ExtensionNode struct {
	Shared Nibbles
	Child  Subtree
}

// BranchNode is a 17-slot record: 16 child subtrees keyed by nibble, plus a
// value for a key that terminates exactly at this node.
type BranchNode struct {
	Children [16]Subtree
	Value    []byte
}

func (*LeafNode) node()      {}
func (*ExtensionNode) node() {}
func (*BranchNode) node()    {}

// SubtreeKind discriminates the three forms a child reference can take.
type SubtreeKind int

const (
	SubtreeEmpty SubtreeKind = iota
	SubtreeInline
	SubtreeHash
)

// Subtree is a reference to a child node: absent, embedded inline, or
// addressed by Hash into the Database. After Commit a child is inline only
// if its encoded form is shorter than 32 bytes; children rewritten by Insert
// stay inline regardless of size until the next Commit.
type Subtree struct {
	Kind SubtreeKind
	Node Node // set iff Kind == SubtreeInline
	Hash Hash // set iff Kind == SubtreeHash
}

// emptySubtree is the zero value and also the canonical "no child" marker.
var emptySubtree = Subtree{Kind: SubtreeEmpty}

func inlineSubtree(n Node) Subtree { return Subtree{Kind: SubtreeInline, Node: n} }
func hashSubtree(h Hash) Subtree   { return Subtree{Kind: SubtreeHash, Hash: h} }

// newBranch returns a BranchNode with every child Empty and no value.
func newBranch() *BranchNode {
	return &BranchNode{}
}

// encodeNode produces the RLP-list encoding for each node kind:
//   - Leaf      -> [hp_encode(path, true), value]
//   - Extension -> [hp_encode(shared, false), child_ref]
//   - Branch    -> [c0, ..., c15, value]
func encodeNode(n Node) ([]byte, error) {
	switch t := n.(type) {
	case *LeafNode:
		items := []interface{}{hpEncode(t.Path, true), t.Value}
		return rlp.EncodeToBytes(items)

	case *ExtensionNode:
		childRef, err := encodeSubtree(t.Child)
		if err != nil {
			return nil, err
		}
		items := []interface{}{hpEncode(t.Shared, false), childRef}
		return rlp.EncodeToBytes(items)

	case *BranchNode:
		items := make([]interface{}, 17)
		for i := 0; i < 16; i++ {
			ref, err := encodeSubtree(t.Children[i])
			if err != nil {
				return nil, err
			}
			items[i] = ref
		}
		items[16] = t.Value
		return rlp.EncodeToBytes(items)

	default:
		return nil, encodingErrorf("encode: unknown node type %T", n)
	}
}

// encodeSubtree produces the child_ref bytes for a Subtree: 0x80 for Empty,
// the child's own RLP bytes for Inline, rlp(bytes32) for Hash. The result is
// itself a valid RLP value and is embedded verbatim by the parent's
// encoding (rlp.RawValue round-trips without re-wrapping).
func encodeSubtree(st Subtree) (rlp.RawValue, error) {
	switch st.Kind {
	case SubtreeEmpty:
		return rlp.RawValue{0x80}, nil
	case SubtreeInline:
		enc, err := encodeNode(st.Node)
		if err != nil {
			return nil, err
		}
		return rlp.RawValue(enc), nil
	case SubtreeHash:
		enc, err := rlp.EncodeToBytes(st.Hash[:])
		if err != nil {
			return nil, err
		}
		return rlp.RawValue(enc), nil
	default:
		return nil, encodingErrorf("encode: unknown subtree kind %d", st.Kind)
	}
}

// hashNode computes keccak256(rlp(node)) along with the RLP bytes
// themselves, so callers that need both don't encode twice.
func hashNode(n Node) (Hash, []byte, error) {
	enc, err := encodeNode(n)
	if err != nil {
		return Hash{}, nil, err
	}
	return crypto.Keccak256Hash(enc), enc, nil
}

// decodeNode parses an RLP-encoded node, discriminating by list arity: 17
// items -> Branch, 2 items -> inspect the first element's HP flag bit
// (set -> Leaf, clear -> Extension). Any other arity is malformed.
func decodeNode(buf []byte) (Node, error) {
	var elems []rlp.RawValue
	if err := rlp.DecodeBytes(buf, &elems); err != nil {
		return nil, encodingErrorf("decode node: malformed RLP list: %v", err)
	}

	switch len(elems) {
	case 2:
		var hpBytes []byte
		if err := rlp.DecodeBytes(elems[0], &hpBytes); err != nil {
			return nil, encodingErrorf("decode node: malformed path: %v", err)
		}
		path, isLeaf, err := hpDecode(hpBytes)
		if err != nil {
			return nil, err
		}
		if isLeaf {
			var value []byte
			if err := rlp.DecodeBytes(elems[1], &value); err != nil {
				return nil, encodingErrorf("decode leaf: malformed value: %v", err)
			}
			return &LeafNode{Path: path, Value: value}, nil
		}
		child, err := decodeSubtree(elems[1])
		if err != nil {
			return nil, err
		}
		return &ExtensionNode{Shared: path, Child: child}, nil

	case 17:
		branch := newBranch()
		for i := 0; i < 16; i++ {
			child, err := decodeSubtree(elems[i])
			if err != nil {
				return nil, err
			}
			branch.Children[i] = child
		}
		var value []byte
		if err := rlp.DecodeBytes(elems[16], &value); err != nil {
			return nil, encodingErrorf("decode branch: malformed value: %v", err)
		}
		branch.Value = value
		return branch, nil

	default:
		return nil, encodingErrorf("decode node: unexpected list arity %d", len(elems))
	}
}

// decodeSubtree interprets a single child_ref slot: the literal byte 0x80
// for Empty, a nested RLP list for an inlined node, or a 32-byte RLP string
// for a Hash reference.
func decodeSubtree(raw rlp.RawValue) (Subtree, error) {
	if len(raw) == 0 {
		return Subtree{}, encodingErrorf("decode subtree: empty RLP value")
	}

	switch {
	case len(raw) == 1 && raw[0] == 0x80:
		return emptySubtree, nil

	case raw[0] >= 0xc0:
		// RLP list header: this is an inlined node's own encoding.
		n, err := decodeNode(raw)
		if err != nil {
			return Subtree{}, err
		}
		return inlineSubtree(n), nil

	default:
		// RLP string header: must decode to exactly 32 bytes.
		var b []byte
		if err := rlp.DecodeBytes(raw, &b); err != nil {
			return Subtree{}, encodingErrorf("decode subtree: malformed hash reference: %v", err)
		}
		if len(b) != 32 {
			return Subtree{}, encodingErrorf("decode subtree: hash reference has length %d, want 32", len(b))
		}
		var h Hash
		copy(h[:], b)
		return hashSubtree(h), nil
	}
}

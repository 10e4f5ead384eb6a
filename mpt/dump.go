package mpt

import (
	"encoding/hex"
	"fmt"
	"io"
)

// Dump writes a human-readable rendering of the in-memory tree to w, for
// debugging. It walks the live t.root, not what is stored in the Database,
// so it reflects uncommitted edits too.
func (t *Trie) Dump(w io.Writer) {
	if t.root == nil {
		fmt.Fprintln(w, "<empty>")
		return
	}
	dumpNode(w, t.root, "")
}

func dumpNode(w io.Writer, n Node, indent string) {
	if n == nil {
		fmt.Fprintln(w, indent+"nil")
		return
	}
	switch x := n.(type) {
	case *LeafNode:
		fmt.Fprintf(w, "%sLeaf: path=%s value=%s\n", indent, nibblesHex(x.Path), hex.EncodeToString(x.Value))
	case *ExtensionNode:
		fmt.Fprintf(w, "%sExtension: shared=%s\n", indent, nibblesHex(x.Shared))
		dumpSubtree(w, x.Child, indent+"  ")
	case *BranchNode:
		fmt.Fprintf(w, "%sBranch: value=%s\n", indent, hex.EncodeToString(x.Value))
		for i, child := range x.Children {
			if child.Kind == SubtreeEmpty {
				continue
			}
			fmt.Fprintf(w, "%s  [%x]:\n", indent, i)
			dumpSubtree(w, child, indent+"    ")
		}
	}
}

func dumpSubtree(w io.Writer, st Subtree, indent string) {
	switch st.Kind {
	case SubtreeEmpty:
		fmt.Fprintln(w, indent+"<empty>")
	case SubtreeInline:
		dumpNode(w, st.Node, indent)
	case SubtreeHash:
		fmt.Fprintf(w, "%sHash: %x\n", indent, st.Hash)
	}
}

func nibblesHex(n Nibbles) string {
	out := make([]byte, len(n))
	for i, v := range n {
		if v < 10 {
			out[i] = '0' + v
		} else {
			out[i] = 'a' + v - 10
		}
	}
	return string(out)
}

package mpt

// Nibbles is an ordered sequence of 4-bit values in [0,15]. Byte strings are
// split high-nibble-first, low-nibble-second, matching the yellow-paper
// hex encoding this trie is built around.
type Nibbles []byte

const (
	hpFlagMask = 0x20 // bit 5: leaf (set) vs. extension (clear)
	hpOddMask  = 0x10 // bit 4: odd path length
)

// bytesToNibbles flattens bs into its nibble representation, high nibble of
// each byte first.
func bytesToNibbles(bs []byte) Nibbles {
	out := make(Nibbles, len(bs)*2)
	for i, b := range bs {
		out[i*2] = b >> 4
		out[i*2+1] = b & 0x0f
	}
	return out
}

// commonPrefix returns the longest shared prefix of a and b, along with
// each input's unmatched remainder. Either remainder (or the shared prefix
// itself) may be empty; that is a normal return, not an error.
func commonPrefix(a, b Nibbles) (shared, aRest, bRest Nibbles) {
	min := len(a)
	if len(b) < min {
		min = len(b)
	}
	i := 0
	for i < min && a[i] == b[i] {
		i++
	}
	return a[:i], a[i:], b[i:]
}

// hpEncode applies hex-prefix encoding to path, folding in flag as the
// leaf/extension discriminator bit. The first byte's low nibble holds the
// path's first nibble when path has odd length; otherwise it is zero
// padding. Remaining nibbles pack two-per-byte, high nibble first.
func hpEncode(path Nibbles, flag bool) []byte {
	odd := len(path)%2 == 1

	first := byte(0)
	if flag {
		first |= hpFlagMask
	}

	rest := path
	if odd {
		first |= hpOddMask
		first |= path[0] & 0x0f
		rest = path[1:]
	}

	out := make([]byte, 1+len(rest)/2)
	out[0] = first
	for i := 0; i < len(rest); i += 2 {
		out[1+i/2] = (rest[i] << 4) | rest[i+1]
	}
	return out
}

// hpDecode reverses hpEncode, recovering both the nibble path and the flag
// bit. Decoding an empty byte string is a hard error: a valid encoding
// always carries at least the flag/parity byte.
func hpDecode(enc []byte) (path Nibbles, flag bool, err error) {
	if len(enc) == 0 {
		return nil, false, encodingErrorf("hex-prefix decode of empty byte string")
	}

	first := enc[0]
	flag = first&hpFlagMask != 0
	odd := first&hpOddMask != 0

	if odd {
		path = append(path, first&0x0f)
	}
	for _, b := range enc[1:] {
		path = append(path, b>>4, b&0x0f)
	}
	return path, flag, nil
}

package mpt

// Database is the abstract hash-addressed key-value store this trie
// commits into and reads from. Its implementation — persistence format,
// caching, batching — is outside this package's concerns; only this
// contract is specified.
type Database interface {
	// Insert stores value under hash. It is idempotent: inserting the same
	// hash twice may overwrite, but must not corrupt the entry.
	Insert(hash Hash, value []byte) error
	// Get returns the value last inserted under hash, or (nil, nil) if
	// hash is absent.
	Get(hash Hash) ([]byte, error)
	// Exists reports whether hash has an entry.
	Exists(hash Hash) (bool, error)
}

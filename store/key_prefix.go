package store

// Declare database key prefix for objects
const (
	PrefixAccount         = "account:"
	PrefixStateHashBySeq  = "state_hash:"
	PrefixLatestStateMeta = "state_meta:latest"
)

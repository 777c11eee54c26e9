package persistence

// KeyValueStore is the durable string key-value storage underneath the
// preload cache and the job status store. It deliberately exposes no
// errors: this layer is a cache, not a source of truth, so a failed write
// is logged and swallowed and callers keep working from memory.
type KeyValueStore interface {
	// Get returns the stored value and whether the key was present.
	Get(key string) (string, bool)
	// Set writes the value for key, best effort.
	Set(key, value string)
	// Remove deletes key, best effort.
	Remove(key string)
	// Clear deletes every key, best effort.
	Clear()
}

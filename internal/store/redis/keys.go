package redis

const (
	// keySchemaVersion holds the integer schema version of a store.
	keySchemaVersion = "schema_version"
	// keyEvents is the Pub/Sub channel suffix used by the sync bus.
	keyEvents = "events"
)

// keys derives every Redis key of one named store.
type keys struct {
	prefix string
}

func newKeys(storeName string) keys {
	return keys{prefix: storeName + ":"}
}

// Collection returns the hash holding a collection, e.g. "quranfi-db:bookmarks".
func (k keys) Collection(name string) string {
	return k.prefix + name
}

// Version returns the schema version key.
func (k keys) Version() string {
	return k.prefix + keySchemaVersion
}

// EventsChannel returns the Pub/Sub channel on which instances sharing the
// store named storeName announce bookmark changes.
func EventsChannel(storeName string) string {
	return newKeys(storeName).prefix + keyEvents
}

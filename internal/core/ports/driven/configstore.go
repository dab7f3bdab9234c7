package driven

// ConfigReader reads flat configuration addressed by dot keys such as
// "retrieval.top_k". Typed getters return the zero value for a key that
// is missing or does not convert.
type ConfigReader interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetStringSlice(key string) []string
}

// ConfigStore is a ConfigReader that can be edited and persisted.
type ConfigStore interface {
	ConfigReader

	// Set writes through to disk for file backed stores.
	Set(key string, value any) error
	Save() error
	Load() error
	// Path names the backing file, or describes the store when it has none.
	Path() string
}

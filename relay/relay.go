package relay

const (
	DefaultAppName     = "context-relay"
	DefaultConfigPath  = "$HOME/.config/context-relay"
	DefaultThreadsDir  = "./contexts"
	DefaultDatabaseDir = "./data"
	DefaultDatabaseDSN = "file:./data/relay.db"
	DefaultStoreType   = "json"
)

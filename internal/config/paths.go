package config

import "path/filepath"

// All shopstream-managed directories live under the home dir
// (~/.shopstream or SHOPSTREAM_HOME) so a deployment moves as one tree.

// Home returns the shopstream root directory (ResolveHome()).
func Home() string {
	return ResolveHome()
}

// DataDir returns the data directory, fixed at home/data.
func DataDir() string {
	return filepath.Join(Home(), "data")
}

// SessionDir returns where the client identity file lives, fixed at home/data/session.
func SessionDir() string {
	return filepath.Join(DataDir(), "session")
}

// UploadsDir returns the attachment store, fixed at home/tmp/uploads.
// Swept periodically; nothing durable belongs here.
func UploadsDir() string {
	return filepath.Join(Home(), "tmp", "uploads")
}

// LogsDir returns the log directory, fixed at home/logs.
func LogsDir() string {
	return filepath.Join(Home(), "logs")
}

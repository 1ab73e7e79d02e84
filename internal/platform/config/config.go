package config

import "os"

// ServerConfig carries the deployment-provided runtime switches.
type ServerConfig struct {
	Port string

	// StorageBackend selects "memory" or "postgres".
	StorageBackend string
	DatabaseURL    string

	// AuthMode selects "jwt" or "dev" (X-Debug-Subject shim for local work).
	AuthMode   string
	DevSubject string
}

func LoadServerConfigFromEnv() ServerConfig {
	return ServerConfig{
		Port:           getenv("PORT", "8080"),
		StorageBackend: getenv("STORAGE_BACKEND", "memory"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		AuthMode:       getenv("AUTH_MODE", "jwt"),
		DevSubject:     getenv("DEV_SUBJECT", "dev|local"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

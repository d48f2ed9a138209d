// Package env has tiny os.Getenv helpers for the few places that read
// the environment outside the envconfig-backed config struct.
package env

import "os"

// Get returns the value of key, or fallback when unset or empty.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

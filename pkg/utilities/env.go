package utilities

import "os"

// EnvOr returns the value of the environment variable or the default when
// it is unset or empty.
func EnvOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

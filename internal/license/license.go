// Package license validates Pro license keys.
package license

import "strings"

// KeyPrefix marks an EnvPatrol license key.
const KeyPrefix = "envp_"

// Valid reports whether key is a well-formed license key. Keys are checked
// offline by prefix only.
func Valid(key string) bool {
	return key != "" && strings.HasPrefix(key, KeyPrefix)
}

// Gate decides whether a paid feature may run.
type Gate struct {
	Paid bool
}

// Allow reports whether the feature is free or key unlocks it.
func (g Gate) Allow(key string) bool {
	return !g.Paid || Valid(key)
}

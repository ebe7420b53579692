package cache

import (
	"fmt"
	"strings"
)

// GenerateKey creates a cache key with prefix and ID.
func GenerateKey(prefix string, id string) string {
	return fmt.Sprintf("%s:%s", prefix, id)
}

// GenerateKeyWithParams creates a cache key with multiple parameters.
// Colons inside params are replaced so they cannot collide with the separator.
func GenerateKeyWithParams(prefix string, params ...interface{}) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, param := range params {
		b.WriteByte(':')
		b.WriteString(strings.ReplaceAll(fmt.Sprint(param), ":", "_"))
	}
	return b.String()
}

// BuildPattern creates a glob pattern for key matching.
func BuildPattern(prefix string) string {
	return fmt.Sprintf("%s*", prefix)
}

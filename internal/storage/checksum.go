package storage

import (
	"fmt"

	"github.com/OneOfOne/xxhash"
)

// Checksum identifies raw audio content for deduplication in the catalog.
func Checksum(raw []byte) string {
	return fmt.Sprintf("%016x", xxhash.Checksum64(raw))
}

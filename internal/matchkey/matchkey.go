// Package matchkey derives the deterministic fingerprints used to recognise the same
// product across stores.
package matchkey

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/pricelens/backend/internal/domain"
)

const separator = "|"

// Build returns the SHA-256 hex digest of
// normalized_name|brand|size.value|size.unit|size.pack_count, with absent parts empty.
// The brand is used exactly as given.
func Build(normalizedName string, brand *string, size domain.Size) string {
	return digest(fields(normalizedName, brand, size))
}

// Checksum is Build with the contributing store id prepended. It identifies a
// store's listing, not a product.
func Checksum(storeID, normalizedName string, brand *string, size domain.Size) string {
	return digest(append([]string{storeID}, fields(normalizedName, brand, size)...))
}

func fields(normalizedName string, brand *string, size domain.Size) []string {
	parts := []string{normalizedName, "", "", "", ""}
	if brand != nil {
		parts[1] = *brand
	}
	if size.Value != nil {
		parts[2] = strconv.FormatFloat(*size.Value, 'f', -1, 64)
	}
	if size.Unit != nil {
		parts[3] = *size.Unit
	}
	if size.PackCount != nil {
		parts[4] = strconv.Itoa(*size.PackCount)
	}
	return parts
}

func digest(parts []string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, separator)))
	return hex.EncodeToString(sum[:])
}

package labeling

import (
	"regexp"
	"strings"

	"github.com/erp/labelstation/internal/domain/shared"
)

// inventoryBinPattern is NN-C-N-NC: two digits, a letter, a digit, then digit + letter
var inventoryBinPattern = regexp.MustCompile(`^\d{2}-[A-Z]-\d-\d[A-Z]$`)

// InventoryBin identifies a physical storage slot, e.g. "02-C-4-1A"
type InventoryBin string

// IsValidInventoryBin reports whether s matches the NN-C-N-NC format exactly.
// Lowercase letters are rejected; callers normalise operator input first.
func IsValidInventoryBin(s string) bool {
	return inventoryBinPattern.MatchString(s)
}

// NormalizeInventoryBin trims whitespace and upper-cases operator input
func NormalizeInventoryBin(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NewInventoryBin normalises and validates an inventory bin code
func NewInventoryBin(s string) (InventoryBin, error) {
	normalized := NormalizeInventoryBin(s)
	if !IsValidInventoryBin(normalized) {
		return "", shared.NewDomainError("INVALID_INVENTORY_BIN",
			"Inventory bin must match the format NN-C-N-NC, e.g. 02-C-4-1A")
	}
	return InventoryBin(normalized), nil
}

// String returns the string representation of InventoryBin
func (b InventoryBin) String() string {
	return string(b)
}

package model

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// CatalogKey identifies a purchasable unit. VariantID is zero when the
// product itself is ordered.
type CatalogKey struct {
	ProductID int64
	VariantID int64
}

func (k CatalogKey) HasVariant() bool {
	return k.VariantID != 0
}

func (k CatalogKey) String() string {
	if k.HasVariant() {
		return fmt.Sprintf("variant %d of product %d", k.VariantID, k.ProductID)
	}
	return fmt.Sprintf("product %d", k.ProductID)
}

// Less orders keys by product then variant. Stock rows are locked in this
// order so that concurrent checkouts cannot deadlock on each other.
func (k CatalogKey) Less(other CatalogKey) bool {
	if k.ProductID != other.ProductID {
		return k.ProductID < other.ProductID
	}
	return k.VariantID < other.VariantID
}

// CatalogEntry is the authoritative price and stock of a catalog key at the
// moment it was read.
type CatalogEntry struct {
	Key            CatalogKey
	Name           string
	UnitPrice      decimal.Decimal
	AvailableStock int
	Active         bool
}

// Quantities sums the requested quantity per catalog key. The same key may
// appear on several lines of one cart.
func Quantities(items []LineItem) map[CatalogKey]int {
	out := make(map[CatalogKey]int, len(items))
	for _, item := range items {
		out[item.Key()] += item.Quantity
	}
	return out
}

// SortedKeys returns the keys of quantities in lock order.
func SortedKeys(quantities map[CatalogKey]int) []CatalogKey {
	keys := make([]CatalogKey, 0, len(quantities))
	for k := range quantities {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

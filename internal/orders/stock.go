package orders

import (
	"slices"

	"github.com/ariefcatur/mars-shop.git/internal/catalog"
)

// ApplyStock moves stock on products for every item whose product is present and
// returns the sorted ids of the products it changed.
func ApplyStock(items []Item, dir catalog.Direction, products map[int64]*catalog.Product) []int64 {
	if dir == 0 {
		return nil
	}
	var touched []int64
	for _, it := range items {
		if it.ProductID == 0 || it.Quantity <= 0 {
			continue
		}
		p, ok := products[int64(it.ProductID)]
		if !ok {
			continue
		}
		p.AdjustStock(it.Quantity, it.Size, dir)
		touched = append(touched, p.ID)
	}
	slices.Sort(touched)
	return slices.Compact(touched)
}

func productIDs(items []Item) []int64 {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		if it.ProductID != 0 {
			ids = append(ids, int64(it.ProductID))
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

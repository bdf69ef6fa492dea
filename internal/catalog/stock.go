package catalog

type Direction int

const (
	Decrease Direction = iota + 1
	Increase
)

func (d Direction) String() string {
	switch d {
	case Decrease:
		return "decrease"
	case Increase:
		return "increase"
	default:
		return "none"
	}
}

// AdjustStock moves qty units on the aggregate counter and, when size is set, on every size
// entry whose id or name equals size. Decreases floor at zero; increases have no ceiling.
func (p *Product) AdjustStock(qty int, size string, dir Direction) {
	p.Stock = adjust(p.Stock, qty, dir)
	if size == "" {
		return
	}
	for i := range p.Sizes {
		s := &p.Sizes[i]
		if s.ID == size || s.Name == size {
			s.Stock = adjust(s.Stock, qty, dir)
		}
	}
}

func adjust(stock, qty int, dir Direction) int {
	switch dir {
	case Decrease:
		return max(0, stock-qty)
	case Increase:
		return stock + qty
	default:
		return stock
	}
}

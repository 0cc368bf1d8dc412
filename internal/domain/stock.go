package domain

import "strings"

// RecomputeTotal clamps every quantity at zero and derives TotalQuantity from
// the variants or the standalone count, never from the previous total.
func (p *Product) RecomputeTotal() {
	if p.StandaloneQuantity < 0 {
		p.StandaloneQuantity = 0
	}
	if !p.HasVariants {
		p.TotalQuantity = p.StandaloneQuantity
		return
	}
	total := 0
	for i := range p.Variants {
		if p.Variants[i].Quantity < 0 {
			p.Variants[i].Quantity = 0
		}
		total += p.Variants[i].Quantity
	}
	p.TotalQuantity = total
}

// FindVariant matches by id first, then by case-insensitive name.
func (p *Product) FindVariant(id VariantID, name string) (int, bool) {
	if id != "" {
		for i, v := range p.Variants {
			if v.ID == id {
				return i, true
			}
		}
		return -1, false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return -1, false
	}
	for i, v := range p.Variants {
		if strings.EqualFold(v.Name, name) {
			return i, true
		}
	}
	return -1, false
}

// ApplyDelta moves stock for the product or one of its variants and returns
// the resulting quantity of the touched bucket.
func (p *Product) ApplyDelta(variantID VariantID, variantName string, delta int) (int, error) {
	if !p.HasVariants {
		p.StandaloneQuantity += delta
		p.RecomputeTotal()
		return p.StandaloneQuantity, nil
	}
	idx, ok := p.FindVariant(variantID, variantName)
	if !ok {
		if variantID == "" && strings.TrimSpace(variantName) == "" {
			return 0, NewValidationError("variant", "required for products with variants")
		}
		return 0, ErrNotFound
	}
	p.Variants[idx].Quantity += delta
	p.RecomputeTotal()
	return p.Variants[idx].Quantity, nil
}

// Available reports the stock a sale could draw from.
func (p Product) Available(variantID VariantID, variantName string) int {
	if !p.HasVariants {
		return max(p.StandaloneQuantity, 0)
	}
	idx, ok := p.FindVariant(variantID, variantName)
	if !ok {
		return 0
	}
	return max(p.Variants[idx].Quantity, 0)
}

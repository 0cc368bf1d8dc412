package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"kasbook/backend/internal/domain"
	"kasbook/backend/internal/store"
	"kasbook/backend/internal/xid"
)

type VariantInput struct {
	ID       domain.VariantID `json:"id,omitempty"`
	Name     string           `json:"name"`
	Quantity int              `json:"quantity"`
	SKU      string           `json:"sku,omitempty"`
}

type ProductInput struct {
	Name               string           `json:"name"`
	Description        string           `json:"description,omitempty"`
	Category           string           `json:"category,omitempty"`
	SKU                string           `json:"sku,omitempty"`
	Price              decimal.Decimal  `json:"price"`
	Cost               *decimal.Decimal `json:"cost,omitempty"`
	HasVariants        bool             `json:"hasVariants"`
	Variants           []VariantInput   `json:"variants,omitempty"`
	StandaloneQuantity int              `json:"standaloneQuantity"`
}

// ProductUpdate changes only the fields that are set. Variants, when set,
// replace the whole variant list; entries carrying a known id keep it.
type ProductUpdate struct {
	Name               *string          `json:"name,omitempty"`
	Description        *string          `json:"description,omitempty"`
	Category           *string          `json:"category,omitempty"`
	SKU                *string          `json:"sku,omitempty"`
	Price              *decimal.Decimal `json:"price,omitempty"`
	Cost               *decimal.Decimal `json:"cost,omitempty"`
	HasVariants        *bool            `json:"hasVariants,omitempty"`
	Variants           []VariantInput   `json:"variants,omitempty"`
	StandaloneQuantity *int             `json:"standaloneQuantity,omitempty"`
}

// StockRequest is one line of a pending sale checked against stock.
type StockRequest struct {
	ProductID   domain.ProductID `json:"productId"`
	VariantID   domain.VariantID `json:"variantId,omitempty"`
	VariantName string           `json:"variantName,omitempty"`
	Quantity    int              `json:"quantity"`
}

type Inventory struct {
	mu       sync.Mutex
	products *store.Collection[domain.Product]
	deps     Deps
}

func NewInventory(products *store.Collection[domain.Product], deps Deps) *Inventory {
	return &Inventory{products: products, deps: deps.withDefaults()}
}

func (s *Inventory) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	all, err := s.products.Get(ctx)
	if err != nil {
		return nil, err
	}

	search := normalizeSearch(filter.SearchTerm)
	category := strings.TrimSpace(filter.Category)
	out := make([]domain.Product, 0, len(all))
	for _, p := range all {
		p.RecomputeTotal()
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		if filter.LowStock != nil && p.TotalQuantity > *filter.LowStock {
			continue
		}
		if search != "" && !productMatches(p, search) {
			continue
		}
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func productMatches(p domain.Product, search string) bool {
	if containsFold(p.Name, search) || containsFold(p.Description, search) ||
		containsFold(p.Category, search) || containsFold(p.SKU, search) {
		return true
	}
	for _, v := range p.Variants {
		if containsFold(v.SKU, search) || containsFold(v.Name, search) {
			return true
		}
	}
	return false
}

func (s *Inventory) GetByID(ctx context.Context, id domain.ProductID) (domain.Product, error) {
	all, err := s.products.Get(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	idx := indexOfProduct(all, id)
	if idx < 0 {
		return domain.Product{}, s.deps.fail(domain.ErrNotFound, "product not found")
	}
	p := all[idx]
	p.RecomputeTotal()
	return p, nil
}

func (s *Inventory) Create(ctx context.Context, in ProductInput) (domain.Product, error) {
	if err := validateProduct(in.Name, in.Price, in.Cost, in.HasVariants, in.Variants); err != nil {
		return domain.Product{}, s.deps.fail(err, "invalid product")
	}

	now := s.deps.Now()
	p := domain.Product{
		ID:                 domain.ProductID(xid.New("prd")),
		Name:               strings.TrimSpace(in.Name),
		Description:        strings.TrimSpace(in.Description),
		Category:           strings.TrimSpace(in.Category),
		SKU:                strings.TrimSpace(in.SKU),
		Price:              in.Price,
		Cost:               in.Cost,
		CreatedAt:          now,
		UpdatedAt:          now,
		HasVariants:        in.HasVariants,
		Variants:           buildVariants(nil, in.Variants),
		StandaloneQuantity: in.StandaloneQuantity,
	}
	if p.HasVariants {
		p.StandaloneQuantity = 0
	}
	p.RecomputeTotal()

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.products.Get(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	if err := s.products.Save(ctx, append(all, p)); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func (s *Inventory) Update(ctx context.Context, id domain.ProductID, req ProductUpdate) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.products.Get(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	idx := indexOfProduct(all, id)
	if idx < 0 {
		return domain.Product{}, s.deps.fail(domain.ErrNotFound, "product not found")
	}

	updated := all[idx]
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		updated.Category = strings.TrimSpace(*req.Category)
	}
	if req.SKU != nil {
		updated.SKU = strings.TrimSpace(*req.SKU)
	}
	if req.Price != nil {
		updated.Price = *req.Price
	}
	if req.Cost != nil {
		cost := *req.Cost
		updated.Cost = &cost
	}
	if req.HasVariants != nil {
		updated.HasVariants = *req.HasVariants
	}
	if req.Variants != nil {
		updated.Variants = buildVariants(updated.Variants, req.Variants)
	}
	if req.StandaloneQuantity != nil {
		updated.StandaloneQuantity = *req.StandaloneQuantity
	}

	inputs := make([]VariantInput, 0, len(updated.Variants))
	for _, v := range updated.Variants {
		inputs = append(inputs, VariantInput{ID: v.ID, Name: v.Name})
	}
	if err := validateProduct(updated.Name, updated.Price, updated.Cost, updated.HasVariants, inputs); err != nil {
		return domain.Product{}, s.deps.fail(err, "invalid product")
	}

	updated.UpdatedAt = s.deps.Now()
	updated.RecomputeTotal()
	all[idx] = updated
	if err := s.products.Save(ctx, all); err != nil {
		return domain.Product{}, err
	}
	return updated, nil
}

func (s *Inventory) Delete(ctx context.Context, id domain.ProductID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.products.Get(ctx)
	if err != nil {
		return err
	}
	idx := indexOfProduct(all, id)
	if idx < 0 {
		return s.deps.fail(domain.ErrNotFound, "product not found")
	}
	return s.products.Save(ctx, append(all[:idx], all[idx+1:]...))
}

// UpdateVariantQuantity sets a variant's stock to an absolute count, clamped
// at zero.
func (s *Inventory) UpdateVariantQuantity(ctx context.Context, productID domain.ProductID, variantID domain.VariantID, quantity int) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.products.Get(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	idx := indexOfProduct(all, productID)
	if idx < 0 {
		return domain.Product{}, s.deps.fail(domain.ErrNotFound, "product not found")
	}
	p := all[idx]
	vi, ok := p.FindVariant(variantID, "")
	if !p.HasVariants || !ok {
		return domain.Product{}, s.deps.fail(domain.ErrNotFound, "variant not found")
	}

	p.Variants[vi].Quantity = quantity
	p.RecomputeTotal()
	p.UpdatedAt = s.deps.Now()
	all[idx] = p
	if err := s.products.Save(ctx, all); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

// AdjustStock applies a single stock movement.
func (s *Inventory) AdjustStock(ctx context.Context, adj domain.StockAdjustment) (domain.StockAdjustmentResult, error) {
	results, err := s.BatchAdjustStock(ctx, []domain.StockAdjustment{adj})
	if err != nil {
		return domain.StockAdjustmentResult{}, err
	}
	if !results[0].OK {
		return results[0], s.deps.fail(adjustmentError(results[0]), "stock adjustment failed")
	}
	return results[0], nil
}

// BatchAdjustStock applies every adjustment on its own: a failing item does
// not undo the others. All successful items are persisted with one save; if
// that save fails none of them are.
func (s *Inventory) BatchAdjustStock(ctx context.Context, adjustments []domain.StockAdjustment) ([]domain.StockAdjustmentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.products.Get(ctx)
	if err != nil {
		return nil, err
	}

	now := s.deps.Now()
	results := make([]domain.StockAdjustmentResult, 0, len(adjustments))
	changed := false
	for _, adj := range adjustments {
		result := domain.StockAdjustmentResult{ProductID: adj.ProductID}
		idx := indexOfProduct(all, adj.ProductID)
		if idx < 0 {
			result.Error = "product not found"
			results = append(results, result)
			continue
		}

		p := all[idx]
		qty, err := p.ApplyDelta(adj.VariantID, adj.VariantName, adj.QuantityDelta)
		if err != nil {
			result.Error = describeStockError(err)
			results = append(results, result)
			continue
		}
		p.UpdatedAt = now
		all[idx] = p
		changed = true

		result.OK = true
		result.Quantity = qty
		results = append(results, result)
	}

	if changed {
		if err := s.products.Save(ctx, all); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// CheckAvailability re-reads the latest stock and reports every line that
// asks for more than is on hand.
func (s *Inventory) CheckAvailability(ctx context.Context, lines []StockRequest) ([]domain.StockShortage, error) {
	all, err := s.products.Reload(ctx)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		product domain.ProductID
		variant string
	}
	type demand struct {
		line      StockRequest
		requested int
	}
	demands := make(map[bucket]*demand)
	order := make([]bucket, 0, len(lines))
	for _, line := range lines {
		variant := string(line.VariantID)
		if variant == "" {
			variant = strings.ToLower(strings.TrimSpace(line.VariantName))
		}
		b := bucket{product: line.ProductID, variant: variant}
		d, ok := demands[b]
		if !ok {
			d = &demand{line: line}
			demands[b] = d
			order = append(order, b)
		}
		d.requested += line.Quantity
	}

	shortages := make([]domain.StockShortage, 0)
	for _, b := range order {
		d := demands[b]
		shortage := domain.StockShortage{
			ProductID:   b.product,
			VariantName: d.line.VariantName,
			Requested:   d.requested,
		}
		if idx := indexOfProduct(all, b.product); idx >= 0 {
			shortage.ProductName = all[idx].Name
			shortage.Available = all[idx].Available(d.line.VariantID, d.line.VariantName)
		}
		if shortage.Available < shortage.Requested {
			shortages = append(shortages, shortage)
		}
	}
	return shortages, nil
}

func validateProduct(name string, price decimal.Decimal, cost *decimal.Decimal, hasVariants bool, variants []VariantInput) error {
	var v domain.Validation
	v.Check(strings.TrimSpace(name) != "", "name", "is required")
	v.Check(!price.IsNegative(), "price", "must not be negative")
	if cost != nil {
		v.Check(!cost.IsNegative(), "cost", "must not be negative")
	}
	if hasVariants {
		v.Check(len(variants) > 0, "variants", "at least one variant is required")
		seen := make(map[string]bool, len(variants))
		for _, variant := range variants {
			key := strings.ToLower(strings.TrimSpace(variant.Name))
			if key == "" {
				v.Add("variants", "variant name is required")
				continue
			}
			if seen[key] {
				v.Add("variants", "duplicate variant name "+variant.Name)
			}
			seen[key] = true
		}
	}
	return v.Err()
}

func buildVariants(existing []domain.ProductVariant, inputs []VariantInput) []domain.ProductVariant {
	known := make(map[domain.VariantID]bool, len(existing))
	for _, v := range existing {
		known[v.ID] = true
	}
	out := make([]domain.ProductVariant, 0, len(inputs))
	for _, in := range inputs {
		id := in.ID
		if id == "" || (existing != nil && !known[id]) {
			id = domain.VariantID(xid.New("var"))
		}
		out = append(out, domain.ProductVariant{
			ID:       id,
			Name:     strings.TrimSpace(in.Name),
			Quantity: in.Quantity,
			SKU:      strings.TrimSpace(in.SKU),
		})
	}
	return out
}

func indexOfProduct(all []domain.Product, id domain.ProductID) int {
	for i := range all {
		if all[i].ID == id {
			return i
		}
	}
	return -1
}

func describeStockError(err error) string {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, domain.ErrNotFound):
		return "variant not found"
	default:
		return err.Error()
	}
}

func adjustmentError(result domain.StockAdjustmentResult) error {
	switch result.Error {
	case "product not found", "variant not found":
		return domain.ErrNotFound
	default:
		return domain.NewValidationError("stock", result.Error)
	}
}

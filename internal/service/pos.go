package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"kasbook/backend/internal/domain"
)

const (
	saleCategory     = "sales"
	purchaseCategory = "purchases"
)

// CartLine is one line of a sale or purchase. UnitCost falls back to the
// product's recorded cost when unset.
type CartLine struct {
	ProductID   domain.ProductID `json:"productId"`
	ProductName string           `json:"productName,omitempty"`
	VariantID   domain.VariantID `json:"variantId,omitempty"`
	VariantName string           `json:"variantName,omitempty"`
	Quantity    int              `json:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unitPrice"`
	UnitCost    *decimal.Decimal `json:"unitCost,omitempty"`
}

type Receipt struct {
	Transaction domain.Transaction             `json:"transaction"`
	Stock       []domain.StockAdjustmentResult `json:"stock"`
	SupplierID  domain.ContactID               `json:"supplierId,omitempty"`
}

// POS ties a cart to stock movements and a single ledger transaction.
type POS struct {
	inventory *Inventory
	ledger    *Ledger
	contacts  *Contacts
	deps      Deps
}

func NewPOS(inventory *Inventory, ledger *Ledger, contacts *Contacts, deps Deps) *POS {
	return &POS{inventory: inventory, ledger: ledger, contacts: contacts, deps: deps.withDefaults()}
}

// CheckStock reads the latest stock and lists the lines that cannot be
// covered. Call it right before CompleteSale.
func (p *POS) CheckStock(ctx context.Context, lines []CartLine) ([]domain.StockShortage, error) {
	requests := make([]StockRequest, 0, len(lines))
	for _, line := range lines {
		requests = append(requests, StockRequest{
			ProductID:   line.ProductID,
			VariantID:   line.VariantID,
			VariantName: line.VariantName,
			Quantity:    line.Quantity,
		})
	}
	return p.inventory.CheckAvailability(ctx, requests)
}

// CompleteSale takes the cart out of stock and records one inflow carrying
// the cost of goods sold. Stock failures are logged and do not stop the sale;
// quantities that would go negative are clamped at zero.
func (p *POS) CompleteSale(ctx context.Context, lines []CartLine, paymentMethod string) (Receipt, error) {
	if err := validateCart(lines); err != nil {
		return Receipt{}, p.deps.fail(err, "invalid sale")
	}
	lines = p.resolveLines(ctx, lines)

	total := decimal.Zero
	cogs := decimal.Zero
	items := make([]domain.LineItem, 0, len(lines))
	adjustments := make([]domain.StockAdjustment, 0, len(lines))
	for _, line := range lines {
		qty := decimal.NewFromInt(int64(line.Quantity))
		total = total.Add(line.UnitPrice.Mul(qty))
		if line.UnitCost != nil {
			cogs = cogs.Add(line.UnitCost.Mul(qty))
		}
		items = append(items, toLineItem(line))
		adjustments = append(adjustments, domain.StockAdjustment{
			ProductID:     line.ProductID,
			VariantID:     line.VariantID,
			VariantName:   line.VariantName,
			QuantityDelta: -line.Quantity,
		})
	}

	stock := p.adjust(ctx, adjustments, "sale")

	tx, err := p.ledger.Add(ctx, NewTransaction{
		Type:          domain.TransactionInflow,
		Description:   cartDescription("Sale", lines),
		Amount:        total,
		Category:      saleCategory,
		PaymentMethod: paymentMethod,
		Items:         items,
		COGS:          &cogs,
	})
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{Transaction: tx, Stock: stock}, nil
}

// CompletePurchase is the mirror of CompleteSale: stock goes up and one
// outflow is recorded. A named supplier is looked up, and created when
// missing, in the contact directory.
func (p *POS) CompletePurchase(ctx context.Context, lines []CartLine, supplier string, paymentMethod string) (Receipt, error) {
	if err := validateCart(lines); err != nil {
		return Receipt{}, p.deps.fail(err, "invalid purchase")
	}
	lines = p.resolveLines(ctx, lines)

	total := decimal.Zero
	items := make([]domain.LineItem, 0, len(lines))
	adjustments := make([]domain.StockAdjustment, 0, len(lines))
	for _, line := range lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		items = append(items, toLineItem(line))
		adjustments = append(adjustments, domain.StockAdjustment{
			ProductID:     line.ProductID,
			VariantID:     line.VariantID,
			VariantName:   line.VariantName,
			QuantityDelta: line.Quantity,
		})
	}

	stock := p.adjust(ctx, adjustments, "purchase")

	description := cartDescription("Purchase", lines)
	supplier = strings.TrimSpace(supplier)
	var supplierID domain.ContactID
	if supplier != "" {
		description = fmt.Sprintf("%s from %s", description, supplier)
		supplierID = p.ensureSupplier(ctx, supplier)
	}

	tx, err := p.ledger.Add(ctx, NewTransaction{
		Type:          domain.TransactionOutflow,
		Description:   description,
		Amount:        total,
		Category:      purchaseCategory,
		PaymentMethod: paymentMethod,
		Reference:     string(supplierID),
		Items:         items,
	})
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{Transaction: tx, Stock: stock, SupplierID: supplierID}, nil
}

func (p *POS) adjust(ctx context.Context, adjustments []domain.StockAdjustment, op string) []domain.StockAdjustmentResult {
	results, err := p.inventory.BatchAdjustStock(ctx, adjustments)
	if err != nil {
		p.deps.Log.Warn().Err(err).Str("op", op).Msg("stock not updated")
		return nil
	}
	for _, r := range results {
		if !r.OK {
			p.deps.Log.Warn().Str("op", op).Str("product_id", string(r.ProductID)).Str("reason", r.Error).Msg("stock adjustment failed")
		}
	}
	return results
}

// resolveLines fills product names and missing unit costs from the catalog.
// Lines whose product no longer exists keep what the caller sent.
func (p *POS) resolveLines(ctx context.Context, lines []CartLine) []CartLine {
	catalog, err := p.inventory.products.Get(ctx)
	if err != nil {
		return lines
	}
	out := make([]CartLine, len(lines))
	for i, line := range lines {
		if idx := indexOfProduct(catalog, line.ProductID); idx >= 0 {
			product := catalog[idx]
			if strings.TrimSpace(line.ProductName) == "" {
				line.ProductName = product.Name
			}
			if line.UnitCost == nil && product.Cost != nil {
				cost := *product.Cost
				line.UnitCost = &cost
			}
		}
		out[i] = line
	}
	return out
}

func (p *POS) ensureSupplier(ctx context.Context, name string) domain.ContactID {
	if p.contacts == nil {
		return ""
	}
	found, ok, err := p.contacts.FindByName(ctx, name, domain.ContactSupplier)
	if err != nil {
		p.deps.Log.Warn().Err(err).Str("supplier", name).Msg("supplier lookup failed")
		return ""
	}
	if ok {
		return found.ID
	}
	created, err := p.contacts.Create(ctx, NewContact{Type: domain.ContactSupplier, Name: name})
	if err != nil {
		p.deps.Log.Warn().Err(err).Str("supplier", name).Msg("supplier not recorded")
		return ""
	}
	return created.ID
}

func validateCart(lines []CartLine) error {
	var v domain.Validation
	v.Check(len(lines) > 0, "items", "cart is empty")
	total := decimal.Zero
	for i, line := range lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		field := fmt.Sprintf("items[%d]", i)
		v.Check(line.ProductID != "", field+".productId", "is required")
		v.Check(line.Quantity > 0, field+".quantity", "must be greater than zero")
		v.Check(!line.UnitPrice.IsNegative(), field+".unitPrice", "must not be negative")
		if line.UnitCost != nil {
			v.Check(!line.UnitCost.IsNegative(), field+".unitCost", "must not be negative")
		}
	}
	if len(lines) > 0 {
		// Ledger amounts are strictly positive, so a free cart has nothing to record.
		v.Check(total.IsPositive(), "total", "must be greater than zero")
	}
	return v.Err()
}

func toLineItem(line CartLine) domain.LineItem {
	return domain.LineItem{
		ProductID:   line.ProductID,
		ProductName: line.ProductName,
		Quantity:    line.Quantity,
		UnitPrice:   line.UnitPrice,
		VariantName: line.VariantName,
	}
}

func cartDescription(prefix string, lines []CartLine) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		name := defaultString(line.ProductName, string(line.ProductID))
		if line.VariantName != "" {
			name = fmt.Sprintf("%s (%s)", name, line.VariantName)
		}
		parts = append(parts, fmt.Sprintf("%dx %s", line.Quantity, name))
	}
	return fmt.Sprintf("%s: %s", prefix, strings.Join(parts, ", "))
}

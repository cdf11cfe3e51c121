package commission

import (
	"math"
	"time"

	"titipjual/backend/internal/domain"
	"titipjual/backend/internal/xid"
)

// Calculator turns a settled sale into per-seller commission rows. Rate
// resolution is per line: a category override for (seller, line item's
// category) wins over the seller's default rate, so different items in one
// sale may pay the same seller at different rates.
type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

// Compute builds one Commission per seller assigned to the sale's location.
// items must cover every line's item (for category lookup); overrides maps
// sellerID -> categoryID -> rate percent. Rows are created unpaid.
func (c *Calculator) Compute(
	sale domain.Sale,
	items map[string]domain.Item,
	sellers []domain.Seller,
	overrides map[string]map[string]float64,
) []domain.Commission {
	now := time.Now().UTC()
	commissions := make([]domain.Commission, 0, len(sellers))

	for _, seller := range sellers {
		if !seller.Active {
			continue
		}

		amountCents := int64(0)
		for _, line := range sale.Lines {
			rate := seller.DefaultRate
			if item, ok := items[line.ItemID]; ok && item.CategoryID != "" {
				if byCategory, ok := overrides[seller.ID]; ok {
					if override, ok := byCategory[item.CategoryID]; ok {
						rate = override
					}
				}
			}
			amountCents += int64(math.Round(float64(line.SubtotalCents) * rate / 100))
		}

		commissions = append(commissions, domain.Commission{
			ID:          xid.New("com"),
			SellerID:    seller.ID,
			SaleID:      sale.ID,
			AmountCents: amountCents,
			Paid:        false,
			CreatedAt:   now,
		})
	}

	return commissions
}

package availability

import (
	"titipjual/backend/internal/domain"
)

// Resolver classifies sellable quantities and derives combo availability
// from component stock. It is pure: the caller hands in point-in-time stock
// and open-reservation maps for the location being queried.
type Resolver struct {
	lowStockThreshold int
}

func NewResolver(lowStockThreshold int) *Resolver {
	if lowStockThreshold < 1 {
		lowStockThreshold = 3
	}
	return &Resolver{lowStockThreshold: lowStockThreshold}
}

// Classify maps a sellable quantity onto a stock badge.
func (r *Resolver) Classify(quantity int) string {
	switch {
	case quantity <= 0:
		return domain.StockStatusOut
	case quantity <= r.lowStockThreshold:
		return domain.StockStatusLow
	default:
		return domain.StockStatusIn
	}
}

// ResolveSimple computes availability for a non-combo item:
// sellable = on-hand minus open pending holds.
func (r *Resolver) ResolveSimple(item domain.Item, locationID string, stock map[string]int, reserved map[string]int) domain.ItemAvailability {
	available := stock[item.ID] - reserved[item.ID]
	if available < 0 {
		available = 0
	}
	return domain.ItemAvailability{
		ItemID:     item.ID,
		LocationID: locationID,
		Quantity:   available,
		Status:     r.Classify(available),
	}
}

// ResolveCombo derives a combo's sellable quantity as the minimum of
// floor(componentAvailable / requiredQty) across all components: the combo
// is only as available as its scarcest ingredient. A combo with zero
// components is reported in-stock with Unconstrained set; callers must
// branch on that flag instead of treating Quantity as meaningful.
func (r *Resolver) ResolveCombo(item domain.Item, locationID string, stock map[string]int, reserved map[string]int) domain.ItemAvailability {
	if len(item.Components) == 0 {
		return domain.ItemAvailability{
			ItemID:        item.ID,
			LocationID:    locationID,
			Status:        domain.StockStatusIn,
			IsCombo:       true,
			Unconstrained: true,
		}
	}

	unitsSellable := -1
	limitingItemID := ""
	for _, component := range item.Components {
		required := component.Quantity
		if required < 1 {
			required = 1
		}
		componentAvailable := stock[component.ItemID] - reserved[component.ItemID]
		if componentAvailable < 0 {
			componentAvailable = 0
		}
		units := componentAvailable / required
		if unitsSellable < 0 || units < unitsSellable {
			unitsSellable = units
			limitingItemID = component.ItemID
		}
	}

	return domain.ItemAvailability{
		ItemID:         item.ID,
		LocationID:     locationID,
		Quantity:       unitsSellable,
		Status:         r.Classify(unitsSellable),
		IsCombo:        true,
		LimitingItemID: limitingItemID,
	}
}

// Resolve dispatches on the item variant.
func (r *Resolver) Resolve(item domain.Item, locationID string, stock map[string]int, reserved map[string]int) domain.ItemAvailability {
	if item.IsCombo {
		return r.ResolveCombo(item, locationID, stock, reserved)
	}
	return r.ResolveSimple(item, locationID, stock, reserved)
}

// ComponentIDs returns the ledger keys a combo reads from, used by callers
// to fetch stock and reservation maps in one round trip.
func ComponentIDs(item domain.Item) []string {
	if !item.IsCombo {
		return []string{item.ID}
	}
	ids := make([]string, 0, len(item.Components))
	for _, component := range item.Components {
		ids = append(ids, component.ItemID)
	}
	return ids
}

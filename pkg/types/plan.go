package types

type PaymentProvider string

const (
	PaymentProviderStripe PaymentProvider = "stripe"
)

// PlanTier is the entitlement tier a user is billed for.
type PlanTier string

const (
	PlanFree    PlanTier = "free"
	PlanComfort PlanTier = "comfort"
	PlanLegacy  PlanTier = "legacy"
)

// Role returns the authorization role string mirrored onto the user record.
func (p PlanTier) Role() string {
	switch p {
	case PlanComfort:
		return "COMFORT"
	case PlanLegacy:
		return "LEGACY"
	default:
		return "FREE"
	}
}

// PlanItem describes one purchasable plan: the provider price that maps to it,
// its price snapshot and the token grant attached to it.
// TokensIncluded == 0 means unlimited (legacy tier).
type PlanItem struct {
	Plan            PlanTier `json:"plan" mapstructure:"plan"`
	ProviderPriceID string   `json:"provider_price_id" mapstructure:"provider_price_id"`
	PriceNickname   string   `json:"price_nickname" mapstructure:"price_nickname"`
	// Price in minor currency units.
	Price          int64 `json:"price" mapstructure:"price"`
	TokensIncluded int64 `json:"tokens_included" mapstructure:"tokens_included"`
}

// PlanTable is an immutable price→plan lookup built from configuration and
// injected into the reconciliation services.
type PlanTable struct {
	items []*PlanItem
}

func NewPlanTable(items []*PlanItem) *PlanTable {
	cp := make([]*PlanItem, len(items))
	copy(cp, items)
	return &PlanTable{items: cp}
}

// ByPriceID resolves a provider price identifier to a plan item, nil if unmapped.
func (t *PlanTable) ByPriceID(priceID string) *PlanItem {
	if t == nil || priceID == "" {
		return nil
	}
	for _, item := range t.items {
		if item.ProviderPriceID == priceID {
			return item
		}
	}
	return nil
}

// ByNickname resolves a price nickname to a plan item, nil if unmapped.
func (t *PlanTable) ByNickname(nickname string) *PlanItem {
	if t == nil || nickname == "" {
		return nil
	}
	for _, item := range t.items {
		if item.PriceNickname == nickname {
			return item
		}
	}
	return nil
}

// ByPlan returns the configured item for a tier, nil for tiers without one (free).
func (t *PlanTable) ByPlan(plan PlanTier) *PlanItem {
	if t == nil {
		return nil
	}
	for _, item := range t.items {
		if item.Plan == plan {
			return item
		}
	}
	return nil
}

// PriceLevel returns the comparable price of a tier; free is always 0.
func (t *PlanTable) PriceLevel(plan PlanTier) int64 {
	if plan == PlanFree {
		return 0
	}
	if item := t.ByPlan(plan); item != nil {
		return item.Price
	}
	return 0
}

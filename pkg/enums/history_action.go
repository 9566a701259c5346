package enums

import "fmt"

// HistoryAction identifies the kind of mutation recorded in item_history and user_history.
type HistoryAction string

const (
	HistoryActionCreated          HistoryAction = "created"
	HistoryActionNameChanged      HistoryAction = "name_changed"
	HistoryActionWeightChanged    HistoryAction = "weight_changed"
	HistoryActionCategoryChanged  HistoryAction = "category_changed"
	HistoryActionPurchased        HistoryAction = "purchased"
	HistoryActionBuyPriceChanged  HistoryAction = "buy_price_changed"
	HistoryActionSellPriceChanged HistoryAction = "sell_price_changed"
	HistoryActionQuantityChanged  HistoryAction = "quantity_changed"
	HistoryActionDeposited        HistoryAction = "deposited"
)

var validHistoryActions = []HistoryAction{
	HistoryActionCreated,
	HistoryActionNameChanged,
	HistoryActionWeightChanged,
	HistoryActionCategoryChanged,
	HistoryActionPurchased,
	HistoryActionBuyPriceChanged,
	HistoryActionSellPriceChanged,
	HistoryActionQuantityChanged,
	HistoryActionDeposited,
}

// IsValid reports whether the value matches a known history action.
func (a HistoryAction) IsValid() bool {
	for _, candidate := range validHistoryActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// IsUserAction reports whether the action belongs to user_history rather than item_history.
func (a HistoryAction) IsUserAction() bool {
	return a == HistoryActionDeposited
}

// ParseHistoryAction converts raw input into HistoryAction.
func ParseHistoryAction(value string) (HistoryAction, error) {
	for _, candidate := range validHistoryActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid history action %q", value)
}

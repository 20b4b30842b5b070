package alert

// Classification is the threshold state of an inventory record.
type Classification string

const (
	ClassificationNormal    Classification = "normal"
	ClassificationLowStock  Classification = "low_stock"
	ClassificationOverstock Classification = "overstock"
)

// AlertWorthy reports whether the classification should produce alerts.
func (c Classification) AlertWorthy() bool {
	return c == ClassificationLowStock || c == ClassificationOverstock
}

// Classify returns the threshold state for a quantity. A nil threshold is
// treated as unset. Low stock is checked first, so a degenerate configuration
// where max_stock <= min_stock still classifies deterministically.
// Negative quantities are invalid upstream; they classify as normal so a bad
// write never fans out alerts.
func Classify(quantity int, minStock, maxStock *int) Classification {
	if quantity < 0 {
		return ClassificationNormal
	}
	if minStock != nil && quantity <= *minStock {
		return ClassificationLowStock
	}
	if maxStock != nil && quantity >= *maxStock {
		return ClassificationOverstock
	}
	return ClassificationNormal
}

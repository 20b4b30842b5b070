package alert

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
		minStock *int
		maxStock *int
		expected Classification
	}{
		{"both thresholds unset", 10, nil, nil, ClassificationNormal},
		{"within range", 50, intPtr(10), intPtr(100), ClassificationNormal},
		{"at minimum", 10, intPtr(10), intPtr(100), ClassificationLowStock},
		{"below minimum", 3, intPtr(10), intPtr(100), ClassificationLowStock},
		{"at maximum", 100, intPtr(10), intPtr(100), ClassificationOverstock},
		{"above maximum", 150, intPtr(10), intPtr(100), ClassificationOverstock},
		{"only min set, low", 0, intPtr(5), nil, ClassificationLowStock},
		{"only min set, normal", 6, intPtr(5), nil, ClassificationNormal},
		{"only max set, over", 20, nil, intPtr(20), ClassificationOverstock},
		{"only max set, normal", 19, nil, intPtr(20), ClassificationNormal},
		{"zero quantity no thresholds", 0, nil, nil, ClassificationNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.quantity, tt.minStock, tt.maxStock))
		})
	}
}

func TestClassify_LowStockPrecedence(t *testing.T) {
	// min == max and the quantity equals both: low stock wins.
	assert.Equal(t, ClassificationLowStock, Classify(5, intPtr(5), intPtr(5)))

	// Degenerate config where max < min: still low stock first.
	assert.Equal(t, ClassificationLowStock, Classify(7, intPtr(10), intPtr(5)))
}

func TestClassify_NegativeQuantityIsNormal(t *testing.T) {
	// Upstream guarantees quantity >= 0; a negative value must never alert.
	assert.Equal(t, ClassificationNormal, Classify(-1, intPtr(10), intPtr(100)))
	assert.Equal(t, ClassificationNormal, Classify(-1, nil, nil))
}

func TestClassification_AlertWorthy(t *testing.T) {
	assert.False(t, ClassificationNormal.AlertWorthy())
	assert.True(t, ClassificationLowStock.AlertWorthy())
	assert.True(t, ClassificationOverstock.AlertWorthy())
}

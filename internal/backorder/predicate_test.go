package backorder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intp(v int) *int { return &v }

func TestRequiresConfirmation(t *testing.T) {
	tests := []struct {
		name    string
		stock   *int
		allowed bool
		qty     int
		want    bool
	}{
		{"qty_over_stock", intp(5), true, 6, true},
		{"qty_equals_stock", intp(5), true, 5, false},
		{"qty_under_stock", intp(5), true, 4, false},
		{"untracked_stock", nil, true, 100, false},
		{"backorders_disallowed", intp(5), false, 6, false},
		{"zero_stock", intp(0), true, 1, true},
		{"negative_stock", intp(-2), true, 1, true},
		{"disallowed_and_untracked", nil, false, 10, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RequiresConfirmation(tt.stock, tt.allowed, tt.qty))
		})
	}
}

func TestSnapshotOnBackorder(t *testing.T) {
	s := Snapshot{Stock: intp(3), BackordersAllowed: true, Notify: true}
	assert.True(t, s.OnBackorder(4))
	assert.False(t, s.OnBackorder(3))
	assert.True(t, s.RequiresNotification(4))

	quiet := Snapshot{Stock: intp(3), BackordersAllowed: true, Notify: false}
	assert.True(t, quiet.OnBackorder(4))
	assert.False(t, quiet.RequiresNotification(4))
}

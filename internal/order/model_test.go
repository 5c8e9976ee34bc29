package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrder_CanBeReturned(t *testing.T) {
	deliveredAt := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	delivered := func() *Order {
		return &Order{Status: StatusDelivered, ActualDeliveryDate: &deliveredAt}
	}

	t.Run("ExactlyAtWindowBoundary", func(t *testing.T) {
		// The boundary is inclusive.
		assert.True(t, delivered().CanBeReturned(deliveredAt.Add(ReturnWindow)))
	})

	t.Run("OneSecondPastBoundary", func(t *testing.T) {
		assert.False(t, delivered().CanBeReturned(deliveredAt.Add(ReturnWindow+time.Second)))
	})

	t.Run("WithinWindow", func(t *testing.T) {
		assert.True(t, delivered().CanBeReturned(deliveredAt.Add(10*24*time.Hour)))
	})

	t.Run("NotDelivered", func(t *testing.T) {
		o := &Order{Status: StatusShipped, ActualDeliveryDate: &deliveredAt}
		assert.False(t, o.CanBeReturned(deliveredAt.Add(time.Hour)))
	})

	t.Run("NoDeliveryDateRecorded", func(t *testing.T) {
		o := &Order{Status: StatusDelivered}
		assert.False(t, o.CanBeReturned(deliveredAt))
	})
}

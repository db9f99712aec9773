package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampAcceptsMillisAndRFC3339(t *testing.T) {
	var a, b struct {
		CreatedAt Timestamp `json:"createdAt"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"createdAt":1700000000000}`), &a))
	require.NoError(t, json.Unmarshal([]byte(`{"createdAt":"2023-11-14T22:13:20Z"}`), &b))

	assert.True(t, a.CreatedAt.Equal(b.CreatedAt.Time))
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), a.CreatedAt.UTC())
}

func TestOrderPriceWrittenAsNumber(t *testing.T) {
	o := Order{Price: decimal.NewFromInt(500), Status: OrderStatusPending}
	data, err := json.Marshal(o)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"price":500`)
	assert.Contains(t, string(data), `"createdAt":null`)
}

func TestOrderTransitions(t *testing.T) {
	o := Order{Status: OrderStatusPending, PaymentStatus: PaymentStatusUnpaid}
	assert.True(t, o.Cancellable())
	assert.True(t, o.Payable())

	next, ok := o.NextStatus()
	assert.True(t, ok)
	assert.Equal(t, OrderStatusShipped, next)

	o.Status = OrderStatusDelivered
	_, ok = o.NextStatus()
	assert.False(t, ok)
	assert.False(t, o.Cancellable())
}

func TestRoleJSON(t *testing.T) {
	var body struct {
		Role Role `json:"role"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"role":"Librarian"}`), &body))
	assert.Equal(t, RoleLibrarian, body.Role)

	require.NoError(t, json.Unmarshal([]byte(`{"role":"wizard"}`), &body))
	assert.Equal(t, RoleUnknown, body.Role)

	data, err := json.Marshal(RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, `"admin"`, string(data))
}

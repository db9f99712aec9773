package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"bookcourier/internal/httpclient"
	"bookcourier/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathsAreEscaped(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(httpclient.New(srv.URL, 0))
	_, err := c.CustomerOrders(context.Background(), "a b@x.io")
	require.NoError(t, err)
	assert.Equal(t, "/my-orders/a%20b@x.io", gotPath)
}

func TestRoleDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/role/l@x.io", r.URL.Path)
		_, _ = w.Write([]byte(`{"role":"librarian"}`))
	}))
	defer srv.Close()

	role, err := NewClient(httpclient.New(srv.URL, 0)).Role(context.Background(), "l@x.io")
	require.NoError(t, err)
	assert.Equal(t, models.RoleLibrarian, role)
}

func TestCheckoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var got map[string]any
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, "O1", got["orderId"])
		assert.Equal(t, "c@x.io", got["customer_email"])
		assert.Equal(t, float64(500), got["price"])
		_, _ = w.Write([]byte(`{"url":"https://checkout.test/cs_test_1"}`))
	}))
	defer srv.Close()

	session, err := NewClient(httpclient.New(srv.URL, 0)).CreateCheckoutSession(context.Background(), models.CheckoutRequest{
		Price:         decimal.NewFromInt(500),
		OrderID:       "O1",
		CustomerEmail: "c@x.io",
		BookName:      "Dune",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.test/cs_test_1", session.URL)
}

func TestCancelOrderUsesPatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/cancel-order/O1", r.URL.Path)
		_, _ = w.Write([]byte(`{"modifiedCount":1}`))
	}))
	defer srv.Close()

	res, err := NewClient(httpclient.New(srv.URL, 0)).CancelOrder(context.Background(), "O1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ModifiedCount)
}

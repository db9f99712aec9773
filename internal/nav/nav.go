// Package nav maps a resolved role to the dashboard sections it may see.
package nav

import (
	"net/url"
	"strings"

	"bookcourier/internal/models"
)

// MenuItem is one dashboard entry.
type MenuItem struct {
	Label   string `json:"label"`
	Segment string `json:"segment"`
}

const (
	SegmentIndex            = ""
	SegmentProfile          = "profile"
	SegmentPaymentSuccess   = "payment-success"
	SegmentPaymentCancelled = "payment-cancelled"

	SegmentMyOrders   = "my-orders"
	SegmentInvoices   = "invoices"
	SegmentWishlist   = "wish-list"
	SegmentAddBook    = "add-book"
	SegmentMyBooks    = "my-books"
	SegmentOrders     = "orders"
	SegmentEditBook   = "edit-book"
	SegmentAllUsers   = "all-users"
	SegmentManageBook = "manage-books"
)

// LoginPath is where unauthenticated dashboard requests are sent.
const LoginPath = "/login"

// DashboardPrefix is the path every guarded route lives under.
const DashboardPrefix = "/dashboard"

// MenusFor returns the ordered sections for role. Unknown roles get none.
func MenusFor(role models.Role) []MenuItem {
	switch role {
	case models.RoleCustomer:
		return []MenuItem{
			{Label: "My Orders", Segment: SegmentMyOrders},
			{Label: "Invoices", Segment: SegmentInvoices},
			{Label: "My Wishlist", Segment: SegmentWishlist},
		}
	case models.RoleLibrarian:
		return []MenuItem{
			{Label: "Add Book", Segment: SegmentAddBook},
			{Label: "My Books", Segment: SegmentMyBooks},
			{Label: "Orders", Segment: SegmentOrders},
		}
	case models.RoleAdmin:
		return []MenuItem{
			{Label: "All Users", Segment: SegmentAllUsers},
			{Label: "Manage Books", Segment: SegmentManageBook},
		}
	case models.RoleUnknown:
		return []MenuItem{}
	}
	return []MenuItem{}
}

// hidden lists sections reachable from within another section but never shown
// in the menu.
func hidden(role models.Role) []string {
	switch role {
	case models.RoleLibrarian:
		return []string{SegmentEditBook}
	}
	return nil
}

// RoleAgnostic reports whether segment is open to every signed-in user.
func RoleAgnostic(segment string) bool {
	switch segment {
	case SegmentIndex, SegmentProfile, SegmentPaymentSuccess, SegmentPaymentCancelled:
		return true
	}
	return false
}

// CanEnter reports whether role may open the dashboard section segment.
func CanEnter(segment string, role models.Role) bool {
	segment = strings.Trim(segment, "/")
	if RoleAgnostic(segment) {
		return true
	}
	for _, m := range MenusFor(role) {
		if m.Segment == segment {
			return true
		}
	}
	for _, s := range hidden(role) {
		if s == segment {
			return true
		}
	}
	return false
}

// Segment extracts the first path element below /dashboard. ok is false for
// paths outside the dashboard.
func Segment(path string) (string, bool) {
	if path != DashboardPrefix && !strings.HasPrefix(path, DashboardPrefix+"/") {
		return "", false
	}
	rest := strings.Trim(strings.TrimPrefix(path, DashboardPrefix), "/")
	seg, _, _ := strings.Cut(rest, "/")
	return seg, true
}

// LoginRedirect builds the login URL that returns to requestURI after sign-in.
func LoginRedirect(requestURI string) string {
	return LoginPath + "?" + url.Values{"redirect": {requestURI}}.Encode()
}

// SafeRedirect returns target if it is a local path, else the dashboard index.
func SafeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return DashboardPrefix
	}
	return target
}

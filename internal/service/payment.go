package service

import (
	"bookcourier/internal/nav"
)

// PaymentView is the landing page the payment processor redirects back to.
// Rendering it makes no backend call; the backend records the payment itself.
type PaymentView struct {
	Status    string `json:"status"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
	Link      string `json:"link"`
	LinkLabel string `json:"linkLabel"`
}

// PaymentSucceeded renders the success landing for the checkout session id.
func PaymentSucceeded(sessionID string) PaymentView {
	return PaymentView{
		Status:    "success",
		Title:     "Payment Successful!",
		Message:   "Thank you for your purchase. Your transaction has been completed successfully.",
		SessionID: sessionID,
		Link:      nav.DashboardPrefix + "/" + nav.SegmentMyOrders,
		LinkLabel: "Continue",
	}
}

// PaymentCancelled renders the landing for an abandoned checkout.
func PaymentCancelled() PaymentView {
	return PaymentView{
		Status:    "cancelled",
		Title:     "Payment Canceled",
		Message:   "Your transaction was canceled. No payment was completed.",
		Link:      nav.DashboardPrefix + "/" + nav.SegmentMyOrders,
		LinkLabel: "Try Again",
	}
}

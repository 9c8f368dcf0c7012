package httpserver

import "net/http"

// Routes groups handlers.
type Routes struct {
	Login   http.HandlerFunc
	Refresh http.HandlerFunc
	Logout  http.HandlerFunc

	Profile        http.HandlerFunc
	UpdateProfile  http.HandlerFunc
	Settings       http.HandlerFunc
	UpdateSetting  http.HandlerFunc
	PaymentMethods http.HandlerFunc
	History        http.HandlerFunc
	HistoryStats   http.HandlerFunc

	SessionCreate http.HandlerFunc
	SessionGet    http.HandlerFunc
	SessionStart  http.HandlerFunc
	SessionEnd    http.HandlerFunc
	SessionRate   http.HandlerFunc

	MpesaInitiate  http.HandlerFunc
	PaymentConfirm http.HandlerFunc
	CardInitiate   http.HandlerFunc
	BankConfirm    http.HandlerFunc

	Receipt         http.HandlerFunc
	ReceiptDocument http.HandlerFunc

	ChatJoin http.HandlerFunc

	Health http.HandlerFunc
}

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// NewRouter registers endpoints. Everything except login and health sits
// behind the auth middleware.
func NewRouter(routes Routes, auth Middleware) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /auth/login", routes.Login)
	mux.Handle("GET /health", routes.Health)

	protected := func(pattern string, handler http.HandlerFunc) {
		mux.Handle(pattern, auth(handler))
	}

	protected("POST /auth/refresh", routes.Refresh)
	protected("POST /auth/logout", routes.Logout)

	protected("GET /me/profile", routes.Profile)
	protected("PATCH /me/profile", routes.UpdateProfile)
	protected("GET /me/settings", routes.Settings)
	protected("PATCH /me/settings", routes.UpdateSetting)
	protected("GET /me/payment-methods", routes.PaymentMethods)
	protected("GET /me/history", routes.History)
	protected("GET /me/history/stats", routes.HistoryStats)

	protected("POST /sessions", routes.SessionCreate)
	protected("GET /sessions/{id}", routes.SessionGet)
	protected("POST /sessions/{id}/start", routes.SessionStart)
	protected("POST /sessions/{id}/end", routes.SessionEnd)
	protected("POST /sessions/{id}/rate", routes.SessionRate)

	protected("POST /payments/mpesa", routes.MpesaInitiate)
	protected("POST /payments/confirm", routes.PaymentConfirm)
	protected("POST /payments/card", routes.CardInitiate)
	protected("POST /payments/bank/confirm", routes.BankConfirm)

	protected("GET /sessions/{id}/receipt", routes.Receipt)
	protected("GET /sessions/{id}/receipt/document", routes.ReceiptDocument)

	protected("GET /ws/sessions/{id}/chat", routes.ChatJoin)

	return mux
}

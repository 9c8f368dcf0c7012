package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"quickconnect/internal/models"
)

// Candidate path sets for operations whose upstream route naming is unstable.
// Order matters: the resolver stops at the first success.
var (
	profileCandidates = []string{"/api/user/profile/", "/api/auth/user/", "/api/user/", "/api/me/"}

	settingsWriteCandidates = []string{"/api/user/settings/", "/api/settings/"}

	historyCandidates = []string{"/api/sessions/history/", "/api/sessions/", "/api/user/sessions/", "/api/chat-sessions/"}

	paymentMethodCandidates = []string{"/api/payment/methods/", "/api/user/payment-methods/", "/api/payment-methods/"}

	logoutCandidates = []string{"/api/auth/logout/", "/api/user/logout/", "/api/logout/"}
)

// Client exposes typed operations on the consultation backend. Every call
// takes the caller's upstream token explicitly; there is no ambient
// credential state.
type Client struct {
	resolver *Resolver
	logger   *zap.Logger
}

// NewClient wraps a resolver with typed operations.
func NewClient(resolver *Resolver, logger *zap.Logger) *Client {
	return &Client{resolver: resolver, logger: logger}
}

// Profile is the normalised view of a user account. The upstream spells the
// same fields several ways depending on which route answered.
type Profile struct {
	ID        int64
	Username  string
	Email     string
	FirstName string
	LastName  string
	Phone     string
	UserType  string
	JoinedAt  string
}

type profileDTO struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"user_id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	FirstNameAlt string `json:"firstName"`
	LastName     string `json:"last_name"`
	LastNameAlt  string `json:"lastName"`
	Phone        string `json:"phone"`
	PhoneNumber  string `json:"phone_number"`
	UserType     string `json:"user_type"`
	Role         string `json:"role"`
	CreatedAt    string `json:"created_at"`
	DateJoined   string `json:"date_joined"`
}

func (d profileDTO) normalize() *Profile {
	p := &Profile{
		ID:        d.ID,
		Username:  coalesce(d.Username, d.Email),
		Email:     d.Email,
		FirstName: coalesce(d.FirstName, d.FirstNameAlt),
		LastName:  coalesce(d.LastName, d.LastNameAlt),
		Phone:     coalesce(d.Phone, d.PhoneNumber),
		UserType:  coalesce(d.UserType, d.Role, "client"),
		JoinedAt:  coalesce(d.CreatedAt, d.DateJoined),
	}
	if p.ID == 0 {
		p.ID = d.UserID
	}
	return p
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// LoginResult carries the upstream token and account issued at login.
type LoginResult struct {
	Token string `json:"token"`
	User  *Profile
}

// Login authenticates against the upstream and returns its opaque token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	res, err := c.resolver.Resolve(ctx, Request{
		Method:     http.MethodPost,
		Candidates: []string{"/api/login/"},
		Body:       body,
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Token string     `json:"token"`
		User  profileDTO `json:"user"`
	}
	if err := json.Unmarshal(res.Body, &payload); err != nil {
		return nil, fmt.Errorf("upstream: decode login response: %w", err)
	}
	if payload.Token == "" {
		return nil, fmt.Errorf("upstream: login response missing token")
	}
	return &LoginResult{Token: payload.Token, User: payload.User.normalize()}, nil
}

// Logout notifies the upstream that the token is being discarded.
// Best-effort: any candidate failure falls through.
func (c *Client) Logout(ctx context.Context, token string) error {
	_, err := c.resolver.Resolve(ctx, Request{
		Method:     http.MethodPost,
		Candidates: logoutCandidates,
		Token:      token,
		Policy:     FallthroughAll,
	})
	return err
}

// Profile fetches the caller's account, walking the unstable profile routes.
func (c *Client) Profile(ctx context.Context, token string) (*Profile, string, error) {
	res, err := c.resolver.Resolve(ctx, Request{
		Method:     http.MethodGet,
		Candidates: profileCandidates,
		Token:      token,
	})
	if err != nil {
		return nil, "", err
	}

	var dto profileDTO
	if err := json.Unmarshal(res.Body, &dto); err != nil {
		return nil, res.Path, fmt.Errorf("upstream: decode profile: %w", err)
	}
	return dto.normalize(), res.Path, nil
}

// UpdateProfile patches account fields on whichever profile route answers.
func (c *Client) UpdateProfile(ctx context.Context, token string, fields map[string]any) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	_, err = c.resolver.Resolve(ctx, Request{
		Method:     http.MethodPatch,
		Candidates: profileCandidates,
		Body:       body,
		Token:      token,
	})
	return err
}

// Settings is the subset of user preferences the app manages.
type Settings struct {
	PushNotifications *bool `json:"push_notifications,omitempty"`
	EmailUpdates      *bool `json:"email_updates,omitempty"`
}

// Settings fetches user preferences. Best-effort: callers substitute
// defaults when no route answers.
func (c *Client) Settings(ctx context.Context, token string, userID int64) (*Settings, error) {
	candidates := []string{
		fmt.Sprintf("/api/user/%d/settings/", userID),
		"/api/user/settings/",
		"/api/settings/",
	}
	res, err := c.resolver.Resolve(ctx, Request{
		Method:     http.MethodGet,
		Candidates: candidates,
		Token:      token,
		Policy:     FallthroughAll,
	})
	if err != nil {
		return nil, err
	}

	var settings Settings
	if err := json.Unmarshal(res.Body, &settings); err != nil {
		return nil, fmt.Errorf("upstream: decode settings: %w", err)
	}
	return &settings, nil
}

// UpdateSetting patches a single preference key.
func (c *Client) UpdateSetting(ctx context.Context, token string, userID int64, key string, value any) error {
	body, err := json.Marshal(map[string]any{key: value, "user_id": userID})
	if err != nil {
		return err
	}
	_, err = c.resolver.Resolve(ctx, Request{
		Method:     http.MethodPatch,
		Candidates: settingsWriteCandidates,
		Body:       body,
		Token:      token,
		Policy:     FallthroughAll,
	})
	return err
}

// SessionRecord is one history entry as delivered by the upstream.
type SessionRecord struct {
	ID               int64   `json:"id"`
	ProfessionalName string  `json:"professional_name"`
	SessionType      string  `json:"session_type"`
	Status           string  `json:"status"`
	Duration         float64 `json:"duration"`
	Cost             float64 `json:"cost"`
	Rate             float64 `json:"rate"`
	CreatedAt        string  `json:"created_at"`
	EndedAt          string  `json:"ended_at"`
}

// SessionHistory lists the caller's past sessions. The payload arrives as a
// bare array or nested under sessions/results/data depending on the route.
func (c *Client) SessionHistory(ctx context.Context, token string) ([]SessionRecord, error) {
	res, err := c.resolver.Resolve(ctx, Request{
		Method:     http.MethodGet,
		Candidates: historyCandidates,
		Token:      token,
	})
	if err != nil {
		return nil, err
	}
	return DecodeList[SessionRecord](res.Body, "sessions", "results", "data")
}

// PaymentMethodRecord is one stored payment instrument.
type PaymentMethodRecord struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Label     string `json:"label"`
	IsDefault bool   `json:"is_default"`
}

// PaymentMethods lists stored instruments. Best-effort.
func (c *Client) PaymentMethods(ctx context.Context, token string) ([]PaymentMethodRecord, error) {
	res, err := c.resolver.Resolve(ctx, Request{
		Method:     http.MethodGet,
		Candidates: paymentMethodCandidates,
		Token:      token,
		Policy:     FallthroughAll,
	})
	if err != nil {
		return nil, err
	}
	return DecodeList[PaymentMethodRecord](res.Body, "methods", "payment_methods", "results", "data")
}

// CreateSessionInput is the payload for upstream session creation.
type CreateSessionInput struct {
	ProfessionalID int64   `json:"professional_id"`
	ClientID       int64   `json:"client_id"`
	SessionType    string  `json:"session_type"`
	Category       string  `json:"category"`
	Rate           float64 `json:"rate"`
}

// CreateSession registers a new session upstream and returns its id.
func (c *Client) CreateSession(ctx context.Context, token string, in CreateSessionInput) (int64, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return 0, err
	}
	res, err := c.resolver.Resolve(ctx, Request{
		Method:     http.MethodPost,
		Candidates: []string{"/api/sessions/create/"},
		Body:       body,
		Token:      token,
	})
	if err != nil {
		return 0, err
	}

	var payload struct {
		ID      int64 `json:"id"`
		Session struct {
			ID int64 `json:"id"`
		} `json:"session"`
	}
	if err := json.Unmarshal(res.Body, &payload); err != nil {
		return 0, fmt.Errorf("upstream: decode session create: %w", err)
	}
	if payload.ID != 0 {
		return payload.ID, nil
	}
	return payload.Session.ID, nil
}

// UpdateSession posts a lifecycle action (start_chat, start_voice, start_video).
func (c *Client) UpdateSession(ctx context.Context, token string, sessionID int64, status, action string) error {
	body, _ := json.Marshal(map[string]any{
		"sessionId": sessionID,
		"status":    status,
		"action":    action,
	})
	_, err := c.resolver.Resolve(ctx, Request{
		Method:     http.MethodPost,
		Candidates: []string{"/api/sessions/update/"},
		Body:       body,
		Token:      token,
	})
	return err
}

// EndSession marks the session completed upstream.
func (c *Client) EndSession(ctx context.Context, token string, sessionID int64, endedAt string) error {
	body, _ := json.Marshal(map[string]any{
		"sessionId": sessionID,
		"endedAt":   endedAt,
	})
	_, err := c.resolver.Resolve(ctx, Request{
		Method:     http.MethodPost,
		Candidates: []string{"/api/sessions/end/"},
		Body:       body,
		Token:      token,
	})
	return err
}

// RateSession submits a star rating with an optional review.
func (c *Client) RateSession(ctx context.Context, token string, sessionID int64, rating int, review string) error {
	body, _ := json.Marshal(map[string]any{
		"sessionId": sessionID,
		"rating":    rating,
		"review":    review,
	})
	_, err := c.resolver.Resolve(ctx, Request{
		Method:     http.MethodPost,
		Candidates: []string{"/api/sessions/rate/"},
		Body:       body,
		Token:      token,
	})
	return err
}

// Availability asks whether a professional can take a voice/video call now.
func (c *Client) Availability(ctx context.Context, token string, professionalID int64, consultationType models.ConsultationType) (bool, error) {
	path := fmt.Sprintf("/api/professionals/%d/availability/?type=%s", professionalID, consultationType)
	res, err := c.resolver.Resolve(ctx, Request{
		Method:     http.MethodGet,
		Candidates: []string{path},
		Token:      token,
	})
	if err != nil {
		return false, err
	}

	var payload struct {
		Available bool `json:"available"`
	}
	if err := json.Unmarshal(res.Body, &payload); err != nil {
		return false, fmt.Errorf("upstream: decode availability: %w", err)
	}
	return payload.Available, nil
}

// STKPushInput is the M-Pesa initiation payload. Field names follow the
// upstream contract.
type STKPushInput struct {
	PhoneNumber      string `json:"phoneNumber"`
	Amount           int64  `json:"amount"`
	ProfessionalID   int64  `json:"professionalId"`
	SessionID        int64  `json:"sessionId"`
	ConsultationType string `json:"consultationType"`
	AccountReference string `json:"accountReference"`
	TransactionDesc  string `json:"transactionDesc"`
}

// STKPushResult is what the upstream reports after triggering the push.
type STKPushResult struct {
	Success           bool   `json:"success"`
	CheckoutRequestID string `json:"checkout_request_id"`
	TransactionID     string `json:"transaction_id"`
	Message           string `json:"message"`
}

// InitiateSTKPush asks the upstream to trigger an M-Pesa prompt on the
// user's phone.
func (c *Client) InitiateSTKPush(ctx context.Context, token string, in STKPushInput) (*STKPushResult, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	res, err := c.resolver.Resolve(ctx, Request{
		Method:     http.MethodPost,
		Candidates: []string{"/api/initiate-mpesa-stk-push/"},
		Body:       body,
		Token:      token,
	})
	if err != nil {
		return nil, err
	}

	var result STKPushResult
	if err := json.Unmarshal(res.Body, &result); err != nil {
		return nil, fmt.Errorf("upstream: decode stk push response: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("upstream: stk push rejected: %s", result.Message)
	}
	if result.CheckoutRequestID == "" {
		result.CheckoutRequestID = result.TransactionID
	}
	return &result, nil
}

// CardPaymentInput is the card initiation payload.
type CardPaymentInput struct {
	Amount         int64  `json:"amount"`
	ProfessionalID int64  `json:"professionalId"`
	SessionID      int64  `json:"sessionId"`
	Email          string `json:"email"`
}

// CardPaymentResult carries the gateway redirect for the card flow.
type CardPaymentResult struct {
	Success     bool   `json:"success"`
	RedirectURL string `json:"redirect_url"`
	PaymentURL  string `json:"payment_url"`
	Reference   string `json:"reference"`
}

// InitiateCardPayment starts the card redirect flow.
func (c *Client) InitiateCardPayment(ctx context.Context, token string, in CardPaymentInput) (*CardPaymentResult, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	res, err := c.resolver.Resolve(ctx, Request{
		Method:     http.MethodPost,
		Candidates: []string{"/api/initiate-card-payment/"},
		Body:       body,
		Token:      token,
	})
	if err != nil {
		return nil, err
	}

	var result CardPaymentResult
	if err := json.Unmarshal(res.Body, &result); err != nil {
		return nil, fmt.Errorf("upstream: decode card payment response: %w", err)
	}
	if result.RedirectURL == "" {
		result.RedirectURL = result.PaymentURL
	}
	if result.RedirectURL == "" {
		return nil, fmt.Errorf("upstream: card payment response missing redirect url")
	}
	return &result, nil
}

// PaymentStatus fetches the authoritative state of a payment. The gateway
// polls this instead of trusting the client's "I've paid" assertion.
func (c *Client) PaymentStatus(ctx context.Context, token, checkoutID string) (string, error) {
	res, err := c.resolver.Resolve(ctx, Request{
		Method:     http.MethodGet,
		Candidates: []string{fmt.Sprintf("/api/payments/%s/status/", checkoutID)},
		Token:      token,
	})
	if err != nil {
		return "", err
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(res.Body, &payload); err != nil {
		return "", fmt.Errorf("upstream: decode payment status: %w", err)
	}
	return payload.Status, nil
}

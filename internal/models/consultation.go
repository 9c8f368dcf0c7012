package models

import "time"

// ConsultationType is the channel of a session. Each type carries its own
// price multiplier.
type ConsultationType string

const (
	TypeChat  ConsultationType = "chat"
	TypeAudio ConsultationType = "audio"
	TypeVideo ConsultationType = "video"
)

// KnownType reports whether t is one of the supported consultation channels.
// "voice" is accepted as a legacy alias for audio.
func KnownType(t ConsultationType) bool {
	switch t {
	case TypeChat, TypeAudio, TypeVideo:
		return true
	}
	return false
}

// NormalizeType maps legacy aliases onto canonical consultation types.
func NormalizeType(raw string) ConsultationType {
	if raw == "voice" {
		return TypeAudio
	}
	return ConsultationType(raw)
}

// Professional is the provider a client books a consultation with. Sourced
// from the upstream directory; immutable within one booking flow.
type Professional struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Specialization string  `json:"specialization"`
	Category       string  `json:"category"`
	Rate           float64 `json:"rate"`
	Available      bool    `json:"available"`
	AverageRating  float64 `json:"average_rating"`
	TotalSessions  int     `json:"total_sessions"`
	Experience     string  `json:"experience,omitempty"`
}

// Session is one consultation engagement between a client and a professional.
type Session struct {
	ID               int64            `db:"id" json:"id"`
	UpstreamID       int64            `db:"upstream_id" json:"upstream_id"`
	UserID           int64            `db:"user_id" json:"user_id"`
	ProfessionalID   int64            `db:"professional_id" json:"professional_id"`
	ProfessionalName string           `db:"professional_name" json:"professional_name"`
	Category         string           `db:"category" json:"category"`
	Type             ConsultationType `db:"consultation_type" json:"consultation_type"`
	State            string           `db:"state" json:"state"`
	RateSnapshot     float64          `db:"rate_snapshot" json:"rate_snapshot"`
	Amount           int64            `db:"amount" json:"amount"`
	Rating           int              `db:"rating" json:"rating,omitempty"`
	Review           string           `db:"review" json:"review,omitempty"`
	StartedAt        time.Time        `db:"started_at" json:"started_at,omitempty"`
	EndedAt          time.Time        `db:"ended_at" json:"ended_at,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// PaymentMethod is how a consultation is paid for.
type PaymentMethod string

const (
	MethodMpesa PaymentMethod = "mpesa"
	MethodCard  PaymentMethod = "card"
	MethodBank  PaymentMethod = "bank"
)

// Transaction status values.
const (
	TxPending   = "pending"
	TxCompleted = "completed"
	TxFailed    = "failed"
	TxRefunded  = "refunded"
)

// Transaction is the local projection of one payment. A transaction always
// references exactly one session. Synthesized records stand in for server
// records the gateway failed to obtain after an externally successful payment.
type Transaction struct {
	ID             string        `db:"id" json:"id"`
	SessionID      int64         `db:"session_id" json:"session_id"`
	UserID         int64         `db:"user_id" json:"user_id"`
	ProfessionalID int64         `db:"professional_id" json:"professional_id"`
	Amount         int64         `db:"amount" json:"amount"`
	Currency       string        `db:"currency" json:"currency"`
	Method         PaymentMethod `db:"method" json:"method"`
	Status         string        `db:"status" json:"status"`
	CheckoutID     string        `db:"checkout_id" json:"checkout_id,omitempty"`
	Synthesized    bool          `db:"synthesized" json:"synthesized,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

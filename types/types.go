// Package types defines the shared domain model for the entrygate payment
// flow: products, invites, wallet descriptors, payment attempts and the wire
// contract of the external Verification Service.
package types

import (
	"fmt"
	"time"
)

// InviteType classifies promotional codes.
type InviteType string

const (
	InviteWhitelist InviteType = "whitelist"
	InviteStandard  InviteType = "standard"
)

// PaymentProduct is a purchasable entry tier.
type PaymentProduct struct {
	ID            string  `json:"id"`
	BaseAmountUSD float64 `json:"baseAmountUsd"`
	Tier          string  `json:"tier"`
	Active        bool    `json:"active"`
}

// DefaultProduct returns the single active product from the list.
// Exactly one product is expected to be active; the first active one wins.
func DefaultProduct(products []PaymentProduct) (*PaymentProduct, error) {
	for i := range products {
		if products[i].Active {
			return &products[i], nil
		}
	}
	return nil, &Error{Code: ErrNoActiveProduct, Message: "no active payment product configured"}
}

// InviteRecord is a promotional code that can override the effective price.
// At most one of PriceOverride, EntryPriceCents and EntryPrice is
// authoritative, in that precedence order.
type InviteRecord struct {
	ID              string     `json:"id"`
	Type            InviteType `json:"type"`
	PriceOverride   *float64   `json:"priceOverride,omitempty"`
	EntryPriceCents *int64     `json:"entryPriceCents,omitempty"`
	EntryPrice      *float64   `json:"entryPrice,omitempty"`
	MaxUses         int        `json:"maxUses"`
	UsesCount       int        `json:"usesCount"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
	Status          string     `json:"status"`
}

// WalletDescriptor describes a detected or connected wallet. Connected
// implies a non-empty Address. Provider holds the untrusted injected handle
// and is only meaningful to the capability that produced it.
type WalletDescriptor struct {
	Ecosystem Ecosystem `json:"ecosystem"`
	Label     string    `json:"label"`
	Address   string    `json:"address,omitempty"`
	Connected bool      `json:"connected"`
	Provider  any       `json:"-"`
}

// AttemptState tracks a payment attempt through the orchestrator.
type AttemptState string

const (
	StateIdle           AttemptState = "idle"
	StateConnecting     AttemptState = "connecting"
	StateSwitchingChain AttemptState = "switching_chain"
	StateSending        AttemptState = "sending"
	StateSent           AttemptState = "sent"
	StateConfirming     AttemptState = "confirming"
	StateSuccess        AttemptState = "success"
	StatePending        AttemptState = "pending"
	StateError          AttemptState = "error"
)

// PaymentAttempt is one logical purchase flow. The idempotency key is stable
// for the lifetime of the attempt and cleared only after terminal success.
type PaymentAttempt struct {
	IdempotencyKey string        `json:"idempotencyKey"`
	ProductID      string        `json:"productId"`
	Ecosystem      Ecosystem     `json:"ecosystem"`
	Chain          string        `json:"chain"`
	AmountUSD      float64       `json:"amountUsd"`
	Invite         *InviteRecord `json:"invite,omitempty"`
	State          AttemptState  `json:"state"`
}

// VerificationRequest is the wire payload sent to the Verification Service.
// TxHash and ClaimedSenderWallet are attacker-supplied claims; the service
// treats them as unverified until matched against real chain data.
type VerificationRequest struct {
	ChainType           string   `json:"chainType" validate:"required"`
	Chain               string   `json:"chain" validate:"required"`
	TxHash              string   `json:"txHash"`
	ClaimedSenderWallet string   `json:"claimedSenderWallet"`
	ProductID           string   `json:"productId" validate:"required"`
	IdempotencyKey      string   `json:"idempotencyKey" validate:"required"`
	AmountOverrideUSD   *float64 `json:"amountOverrideUsd,omitempty"`
	InviteCodeID        string   `json:"inviteCodeId,omitempty"`
}

// VerificationStatus is the service's credit-or-reject decision.
type VerificationStatus string

const (
	VerificationSuccess VerificationStatus = "success"
	VerificationPending VerificationStatus = "pending"
	VerificationError   VerificationStatus = "error"
)

// VerificationResult is the wire response of the Verification Service.
// Pending is non-terminal: callers must not clear the idempotency key.
type VerificationResult struct {
	Status  VerificationStatus `json:"status"`
	Message string             `json:"message,omitempty"`
}

// Terminal reports whether the result ends the attempt.
func (r *VerificationResult) Terminal() bool {
	return r.Status == VerificationSuccess
}

// Error is the library-wide error type carrying a stable machine code and a
// human-readable message safe to surface in UI.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// Errorf builds an Error with a formatted message.
func Errorf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Common error codes.
const (
	ErrNoActiveProduct   = "NO_ACTIVE_PRODUCT"
	ErrNoWallet          = "NO_WALLET"
	ErrUserRejected      = "USER_REJECTED"
	ErrUnknownNetwork    = "UNKNOWN_NETWORK"
	ErrChainUnavailable  = "CHAIN_LIB_UNAVAILABLE"
	ErrManualPayment     = "MANUAL_PAYMENT_SUGGESTED"
	ErrInvalidAmount     = "INVALID_AMOUNT"
	ErrNotAuthenticated  = "NOT_AUTHENTICATED"
	ErrVerification      = "VERIFICATION_FAILED"
	ErrUnsupportedChain  = "UNSUPPORTED_CHAIN"
	ErrInvalidRequest    = "INVALID_REQUEST"
	ErrAttemptInProgress = "ATTEMPT_IN_PROGRESS"
)

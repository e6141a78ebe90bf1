// Package commit turns a proposed bid amount into a transmittable
// commitment digest while keeping the plaintext on the bidder's machine.
package commit

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrEmptyAmount   = errors.New("amount is required")
	ErrInvalidAmount = errors.New("amount must be a positive number")
)

// BelowMinimumError is a validation failure against a known reserve or
// minimum-bid threshold. It is caught before any network call.
type BelowMinimumError struct {
	Amount  string
	Minimum string
}

func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("amount %s is below the minimum of %s", e.Amount, e.Minimum)
}

// ValidateAmount checks that amount parses as a positive decimal and, when
// minimum is non-empty and parseable, that it meets the threshold.
func ValidateAmount(amount, minimum string) error {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return ErrEmptyAmount
	}
	v, err := strconv.ParseFloat(amount, 64)
	if err != nil || v <= 0 {
		return ErrInvalidAmount
	}
	if minimum != "" {
		if m, err := strconv.ParseFloat(minimum, 64); err == nil && v < m {
			return &BelowMinimumError{Amount: amount, Minimum: minimum}
		}
	}
	return nil
}

// NewNonce returns a fresh random nonce. Nonces are never reused across
// submissions; a resubmission gets a new one.
func NewNonce() string {
	return uuid.NewString()
}

// Digest computes the bid commitment: sha256 over the canonical string
// "auctionId:bidderId:amount:nonce", rendered as lowercase hex. The server
// recomputes the same digest at reveal time to verify the disclosure.
func Digest(auctionID, bidderID, amount, nonce string) string {
	sum := sha256.Sum256([]byte(auctionID + ":" + bidderID + ":" + amount + ":" + nonce))
	return hex.EncodeToString(sum[:])
}

// Package paygate talks to a ZarinPal-style WebGate payment gateway.
//
// A payment is a two step handshake: RequestPayment obtains an authority
// token and the buyer is redirected to the gateway with it; when the gateway
// redirects back, VerifyPayment exchanges the same token and amount for a
// reference id. Every call ends in exactly one of three outcomes: success,
// a *RejectedError (the gateway answered and said no), or a *TransportError
// (the outcome is unknown and the call is safe to retry).
package paygate

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
)

// Status codes returned by the gateway.
const (
	StatusOK              = 100
	StatusAlreadyVerified = 101
)

// Mode selects the gateway host.
type Mode string

const (
	ModeSandbox Mode = "sandbox"
	ModeLive    Mode = "live"
	ModeFake    Mode = "fake"
)

// PaymentRequest is the input of RequestPayment.
type PaymentRequest struct {
	Amount      int64
	Description string
	Mobile      string
	Email       string
	CallbackURL string
}

// Authority is the result of an accepted payment request.
type Authority struct {
	Authority string
	Status    int
}

// Verification is the result of an accepted verification.
type Verification struct {
	RefID  string
	Status int
}

// Gateway is the capability the checkout depends on.
type Gateway interface {
	RequestPayment(ctx context.Context, req PaymentRequest) (*Authority, error)
	VerifyPayment(ctx context.Context, amount int64, authority string) (*Verification, error)
	// StartPayURL is where the buyer is redirected to pay.
	StartPayURL(authority string) string
}

// RejectedError is a business failure reported by the gateway.
type RejectedError struct {
	Op     string
	Status int
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s: gateway rejected with status %d", e.Op, e.Status)
}

// TransportError is a failure to get an answer from the gateway.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: gateway unreachable: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsRejected reports whether err is a gateway business rejection.
func IsRejected(err error) bool {
	var rej *RejectedError
	return errors.As(err, &rej)
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

package paygate

import (
	"context"
	"fmt"
	"strconv"
	"sync"
)

// Status codes the fake uses for rejections, matching the real gateway.
const (
	StatusAmountMismatch   = -21
	StatusUnknownAuthority = -11
	// StatusCanceled is reported when the buyer abandons the payment page.
	StatusCanceled = -22
)

type fakePayment struct {
	amount   int64
	refID    string
	verified bool
}

// Fake is a deterministic in-memory Gateway. Authorities and reference ids
// are sequential, so identical call sequences produce identical results.
type Fake struct {
	mu       sync.Mutex
	payments map[string]*fakePayment
	seq      int

	// RequestErr, when set, is returned by the next RequestPayment call.
	RequestErr error
	// VerifyErr, when set, is returned by the next VerifyPayment call.
	VerifyErr error
	// VerifyCalls counts VerifyPayment invocations.
	VerifyCalls int
}

var _ Gateway = (*Fake)(nil)

// NewFake creates an empty fake gateway.
func NewFake() *Fake {
	return &Fake{payments: make(map[string]*fakePayment)}
}

// RequestPayment registers a pending payment and returns its authority.
func (f *Fake) RequestPayment(_ context.Context, req PaymentRequest) (*Authority, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.RequestErr; err != nil {
		f.RequestErr = nil
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, &RejectedError{Op: "request payment", Status: StatusAmountMismatch}
	}
	f.seq++
	authority := fmt.Sprintf("A%035d", f.seq)
	f.payments[authority] = &fakePayment{amount: req.Amount}
	return &Authority{Authority: authority, Status: StatusOK}, nil
}

// VerifyPayment settles a pending payment. Verifying an already verified
// payment returns the same reference id with StatusAlreadyVerified.
func (f *Fake) VerifyPayment(_ context.Context, amount int64, authority string) (*Verification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.VerifyCalls++
	if err := f.VerifyErr; err != nil {
		f.VerifyErr = nil
		return nil, err
	}
	p, ok := f.payments[authority]
	if !ok {
		return nil, &RejectedError{Op: "verify payment", Status: StatusUnknownAuthority}
	}
	if p.amount != amount {
		return nil, &RejectedError{Op: "verify payment", Status: StatusAmountMismatch}
	}
	if p.verified {
		return &Verification{RefID: p.refID, Status: StatusAlreadyVerified}, nil
	}
	f.seq++
	p.verified = true
	p.refID = strconv.Itoa(1000000 + f.seq)
	return &Verification{RefID: p.refID, Status: StatusOK}, nil
}

// StartPayURL returns a fake redirect target.
func (f *Fake) StartPayURL(authority string) string {
	return "https://fake.gateway.local/pg/StartPay/" + authority
}

// Package usage implements the Usage & Provenance Tracker of spec §4.10:
// per-turn token/cost accounting, a per-session running total, and the
// soft-cap/hard-cap enforcement that can be lifted by an operator
// passphrase up to a configured ceiling.
package usage

import (
	"errors"
	"fmt"
)

// ErrCapExceeded is the sentinel the controller matches on to emit
// spec §7's UsageCapExceeded error kind without making an LLM call.
var ErrCapExceeded = errors.New("usage cap exceeded")

// Guard enforces a session's USD cap. It mirrors the shape of a
// token-and-duration budget guard — a running total checked on every call,
// an exceeded flag read by the controller to force an early answer — but
// tracks dollars instead of tokens. The soft cap is the limit enforced by
// default (spec §4.10: "a soft cap of $1.50/session is enforced by
// default"); an operator passphrase raises the effective limit to the hard
// cap for the rest of the session.
type Guard struct {
	softCapUSD float64
	hardCapUSD float64
	passphrase string

	extended bool
	exceeded bool
}

// NewGuard builds a Guard from configuration. Set passphrase to "" to
// disable the extension mechanism entirely.
func NewGuard(softCapUSD, hardCapUSD float64, passphrase string) *Guard {
	return &Guard{
		softCapUSD: softCapUSD,
		hardCapUSD: hardCapUSD,
		passphrase: passphrase,
	}
}

// effectiveCap is the soft cap, the limit enforced by default, raised to the
// hard cap once the operator passphrase has been presented for this session.
func (g *Guard) effectiveCap() float64 {
	if g.extended {
		return g.hardCapUSD
	}
	return g.softCapUSD
}

// Extend raises the guard's effective cap to the hard cap for the rest of
// the session if passphrase matches the configured one. Returns an error if
// the passphrase is wrong or the mechanism is disabled.
func (g *Guard) Extend(passphrase string) error {
	if g.passphrase == "" {
		return fmt.Errorf("usage: operator passphrase extension is not configured")
	}
	if passphrase != g.passphrase {
		return fmt.Errorf("usage: incorrect operator passphrase")
	}
	g.extended = true
	g.exceeded = false
	return nil
}

// CheckBeforeTurn refuses a new turn once totalCostUSD has already reached
// the guard's effective cap (spec §4.10: "when total_cost >= limit, the
// controller refuses new turns ... an operator passphrase extends the
// limit"). Call this before making any LLM call for the turn.
func (g *Guard) CheckBeforeTurn(totalCostUSD float64) error {
	if totalCostUSD >= g.effectiveCap() {
		g.exceeded = true
		return fmt.Errorf("%w: session cost $%.2f has reached the limit of $%.2f", ErrCapExceeded, totalCostUSD, g.effectiveCap())
	}
	return nil
}

// IsSoftCapReached reports whether totalCostUSD has crossed the soft cap.
// Once extended the soft cap no longer refuses turns on its own, but the
// controller still uses this to warn the caller that the originally
// configured limit has been passed.
func (g *Guard) IsSoftCapReached(totalCostUSD float64) bool {
	return totalCostUSD >= g.softCapUSD
}

// Limit returns the cap value the session currently presents to a caller
// (spec §4.10's per-session `{total_cost, request_count, limit}`), which is
// the effective cap once extended.
func (g *Guard) Limit() float64 {
	return g.effectiveCap()
}

// IsExceeded returns true once CheckBeforeTurn has refused a turn and no
// subsequent Extend has cleared it.
func (g *Guard) IsExceeded() bool { return g.exceeded }

// Package decision classifies the response to a signed agent request:
// whether the server granted full content, a teaser, a denial or asked
// for payment.
package decision

import (
	"fmt"
	"strings"
)

// Header is the response header carrying the server's policy decision.
const Header = "X-OBA-Decision"

// DefaultSmallBodyThreshold is the body length under which an unlabeled
// 200 response is taken to be a teaser.
const DefaultSmallBodyThreshold = 5000

type Decision int

const (
	Unknown Decision = iota
	Allow
	Teaser
	Deny
	PaymentRequired
)

var decisionNames = [...]string{
	Unknown:         "unknown",
	Allow:           "allow",
	Teaser:          "teaser",
	Deny:            "deny",
	PaymentRequired: "payment_required",
}

func (d Decision) String() string {
	if d < 0 || int(d) >= len(decisionNames) {
		return fmt.Sprintf("Decision(%d)", int(d))
	}
	return decisionNames[d]
}

func (d Decision) MarshalText() ([]byte, error) {
	if d < 0 || int(d) >= len(decisionNames) {
		return nil, fmt.Errorf("invalid decision %d", int(d))
	}
	return []byte(decisionNames[d]), nil
}

func (d *Decision) UnmarshalText(text []byte) error {
	s := strings.ToLower(string(text))
	for i, name := range decisionNames {
		if name == s {
			*d = Decision(i)
			return nil
		}
	}
	return fmt.Errorf("invalid decision %q", string(text))
}

// FullAccess reports whether the response carried the complete content.
func (d Decision) FullAccess() bool {
	return d == Allow
}

// Basis tells which rule produced a Decision.
type Basis int

const (
	// BasisNone means no rule matched; the decision is Unknown.
	BasisNone Basis = iota
	// BasisHeader means the decision header named the outcome.
	BasisHeader
	// BasisStatus means the status code alone decided (402).
	BasisStatus
	// BasisHeuristic means the body was small enough to be assumed a
	// teaser. It is a guess, not a server statement.
	BasisHeuristic
)

func (b Basis) String() string {
	switch b {
	case BasisHeader:
		return "header"
	case BasisStatus:
		return "status"
	case BasisHeuristic:
		return "heuristic"
	default:
		return "none"
	}
}

func (b Basis) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// Result is a Decision together with the rule that produced it.
type Result struct {
	Decision Decision `json:"decision"`
	Basis    Basis    `json:"basis"`
}

func (r Result) String() string {
	return r.Decision.String() + " (" + r.Basis.String() + ")"
}

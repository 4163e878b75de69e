package decision

import (
	"github.com/lestrrat-go/option"
)

type Option = option.Interface

type identSmallBodyThreshold struct{}

func (identSmallBodyThreshold) String() string { return "WithSmallBodyThreshold" }

// WithSmallBodyThreshold sets the body length, in bytes, under which an
// unlabeled 200 response is classified as a teaser. Defaults to
// DefaultSmallBodyThreshold. A threshold of 0 disables the heuristic.
func WithSmallBodyThreshold(n int64) Option {
	return option.New(identSmallBodyThreshold{}, n)
}

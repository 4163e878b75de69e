package botsig

import (
	"fmt"
	"time"

	"github.com/lestrrat-go/blackmagic"
	"github.com/lestrrat-go/option"
	"github.com/openbotauth/botsig/replay"
)

type Option = option.Interface

// SignOption configures Signer.Sign and NewSigner
type SignOption interface {
	Option
	signOption()
}

type signOption struct {
	Option
}

func (signOption) signOption() {}

// VerifyOption configures VerifyHTTPRequest
type VerifyOption interface {
	Option
	verifyOption()
}

type verifyOption struct {
	Option
}

func (verifyOption) verifyOption() {}

// SignVerifyOption can be passed to both signing and verification
type SignVerifyOption interface {
	SignOption
	VerifyOption
}

type signVerifyOption struct {
	Option
}

func (signVerifyOption) signOption()   {}
func (signVerifyOption) verifyOption() {}

type identClock struct{}

func (identClock) String() string { return "WithClock" }

type identWindow struct{}

func (identWindow) String() string { return "WithWindow" }

type identCreated struct{}

func (identCreated) String() string { return "WithCreated" }

type identExpires struct{}

func (identExpires) String() string { return "WithExpires" }

type identNonce struct{}

func (identNonce) String() string { return "WithNonce" }

type identHeader struct{}

func (identHeader) String() string { return "WithHeader" }

type identReplayStore struct{}

func (identReplayStore) String() string { return "WithReplayStore" }

type identSkew struct{}

func (identSkew) String() string { return "WithSkew" }

type identRequiredHeaders struct{}

func (identRequiredHeaders) String() string { return "WithRequiredHeaders" }

// WithClock sets the clock used for created timestamps when signing, and
// for the validity check when verifying.
func WithClock(clock Clock) SignVerifyOption {
	return signVerifyOption{option.New(identClock{}, clock)}
}

// WithWindow sets the signature lifetime. Defaults to MaxWindow.
func WithWindow(d time.Duration) SignOption {
	return signOption{option.New(identWindow{}, d)}
}

// WithCreated fixes the created timestamp instead of reading the clock.
func WithCreated(t time.Time) SignOption {
	return signOption{option.New(identCreated{}, t)}
}

// WithExpires fixes the expires timestamp instead of created+window.
func WithExpires(t time.Time) SignOption {
	return signOption{option.New(identExpires{}, t)}
}

// WithNonce fixes the nonce instead of generating a fresh one.
func WithNonce(nonce string) SignOption {
	return signOption{option.New(identNonce{}, nonce)}
}

type headerPair struct {
	name  string
	value string
}

// WithHeader adds a header to the covered components. It may be given
// more than once; headers are covered in the order given.
func WithHeader(name, value string) SignOption {
	return signOption{option.New(identHeader{}, headerPair{name: name, value: value})}
}

// WithReplayStore makes verification claim each nonce in store, rejecting
// nonces that were already seen with ErrReplayed.
func WithReplayStore(store replay.Store) VerifyOption {
	return verifyOption{option.New(identReplayStore{}, store)}
}

// WithSkew tolerates clocks running behind the signer's by up to d when
// checking created.
func WithSkew(d time.Duration) VerifyOption {
	return verifyOption{option.New(identSkew{}, d)}
}

// WithRequiredHeaders requires the signature to cover the named header
// fields in addition to "@method", "@authority" and "@path".
func WithRequiredHeaders(names ...string) VerifyOption {
	return verifyOption{option.New(identRequiredHeaders{}, names)}
}

func optionValue(opt Option, dst any) error {
	if err := blackmagic.AssignIfCompatible(dst, opt.Value()); err != nil {
		return fmt.Errorf("invalid value for option %s: %w", opt.Ident(), err)
	}
	return nil
}

// Clock provides the current time for timestamp operations.
type Clock interface {
	Now() time.Time
}

// SystemClock uses the system time.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

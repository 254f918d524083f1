package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"
)

const (
	DefaultHandleMinLength   = 5
	DefaultHandleMaxLength   = 50
	DefaultUsernameMinLength = 3
	DefaultUsernameMaxLength = 50
	DefaultContentLength     = 46
)

var (
	ErrHandleTooShort          = errors.New("validation: handle is too short")
	ErrHandleTooLong           = errors.New("validation: handle is too long")
	ErrHandleInvalidChars      = errors.New("validation: handle contains invalid characters")
	ErrUsernameTooShort        = errors.New("validation: username is too short")
	ErrUsernameTooLong         = errors.New("validation: username is too long")
	ErrUsernameNotAlphanumeric = errors.New("validation: username is not alphanumeric")
	ErrInvalidContent          = errors.New("validation: invalid content address")
)

// Limits holds the protocol constants the validator checks against.
type Limits struct {
	HandleMinLength   int
	HandleMaxLength   int
	UsernameMinLength int
	UsernameMaxLength int
	ContentLength     int
	// StrictContent additionally requires a content address to decode as a CID.
	StrictContent bool
}

// DefaultLimits returns the limits used when nothing is configured.
func DefaultLimits() Limits {
	return Limits{
		HandleMinLength:   DefaultHandleMinLength,
		HandleMaxLength:   DefaultHandleMaxLength,
		UsernameMinLength: DefaultUsernameMinLength,
		UsernameMaxLength: DefaultUsernameMaxLength,
		ContentLength:     DefaultContentLength,
	}
}

// Validator checks handles, usernames and content addresses. It holds no state.
type Validator struct {
	limits Limits
}

// NewValidator constructs a Validator, filling zero limits with defaults.
func NewValidator(limits Limits) Validator {
	defaults := DefaultLimits()
	if limits.HandleMinLength <= 0 {
		limits.HandleMinLength = defaults.HandleMinLength
	}
	if limits.HandleMaxLength <= 0 {
		limits.HandleMaxLength = defaults.HandleMaxLength
	}
	if limits.UsernameMinLength <= 0 {
		limits.UsernameMinLength = defaults.UsernameMinLength
	}
	if limits.UsernameMaxLength <= 0 {
		limits.UsernameMaxLength = defaults.UsernameMaxLength
	}
	if limits.ContentLength <= 0 {
		limits.ContentLength = defaults.ContentLength
	}
	return Validator{limits: limits}
}

// Limits returns the effective limits.
func (v Validator) Limits() Limits {
	return v.limits
}

// Handle validates raw and returns the lowercase key used for uniqueness.
func (v Validator) Handle(raw string) (string, error) {
	if len(raw) < v.limits.HandleMinLength {
		return "", fmt.Errorf("%w: %d < %d", ErrHandleTooShort, len(raw), v.limits.HandleMinLength)
	}
	if len(raw) > v.limits.HandleMaxLength {
		return "", fmt.Errorf("%w: %d > %d", ErrHandleTooLong, len(raw), v.limits.HandleMaxLength)
	}
	for index := 0; index < len(raw); index++ {
		if !isASCIIAlphanumeric(raw[index]) && raw[index] != '_' {
			return "", fmt.Errorf("%w: %q at %d", ErrHandleInvalidChars, raw[index], index)
		}
	}
	return strings.ToLower(raw), nil
}

// Username validates raw and returns its lowercase key.
func (v Validator) Username(raw string) (string, error) {
	if len(raw) < v.limits.UsernameMinLength {
		return "", fmt.Errorf("%w: %d < %d", ErrUsernameTooShort, len(raw), v.limits.UsernameMinLength)
	}
	if len(raw) > v.limits.UsernameMaxLength {
		return "", fmt.Errorf("%w: %d > %d", ErrUsernameTooLong, len(raw), v.limits.UsernameMaxLength)
	}
	for index := 0; index < len(raw); index++ {
		if !isASCIIAlphanumeric(raw[index]) {
			return "", fmt.Errorf("%w: %q at %d", ErrUsernameNotAlphanumeric, raw[index], index)
		}
	}
	return strings.ToLower(raw), nil
}

// Content validates the shape of a content address. Empty means no content.
func (v Validator) Content(address string) error {
	if address == "" {
		return nil
	}
	if len(address) != v.limits.ContentLength {
		return fmt.Errorf("%w: length %d, want %d", ErrInvalidContent, len(address), v.limits.ContentLength)
	}
	if v.limits.StrictContent {
		if _, err := cid.Decode(address); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidContent, err)
		}
	}
	return nil
}

func isASCIIAlphanumeric(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

package lock

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Default option values (spec §4.1).
const (
	DefaultLeaseDurationInMs = 20000
	DefaultProlongEveryMs    = 5000
)

var validate = validator.New()

// Options configures a lock acquisition. Zero-valued fields receive the
// defaults documented on each one before validation runs.
type Options struct {
	// LeaseDurationInMs is the declared lease length written on each
	// acquire/steal. Default 20000.
	LeaseDurationInMs int64 `validate:"gte=0"`

	// ProlongLeaseEnabled, if true, schedules background renewal after
	// acquisition. Default true.
	ProlongLeaseEnabled bool

	// ProlongEveryMs is the renewal period; must satisfy
	// ProlongEveryMs < LeaseDurationInMs/2 whenever ProlongLeaseEnabled.
	// Default 5000.
	ProlongEveryMs int64 `validate:"gte=0"`

	// TrustLocalTime skips the default lease-duration wait when the
	// observed record's lease has expired by the local clock.
	TrustLocalTime bool

	// WaitDurationInMs overrides the wait between re-reads when
	// TrustLocalTime is set. nil means "use the default of 0".
	WaitDurationInMs *int64

	// MaxRetryCount bounds acquisition attempts. nil means unbounded.
	// Effective attempts = MaxRetryCount + 1 (see package lockcoordinator).
	MaxRetryCount *int

	// AdditionalAttributes is an opaque payload persisted with the record.
	AdditionalAttributes map[string]any

	// leaseSet/prolongEverySet track which fields the caller set, so applyDefaults only
	// fills in fields that were left at their zero value.
	leaseSet, prolongEverySet bool
}

// WithLeaseDurationInMs overrides the default lease duration.
func (o Options) WithLeaseDurationInMs(ms int64) Options {
	o.LeaseDurationInMs = ms
	o.leaseSet = true
	return o
}

// WithProlongLeaseEnabled overrides whether prolongation is scheduled.
func (o Options) WithProlongLeaseEnabled(enabled bool) Options {
	o.ProlongLeaseEnabled = enabled
	return o
}

// WithProlongEveryMs overrides the default renewal period.
func (o Options) WithProlongEveryMs(ms int64) Options {
	o.ProlongEveryMs = ms
	o.prolongEverySet = true
	return o
}

// WithTrustLocalTime opts into the local-clock steal optimization.
func (o Options) WithTrustLocalTime(trust bool) Options {
	o.TrustLocalTime = trust
	return o
}

// WithWaitDurationInMs overrides the re-read wait under TrustLocalTime.
func (o Options) WithWaitDurationInMs(ms int64) Options {
	o.WaitDurationInMs = &ms
	return o
}

// WithMaxRetryCount bounds the number of ACQUIRE iterations.
func (o Options) WithMaxRetryCount(n int) Options {
	o.MaxRetryCount = &n
	return o
}

// WithAdditionalAttributes sets the opaque payload persisted with the record.
func (o Options) WithAdditionalAttributes(attrs map[string]any) Options {
	o.AdditionalAttributes = attrs
	return o
}

// DefaultOptions returns an Options value with every field at its
// spec-mandated default.
func DefaultOptions() Options {
	return Options{
		LeaseDurationInMs:   DefaultLeaseDurationInMs,
		ProlongLeaseEnabled: true,
		ProlongEveryMs:      DefaultProlongEveryMs,
	}
}

// applyDefaults fills in zero-valued fields that the caller didn't set
// explicitly via the With* builders.
func (o Options) applyDefaults() Options {
	if !o.leaseSet && o.LeaseDurationInMs == 0 {
		o.LeaseDurationInMs = DefaultLeaseDurationInMs
	}
	if !o.prolongEverySet && o.ProlongEveryMs == 0 {
		o.ProlongEveryMs = DefaultProlongEveryMs
	}
	if o.AdditionalAttributes == nil {
		o.AdditionalAttributes = map[string]any{}
	}
	return o
}

// waitDurationInMs returns the effective wait duration, defaulting to 0.
func (o Options) waitDurationInMs() int64 {
	if o.WaitDurationInMs == nil {
		return 0
	}
	return *o.WaitDurationInMs
}

// validateOptions runs the generic struct-tag validation followed by the
// prolongation invariant: ProlongEveryMs must be less than
// LeaseDurationInMs/2 whenever prolongation is enabled, so at least one
// renewal has a chance to land before the lease expires.
func validateOptions(o Options) error {
	if err := validate.Struct(&o); err != nil {
		return NewOptionsValidationError(err.Error())
	}
	if o.ProlongLeaseEnabled && o.ProlongEveryMs >= o.LeaseDurationInMs/2 {
		return NewOptionsValidationError(fmt.Sprintf(
			"prolongEveryMs (%d) must be less than leaseDurationInMs/2 (%d)",
			o.ProlongEveryMs, o.LeaseDurationInMs/2))
	}
	return nil
}

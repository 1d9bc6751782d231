package itm

import "fmt"

// Severity grades how far the inputs of a computation stray from the
// ranges the model was fitted for. A computation always produces a number;
// the severity tells the caller how much to trust it.
type Severity int

const (
	// SeverityOK means every check passed.
	SeverityOK Severity = iota
	// SeverityMarginal means a parameter is near the edge of its
	// recommended range. Results should be used with caution.
	SeverityMarginal
	// SeverityDefaultSubstituted means an impossible selector (climate,
	// variability mode) was replaced by a default.
	SeverityDefaultSubstituted
	// SeverityCombinationOutOfRange means otherwise valid parameters combine
	// into an implausible geometry. Results are probably invalid.
	SeverityCombinationOutOfRange
	// SeverityOutOfRange means a parameter lies outside the physically
	// supportable range. Results are unreliable.
	SeverityOutOfRange
)

func (s Severity) String() string {
	switch s {
	case SeverityOK:
		return "ok"
	case SeverityMarginal:
		return "marginal"
	case SeverityDefaultSubstituted:
		return "default_substituted"
	case SeverityCombinationOutOfRange:
		return "combination_out_of_range"
	case SeverityOutOfRange:
		return "out_of_range"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Warning is a single failed check.
type Warning struct {
	Severity Severity
	Reason   string
}

// Warnings accumulates failed checks for one computation. Its severity is
// the maximum over everything raised and can never decrease.
type Warnings struct {
	worst Severity
	list  []Warning
}

// Raise records a failed check.
func (w *Warnings) Raise(s Severity, reason string) {
	if s > w.worst {
		w.worst = s
	}
	w.list = append(w.list, Warning{Severity: s, Reason: reason})
}

// Merge raises every warning held by other.
func (w *Warnings) Merge(other Warnings) {
	for _, x := range other.list {
		w.Raise(x.Severity, x.Reason)
	}
}

// Severity returns the worst severity raised so far.
func (w Warnings) Severity() Severity { return w.worst }

// List returns a copy of the raised warnings in the order they occurred.
func (w Warnings) List() []Warning {
	out := make([]Warning, len(w.list))
	copy(out, w.list)
	return out
}

package itm

import "testing"

func TestWarningsKeepWorstSeverity(t *testing.T) {
	var w Warnings
	if w.Severity() != SeverityOK {
		t.Fatalf("zero value severity = %v", w.Severity())
	}

	w.Raise(SeverityCombinationOutOfRange, "horizon distance implausible")
	w.Raise(SeverityMarginal, "frequency not optimal")
	if w.Severity() != SeverityCombinationOutOfRange {
		t.Fatalf("severity = %v, want combination_out_of_range", w.Severity())
	}

	w.Raise(SeverityOutOfRange, "distance out of bounds")
	w.Raise(SeverityOK, "noop")
	if w.Severity() != SeverityOutOfRange {
		t.Fatalf("severity = %v, want out_of_range", w.Severity())
	}
	if got := len(w.List()); got != 4 {
		t.Fatalf("len(List) = %d, want 4", got)
	}
}

func TestWarningsMergeAndCopy(t *testing.T) {
	var a, b Warnings
	a.Raise(SeverityDefaultSubstituted, "climate")
	b.Raise(SeverityMarginal, "quantiles")
	b.Merge(a)
	if b.Severity() != SeverityDefaultSubstituted {
		t.Fatalf("merged severity = %v", b.Severity())
	}

	list := b.List()
	list[0].Reason = "changed"
	if b.List()[0].Reason != "quantiles" {
		t.Fatalf("List exposed internal storage")
	}
}

func TestSeverityString(t *testing.T) {
	if SeverityOutOfRange.String() != "out_of_range" {
		t.Fatalf("String = %q", SeverityOutOfRange.String())
	}
	if Severity(12).String() != "severity(12)" {
		t.Fatalf("String = %q", Severity(12).String())
	}
}

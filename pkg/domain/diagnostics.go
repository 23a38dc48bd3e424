package domain

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a diagnostic.
type ErrorKind string

const (
	KindStructural    ErrorKind = "structural"
	KindAmbiguous     ErrorKind = "ambiguous"
	KindLayer         ErrorKind = "layer"
	KindDiscontinuity ErrorKind = "discontinuity"
	KindBranch        ErrorKind = "branch"
	KindEOF           ErrorKind = "eof"
	KindIdentity      ErrorKind = "identity"
	KindSyntax        ErrorKind = "syntax"
)

// Diagnostic is one well-formedness violation found during an import.
type Diagnostic struct {
	Range    Range     `json:"range"`
	Kind     ErrorKind `json:"kind"`
	Message  string    `json:"message"`
	Breaking bool      `json:"breaking,omitempty"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s : %s", d.Range.Start, d.Message)
}

// Diagnostics is the ordered list of diagnostics gathered for one document.
type Diagnostics []Diagnostic

// HasErrors reports whether any diagnostic was recorded.
func (d Diagnostics) HasErrors() bool {
	return len(d) > 0
}

// HasBreaking reports whether a breaking diagnostic was recorded.
func (d Diagnostics) HasBreaking() bool {
	for _, diag := range d {
		if diag.Breaking {
			return true
		}
	}
	return false
}

// Messages returns the position-prefixed messages.
func (d Diagnostics) Messages() []string {
	msgs := make([]string, len(d))
	for i, diag := range d {
		msgs[i] = diag.String()
	}
	return msgs
}

// OfKind returns the diagnostics of the given kind.
func (d Diagnostics) OfKind(kind ErrorKind) Diagnostics {
	var out Diagnostics
	for _, diag := range d {
		if diag.Kind == kind {
			out = append(out, diag)
		}
	}
	return out
}

// ImportError is the composite error returned when a document has diagnostics.
type ImportError struct {
	Name        string
	Diagnostics Diagnostics
}

func (e *ImportError) Error() string {
	prefix := "parsing failed"
	if e.Name != "" {
		prefix = fmt.Sprintf("parsing %s failed", e.Name)
	}
	if len(e.Diagnostics) == 1 {
		return prefix + ": " + e.Diagnostics[0].String()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s with %d errors:\n", prefix, len(e.Diagnostics))
	for i, diag := range e.Diagnostics {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, diag)
	}
	return sb.String()
}

// DiagnosticsOf returns the diagnostics if err is an ImportError.
// Otherwise returns nil.
func DiagnosticsOf(err error) Diagnostics {
	if ie, ok := err.(*ImportError); ok {
		return ie.Diagnostics
	}
	return nil
}

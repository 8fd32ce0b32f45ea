// Package diag implements the five fatal error kinds of spec.md §7,
// grounded on the teacher's internal/errors package: namespaced code
// constants (codes.go), a canonical structured Report that survives
// errors.As unwrapping (report.go), and JSON encoding for driver
// tooling (json_encoder.go) — renamed here from AILANG's
// parser/loader/typecheck taxonomy to the five kinds this spec names.
package diag

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind is one of the five fatal error kinds of spec.md §7. All five
// are fatal to the current compilation; none are recoverable within
// the pipeline.
type Kind string

const (
	KindTyping         Kind = "TypingError"
	KindVerification   Kind = "VerificationError"
	KindUnsupported    Kind = "UnsupportedConstruct"
	KindIrreducible    Kind = "Irreducible"
	KindInternal       Kind = "InternalInvariant"
)

// Code constants, namespaced like the teacher's PAR###/MOD### taxonomy.
const (
	TYP001 = "TYP001" // subtype check failed during interning
	TYP002 = "TYP002" // reinterpret/convert cast illegal
	VER001 = "VER001" // post-pass invariant violated
	VER002 = "VER002" // merge terminator outside its structured region
	UNS001 = "UNS001" // lowering pass encountered a node it should have consumed
	UNS002 = "UNS002" // LetIndirect emission requested (documented unimplemented)
	IRR001 = "IRR001" // irreducible CFG, structurer cannot proceed
	INT001 = "INT001" // assertion-class internal failure
)

// Report is the canonical structured diagnostic: a node-path context
// plus the current pass name, per spec.md §7.
type Report struct {
	Kind    Kind           `json:"kind"`
	Code    string         `json:"code"`
	Pass    string         `json:"pass"`
	Message string         `json:"message"`
	NodePath []string      `json:"node_path,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// ReportError wraps a Report as an error so it survives errors.As.
type ReportError struct{ Rep *Report }

func (e *ReportError) Error() string {
	if e.Rep == nil {
		return "unknown diagnostic"
	}
	return fmt.Sprintf("%s (%s) in pass %q: %s", e.Rep.Kind, e.Rep.Code, e.Rep.Pass, e.Rep.Message)
}

// AsReport extracts a Report from an error chain.
func AsReport(err error) (*Report, bool) {
	var re *ReportError
	if errors.As(err, &re) {
		return re.Rep, true
	}
	return nil, false
}

// New builds and wraps a Report as an error.
func New(kind Kind, code, pass, message string, nodePath []string) error {
	return &ReportError{Rep: &Report{
		Kind: kind, Code: code, Pass: pass, Message: message, NodePath: nodePath,
	}}
}

// Typing reports a TypingError (subtyping failure at intern time).
func Typing(pass, message string, nodePath ...string) error {
	return New(KindTyping, TYP001, pass, message, nodePath)
}

// Verification reports a VerificationError (post-pass invariant violated).
func Verification(pass, message string, nodePath ...string) error {
	return New(KindVerification, VER001, pass, message, nodePath)
}

// Unsupported reports an UnsupportedConstruct (a lowering pass met a
// node it was supposed to have already consumed).
func Unsupported(pass, message string, nodePath ...string) error {
	return New(KindUnsupported, UNS001, pass, message, nodePath)
}

// Irreducible reports that the structurer cannot produce a structured
// CFG from an irreducible input.
func Irreducible(pass, message string, nodePath ...string) error {
	return New(KindIrreducible, IRR001, pass, message, nodePath)
}

// Internal reports an assertion-class internal failure.
func Internal(pass, message string, nodePath ...string) error {
	return New(KindInternal, INT001, pass, message, nodePath)
}

// ToJSON renders the report deterministically (struct fields in
// declaration order and map keys sorted, as encoding/json writes them)
// for driver consumption.
func (r *Report) ToJSON(compact bool) (string, error) {
	var data []byte
	var err error
	if compact {
		data, err = json.Marshal(r)
	} else {
		data, err = json.MarshalIndent(r, "", "  ")
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Package diag holds the structured-diagnostic value types the compiler
// core produces. This intentionally mirrors the shape of esbuild's own
// logger package: a diagnostic is a value collected into a list, not a
// log line streamed to a writer, because a compilation's errors/warnings
// are themselves part of the stats surface (spec.md §6) and must be
// sortable and serializable, not just printable.
package diag

import (
	"fmt"
	"sort"
)

// Kind distinguishes user-facing severities. Unlike a generic log level,
// there is no "info"/"debug" here by design — those go through
// internal/telemetry instead. A diagnostic is always either something that
// failed the build or something the user should look at.
type Kind uint8

const (
	Error Kind = iota
	Warning
)

func (k Kind) String() string {
	if k == Warning {
		return "warning"
	}
	return "error"
}

// Code identifies the category of a diagnostic, matching the taxonomy in
// spec.md §7.
type Code string

const (
	CodeFactorize          Code = "factorize"
	CodeLinkMissingExport  Code = "link-missing-export"
	CodeLinkStarConflict   Code = "link-star-conflict"
	CodeSplitDuplicateName Code = "split-duplicate-entry-name"
	CodeSplitDependOnCycle Code = "split-depend-on-cycle"
	CodeSplitBadCombo      Code = "split-depend-on-with-runtime"
	CodeSplitNameCollision Code = "split-name-collision"
	CodeAssetConflict      Code = "asset-conflict"
)

// Loc is a 0-based byte offset into a module's source, paired with its
// owning module. Optional: a diagnostic that isn't anchored to a specific
// source range (e.g. a depend_on cycle spanning several entries) omits it.
type Loc struct {
	ModuleIdentifier string
	Start            int32
	Len              int32
}

// ChunkRef optionally anchors a diagnostic to a chunk by name/id/entry/
// initial flags, exactly the shape the stats surface error records want.
type ChunkRef struct {
	Name    string
	ID      string
	Entry   bool
	Initial bool
}

// Msg is a single collected diagnostic.
type Msg struct {
	Kind    Kind
	Code    Code
	Message string

	ModuleIdentifier string // optional, "" if not applicable
	Loc              *Loc   // optional
	ChunkRef         *ChunkRef // optional

	// Stack is the underlying cause's stack, if the diagnostic originated
	// from a panic recovered at a phase boundary.
	Stack string

	// ModuleTrace is the issuer chain from this module up to an entry point,
	// most-immediate issuer first.
	ModuleTrace []string
}

// Log collects diagnostics for one compilation. It is safe to call Add
// concurrently: compile phases fan out across chunk roots/modules/runtimes
// and any of them may need to report a diagnostic without serializing on a
// single shared mutex for the whole phase.
type Log struct {
	msgs chan Msg
	done chan []Msg
}

// NewLog starts a Log. Callers must call Finish exactly once to drain it.
func NewLog() *Log {
	l := &Log{
		msgs: make(chan Msg, 64),
		done: make(chan []Msg),
	}
	go func() {
		var all []Msg
		for m := range l.msgs {
			all = append(all, m)
		}
		l.done <- all
	}()
	return l
}

// Add records a diagnostic. Safe for concurrent use.
func (l *Log) Add(m Msg) {
	l.msgs <- m
}

// Errorf is a convenience for the common "no location" error case.
func (l *Log) Errorf(code Code, moduleIdentifier string, format string, args ...interface{}) {
	l.Add(Msg{Kind: Error, Code: code, ModuleIdentifier: moduleIdentifier, Message: sprintf(format, args...)})
}

// Warnf is the Warning analog of Errorf.
func (l *Log) Warnf(code Code, moduleIdentifier string, format string, args ...interface{}) {
	l.Add(Msg{Kind: Warning, Code: code, ModuleIdentifier: moduleIdentifier, Message: sprintf(format, args...)})
}

// Finish closes the log and returns every diagnostic recorded, sorted by
// (module-identifier, span-start) per spec.md §5's ordering guarantee.
func (l *Log) Finish() []Msg {
	close(l.msgs)
	all := <-l.done
	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.ModuleIdentifier != b.ModuleIdentifier {
			return a.ModuleIdentifier < b.ModuleIdentifier
		}
		var aStart, bStart int32
		if a.Loc != nil {
			aStart = a.Loc.Start
		}
		if b.Loc != nil {
			bStart = b.Loc.Start
		}
		return aStart < bStart
	})
	return all
}

// HasErrors reports whether any Error-kind diagnostic was recorded. This is
// cheap to call only after Finish; a compilation in progress should not
// poll this, since Add may still be racing with any such check.
func HasErrors(msgs []Msg) bool {
	for _, m := range msgs {
		if m.Kind == Error {
			return true
		}
	}
	return false
}

func sprintf(format string, args ...interface{}) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// Package exports implements the per-module exports-info store: the
// lattice of per-export provided/used state that drives tree-shaking and
// name mangling decisions.
package exports

// UsageState is the per-runtime usage lattice spec.md §4.4 defines, ordered
// Unused < NoInfo < Unknown < OnlyPropertiesUsed < Used.
type UsageState uint8

const (
	Unused UsageState = iota
	NoInfo
	Unknown
	OnlyPropertiesUsed
	Used
)

func (u UsageState) String() string {
	switch u {
	case Unused:
		return "unused"
	case NoInfo:
		return "no-info"
	case Unknown:
		return "unknown"
	case OnlyPropertiesUsed:
		return "only-properties-used"
	case Used:
		return "used"
	default:
		return "invalid"
	}
}

// JoinUsage returns the least upper bound of two usage states on the
// lattice (spec.md §4.4 step 2/3: "mark ... with the join of the current
// value and the importer's effective usage").
func JoinUsage(a, b UsageState) UsageState {
	if a > b {
		return a
	}
	return b
}

// Provided is the three-valued provided-state of an export.
type Provided uint8

const (
	ProvidedUnknown Provided = iota
	ProvidedTrue
	ProvidedFalse
)

func (p Provided) String() string {
	switch p {
	case ProvidedTrue:
		return "true"
	case ProvidedFalse:
		return "false"
	default:
		return "unknown"
	}
}

// InlinableKind tags why (or whether) an export's reference sites can be
// replaced by a constant instead of a property read.
type InlinableKind uint8

const (
	NoByUse InlinableKind = iota
	NoByProvide
	Inlined
)

// Inlinable carries the decided inline state, with the constant value only
// meaningful when Kind == Inlined.
type Inlinable struct {
	Kind  InlinableKind
	Value interface{}
}

// TerminalBinding is the (module, export-name) pair an export resolves to
// after following every re-export hop.
type TerminalBinding struct {
	Module     string
	ExportName string
}

// Package usage drives the exports-info fixed-point propagation (seeding
// entry usage and iterating import/reexport edges to convergence) and the
// per-dependency export-mode decision tree that the dependency templates
// consult when rendering reexport code.
package usage

import (
	"github.com/bundlecore/bundlecore/internal/exports"
	"github.com/bundlecore/bundlecore/internal/graph"
)

// ModeType enumerates the export-mode alternatives spec.md §4.4 names.
type ModeType uint8

const (
	ModeMissing ModeType = iota
	ModeUnused
	ModeEmptyStar
	ModeReexportDynamicDefault
	ModeReexportNamedDefault
	ModeReexportNamespaceObject
	ModeReexportFakeNamespaceObject
	ModeReexportUndefined
	ModeNormalReexport
	ModeDynamicReexport
)

func (m ModeType) String() string {
	switch m {
	case ModeMissing:
		return "missing"
	case ModeUnused:
		return "unused"
	case ModeEmptyStar:
		return "empty-star"
	case ModeReexportDynamicDefault:
		return "reexport-dynamic-default"
	case ModeReexportNamedDefault:
		return "reexport-named-default"
	case ModeReexportNamespaceObject:
		return "reexport-namespace-object"
	case ModeReexportFakeNamespaceObject:
		return "reexport-fake-namespace-object"
	case ModeReexportUndefined:
		return "reexport-undefined"
	case ModeNormalReexport:
		return "normal-reexport"
	case ModeDynamicReexport:
		return "dynamic-reexport"
	default:
		return "invalid"
	}
}

// NormalReexportItem is one entry of a NormalReexport mode's item list.
type NormalReexportItem struct {
	Name       string
	Ids        []string
	Hidden     bool
	Checked    bool
	ExportInfo *exports.ExportInfo
}

// Mode is the decided export mode for one ExportImportedSpecifier
// dependency, carrying only the fields relevant to its Type.
type Mode struct {
	Type ModeType

	// FakeNamespaceType is 0 or 2, meaningful only for
	// ModeReexportFakeNamespaceObject (spec.md §4.4 rule 5).
	FakeNamespaceType int

	// Items is populated for ModeNormalReexport.
	Items []NormalReexportItem

	// Ignored and Hidden are populated for ModeDynamicReexport.
	Ignored []string
	Hidden  []string
}

// SelectOptions is everything SelectMode needs to run the decision tree of
// spec.md §4.4, gathered ahead of time so the function itself stays pure.
type SelectOptions struct {
	TargetFound  bool
	ImportUnused bool

	// Name is the importer's explicit local binding name; empty denotes a
	// star export (`export * from "..."`).
	Name string
	Ids  []string

	TargetExportsType graph.ExportsType

	// TargetExportInfo is the target's ExportInfo for Ids[0], when Name is
	// explicit and Ids is non-empty; used to distinguish a genuinely
	// Provided::False name (ModeReexportUndefined) from one that is merely
	// unresolved-at-parse-time and still gets a checked getter
	// (ModeNormalReexport). Spec.md §4.4 lists ReexportUndefined as an
	// alternative without pinning exactly when it fires; SelectMode
	// resolves it as described here.
	TargetExportInfo *exports.ExportInfo

	// Star is non-nil only when Name == "" (a star export); it carries the
	// already-computed star-reexport visibility decision (see star.go).
	Star *StarInfo
}

// StarInfo is the outcome of ComputeStarInfo: either full visibility (in
// which case Items enumerates every provided name) or partial visibility
// (in which case Ignored names the shadowed/unknown set a DynamicReexport
// must defer to runtime resolution for).
type StarInfo struct {
	FullVisibility bool
	Items          []NormalReexportItem
	Ignored        []string
}

// SelectMode runs the ordered decision tree spec.md §4.4 specifies for a
// single ExportImportedSpecifier dependency.
func SelectMode(opts SelectOptions) Mode {
	if !opts.TargetFound {
		return Mode{Type: ModeMissing}
	}
	if opts.ImportUnused {
		return Mode{Type: ModeUnused}
	}

	if opts.Name != "" {
		if len(opts.Ids) > 0 && opts.Ids[0] == "default" {
			if opts.TargetExportsType == graph.ExportsDynamic {
				return Mode{Type: ModeReexportDynamicDefault}
			}
			return Mode{Type: ModeReexportNamedDefault}
		}
		if len(opts.Ids) > 0 {
			if opts.TargetExportInfo != nil && opts.TargetExportInfo.Provided == exports.ProvidedFalse {
				return Mode{Type: ModeReexportUndefined}
			}
			checked := opts.TargetExportInfo == nil || opts.TargetExportInfo.Provided == exports.ProvidedUnknown
			return Mode{Type: ModeNormalReexport, Items: []NormalReexportItem{{Name: opts.Name, Ids: opts.Ids, Checked: checked, ExportInfo: opts.TargetExportInfo}}}
		}
		switch opts.TargetExportsType {
		case graph.ExportsDefaultOnly:
			return Mode{Type: ModeReexportFakeNamespaceObject, FakeNamespaceType: 0}
		case graph.ExportsDefaultWithNamed:
			return Mode{Type: ModeReexportFakeNamespaceObject, FakeNamespaceType: 2}
		default:
			return Mode{Type: ModeReexportNamespaceObject}
		}
	}

	// Star export (opts.Name == "").
	if opts.Star == nil || len(opts.Star.Items) == 0 && len(opts.Star.Ignored) == 0 {
		return Mode{Type: ModeEmptyStar}
	}
	if opts.Star.FullVisibility {
		return Mode{Type: ModeNormalReexport, Items: opts.Star.Items}
	}
	return Mode{Type: ModeDynamicReexport, Ignored: opts.Star.Ignored}
}

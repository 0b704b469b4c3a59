package exports

// InferStatic marks every statically discoverable export name as
// Provided::True with CanMangleProvide=true (spec.md §4.4 "Provided-
// exports inference"). It is the default path taken for ESM modules and
// for CommonJS modules whose exported keys are all statically known.
func (s *Store) InferStatic(moduleID string, names []string) {
	ei := s.ForModule(moduleID)
	for _, name := range names {
		info := ei.getOrCreate(name, &s.entryCounter)
		info.Provided = ProvidedTrue
		info.CanMangleProvide = true
	}
}

// MarkDynamic marks a module's catch-all export slot Unknown and
// un-mangleable — the CommonJS `module.exports` with computed keys case
// spec.md §4.4 calls out explicitly.
func (s *Store) MarkDynamic(moduleID string) {
	ei := s.ForModule(moduleID)
	ei.Other.Provided = ProvidedUnknown
	ei.Other.CanMangleProvide = false
}

// CopyProvidedFromStarTarget copies provided-state (and can-mangle-provide)
// from a finalized star-reexport target onto the reexporting module's
// exports-info, name by name plus the catch-all, implementing "re-exports
// from a star-export copy over provided-state after the target module is
// itself finalized" (spec.md §4.4).
func (s *Store) CopyProvidedFromStarTarget(moduleID, targetModuleID string) {
	target := s.ForModule(targetModuleID)
	dest := s.ForModule(moduleID)
	for _, name := range target.Names() {
		src, _ := target.Get(name)
		info := dest.getOrCreate(name, &s.entryCounter)
		if src.Provided == ProvidedTrue && info.Provided == ProvidedUnknown {
			info.Provided = ProvidedTrue
			info.CanMangleProvide = src.CanMangleProvide
		}
	}
	if target.Other.Provided != ProvidedUnknown && dest.Other.Provided == ProvidedUnknown {
		dest.Other.Provided = target.Other.Provided
		dest.Other.CanMangleProvide = target.Other.CanMangleProvide
	}
}

// ProvidedNames returns the subset of Names() that are Provided::True,
// used for stats.modules[].provided_exports (spec.md §6).
func (ei *ExportsInfo) ProvidedNames() []string {
	var out []string
	for _, name := range ei.names {
		info := ei.exports[name]
		if info.Provided == ProvidedTrue {
			out = append(out, name)
		}
	}
	return out
}

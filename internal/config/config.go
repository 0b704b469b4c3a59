// Package config holds the engine-wide option set: the environment/format
// flags that change what code the render-context builder and dependency
// templates emit, and the optimization toggles that gate the analyzer
// passes. Shaped after esbuild's internal/config.Options (a flat struct of
// scalar fields with a handful of nested option groups) but trimmed down
// to only what spec.md §6 "Environment & flags influencing emitted code"
// and "optimization.*" name — parsing/minification/platform-target options
// belong to the external collaborators this core doesn't implement.
package config

// Format selects the output module envelope.
type Format uint8

const (
	FormatCommonJS Format = iota
	FormatESM
)

// Environment toggles which syntax the render-context builder and
// dependency templates are allowed to emit in init fragments and helper
// references.
type Environment struct {
	// ArrowFunction toggles "(a) => b" vs "function(a) { return b }" in
	// generated helper code.
	ArrowFunction bool `yaml:"arrowFunction"`

	// Destructuring toggles "var [x] = y" vs serial index assignments for
	// generated namespace/import bindings.
	Destructuring bool `yaml:"destructuring"`
}

// Optimization gates the corresponding analyzer passes.
type Optimization struct {
	UsedExports     bool `yaml:"usedExports"`     // drives C6 usage propagation
	ProvidedExports bool `yaml:"providedExports"` // drives provided-exports inference
	InnerGraph      bool `yaml:"innerGraph"`       // part-level (not just export-level) liveness
	SideEffects     bool `yaml:"sideEffects"`      // whether side-effect-free modules may be dropped
	InlineExports   bool `yaml:"inlineExports"`    // whether a single-value export may be inlined at use sites

	// RemoveAvailableModules gates splitter Stage 5 (spec.md §4.6). Off by
	// default would be unusual for a bundler, but rspack gates it the same
	// way behind an option, so we carry the same knob.
	RemoveAvailableModules bool `yaml:"removeAvailableModules"`
}

// Options is the engine-wide configuration passed into a compilation. Field
// tags let cmd/bundlecore load this straight out of a YAML config file via
// gopkg.in/yaml.v3 instead of a hand-rolled flag-by-flag parser.
type Options struct {
	Module       Format       `yaml:"module"`
	Environment  Environment  `yaml:"environment"`
	Optimization Optimization `yaml:"optimization"`

	// CodeSplitting, when false, still produces a chunk graph (the splitter
	// always runs — code splitting is this engine's whole job) but disables
	// Stage 5 in addition to whatever Optimization.RemoveAvailableModules
	// says, matching esbuild's top-level "CodeSplitting" switch which also
	// gates cross-chunk module sharing, not just available-module removal.
	CodeSplitting bool `yaml:"codeSplitting"`

	// PublicPath is prefixed onto cross-chunk import specifiers when
	// rendering init fragments; empty means relative paths.
	PublicPath string `yaml:"publicPath"`
}

// UnmarshalYAML lets "module: esm" / "module: cjs" appear as plain strings
// in a config file instead of the Format enum's ordinal.
func (f *Format) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "cjs" || s == "commonjs" {
		*f = FormatCommonJS
	} else {
		*f = FormatESM
	}
	return nil
}

// MarshalYAML is UnmarshalYAML's inverse, for writing a loaded config back
// out as YAML.
func (f Format) MarshalYAML() (interface{}, error) {
	if f == FormatCommonJS {
		return "cjs", nil
	}
	return "esm", nil
}

// Default returns the configuration a fresh CLI invocation starts from
// before any user overrides are applied.
func Default() Options {
	return Options{
		Module: FormatESM,
		Environment: Environment{
			ArrowFunction: true,
			Destructuring: true,
		},
		Optimization: Optimization{
			UsedExports:             true,
			ProvidedExports:         true,
			InnerGraph:              true,
			SideEffects:             true,
			InlineExports:           false,
			RemoveAvailableModules:  true,
		},
		CodeSplitting: true,
	}
}

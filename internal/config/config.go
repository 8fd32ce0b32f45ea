// Package config implements the CompilerConfig aggregate of spec.md
// §6: the driver-level knobs every pass in internal/pipeline reads to
// decide whether (and how) it runs.
//
// Grounded on the teacher's internal/schema/internal/manifest
// YAML-loadable config structs (both dropped once the ailang package
// manager they served was scoped out — see DESIGN.md) and
// gopkg.in/yaml.v3's struct-tag unmarshalling idiom, which this
// package reuses directly for LoadFile.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// InputCF groups the knobs that describe what the incoming module's
// control flow already looks like.
type InputCF struct {
	HasScopeAnnotations      bool `yaml:"has_scope_annotations"`
	RestructureWithHeuristics bool `yaml:"restructure_with_heuristics"`
}

// Specialization groups entry-point specialization knobs.
type Specialization struct {
	EntryPoint string `yaml:"entry_point"`
}

// Lower groups lowering-pass knobs.
type Lower struct {
	EmulatePhysicalMemory bool `yaml:"emulate_physical_memory"`
	EmulateGenericPtrs    bool `yaml:"emulate_generic_ptrs"`
	DecayPtrs             bool `yaml:"decay_ptrs"`
}

// Cleanup groups the optional fixed-point cleanup pass's knobs.
type Cleanup struct {
	AfterEveryPass bool `yaml:"after_every_pass"`
}

// Optimisations groups optimisation-level knobs.
type Optimisations struct {
	Cleanup               Cleanup `yaml:"cleanup"`
	WeakenNonLeakingAllocas bool  `yaml:"weaken_non_leaking_allocas"`
}

// Hacks groups escape-hatch knobs documented as such in spec.md §6.
type Hacks struct {
	ForceJoinPointLifting bool `yaml:"force_join_point_lifting"`
}

// AfterPassHook is invoked once per pass (spec.md §4.H step 6). It is
// not YAML-serializable and is wired up by the driver, not loaded from
// a config file.
type AfterPassHook func(passName string, module any)

// Hooks groups callback-style configuration, kept out of the
// YAML-loadable Config (see LoadFile) since functions don't survive
// a round trip.
type Hooks struct {
	AfterPass AfterPassHook
}

// CompilerConfig aggregates every driver knob spec.md §6 names.
type CompilerConfig struct {
	InputCF           InputCF        `yaml:"input_cf"`
	DynamicScheduling bool           `yaml:"dynamic_scheduling"`
	Specialization    Specialization `yaml:"specialization"`
	Lower             Lower          `yaml:"lower"`
	Optimisations     Optimisations  `yaml:"optimisations"`
	PerThreadStackSize int           `yaml:"per_thread_stack_size"`
	Hacks             Hacks          `yaml:"hacks"`

	Hooks Hooks `yaml:"-"`
}

// Default returns the zero-hacks, no-specialization configuration a
// freshly parsed module should run the full pipeline with.
func Default() *CompilerConfig {
	return &CompilerConfig{
		PerThreadStackSize: 4096,
	}
}

// LoadFile parses a YAML compiler-config document, e.g. the
// `shadyc.yaml` a driver might read before invoking the pipeline.
// Unknown keys are ignored (yaml.v3's default decode behaviour),
// matching the teacher's schema/manifest loaders' forward-compatible
// stance on config evolution.
func LoadFile(path string) (*CompilerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// DumpCleanRoundsEnabled reports whether the SHADY_DUMP_CLEAN_ROUNDS
// environment variable is set, per
// spec.md §6: if set, the pipeline dumps module text after every
// cleanup pass that changed something.
func DumpCleanRoundsEnabled() bool {
	_, ok := os.LookupEnv("SHADY_DUMP_CLEAN_ROUNDS")
	return ok
}

// Package config defines the CLI's configuration shape and exposes it
// as a JSON Schema document, mirroring the reference tool's
// internal/reverse/cmd/schema.go.
package config

// Config is the full set of knobs the run command accepts, reflected
// into JSON Schema by the schema subcommand so editors/IDEs can
// validate a future config-file mode even though bincfg itself is
// flag-driven.
type Config struct {
	AsmPath        string `json:"asmPath" jsonschema:"title=Assembly Path,description=Path to the address-ordered disassembly text file"`
	Arch           string `json:"arch" jsonschema:"title=Architecture,description=Target instruction set: avr or armv5"`
	ElfPath        string `json:"elfPath,omitempty" jsonschema:"title=ELF Path,description=Optional path to the original ELF binary for DWARF line info"`
	FlowOut        string `json:"flowOut,omitempty" jsonschema:"title=Flow Output,description=Path to write the JSON/DOT/CSV flow export"`
	DebugOut       string `json:"debugOut,omitempty" jsonschema:"title=Debug Output,description=Path to write the --debug JSON document"`
	IncludeInsn    bool   `json:"includeInsn" jsonschema:"title=Include Instructions,description=Embed re-derived per-instruction records in --debug output"`
	IncludeSymb    bool   `json:"includeSymb" jsonschema:"title=Include Symbols,description=Embed the raw symbol table in --debug output"`
	IgnoreErrors   bool   `json:"ignoreErrors" jsonschema:"title=Ignore Errors,description=Downgrade unknown-mnemonic/unresolvable-target errors to warnings"`
	SuppressLog    bool   `json:"suppressLog" jsonschema:"title=Suppress Log,description=Disable logging output entirely"`
	CSVExpandCalls bool   `json:"csvExpandCalls" jsonschema:"title=Expand Calls in CSV,description=Emit a self-loop row plus one row per call target instead of one combined row"`
}

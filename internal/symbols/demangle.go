// Package symbols presents resolved callee names for display: Itanium
// C++ mangled names are demangled for the TUI's block-detail view,
// while the raw mangled name is preserved in Flow.Callees and written
// unchanged by the exporters. Grounded on the teacher's use of
// github.com/ianlancetaylor/demangle in internal/reverse/cmd/root.go's
// symbol list (demangle.Filter).
package symbols

import "github.com/ianlancetaylor/demangle"

// Display returns a human-readable form of name: demangled if it looks
// like an Itanium-mangled C++ symbol, otherwise name itself unchanged.
func Display(name string) string {
	demangled := demangle.Filter(name)
	if demangled == "" {
		return name
	}
	return demangled
}

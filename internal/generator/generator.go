package generator

import (
	"fmt"

	"bincfg/internal/flow"
)

// FunctionEntry is one discovered function: its entry address and its
// resolved (or synthesized) name.
type FunctionEntry struct {
	EntryAddr uint64
	Name      string
}

// FlowMap maps a function entry address to its reconstructed Flow, one
// entry per discovered function (spec.md §3).
type FlowMap struct {
	order []uint64
	flows map[uint64]*flow.Flow
}

// NewFlowMap creates an empty FlowMap.
func NewFlowMap() *FlowMap {
	return &FlowMap{flows: make(map[uint64]*flow.Flow)}
}

func (fm *FlowMap) put(entryAddr uint64, f *flow.Flow) {
	if _, exists := fm.flows[entryAddr]; !exists {
		fm.order = append(fm.order, entryAddr)
	}
	fm.flows[entryAddr] = f
}

// Get returns the flow for a function entry address.
func (fm *FlowMap) Get(entryAddr uint64) (*flow.Flow, bool) {
	f, ok := fm.flows[entryAddr]
	return f, ok
}

// EntryAddrs returns every function entry address in discovery order.
func (fm *FlowMap) EntryAddrs() []uint64 { return append([]uint64(nil), fm.order...) }

// Generator runs the four phases of spec.md §4.3 against a section's
// InsnMap/SymbMap using a bound Classifier.
type Generator struct {
	Classifier   Classifier
	IgnoreErrors bool
	Log          Logger
}

// New builds a Generator bound to a classifier.
func New(c Classifier, ignoreErrors bool, log Logger) *Generator {
	return &Generator{Classifier: c, IgnoreErrors: ignoreErrors, Log: orNop(log)}
}

// FindFunctions implements Phase A: for each instruction in address
// order, if it classifies as a call with a single resolvable target T
// where T != addr+size (filtering the rcall .+0 push-a-word idiom),
// emit T as a function entry. Names are resolved via an exact SymbMap
// hit, else synthesized as "<enclosing-symbol>+0x<offset>".
func (g *Generator) FindFunctions(insns *InsnMap, symbols *SymbMap) ([]FunctionEntry, error) {
	seen := make(map[uint64]bool)
	var out []FunctionEntry

	for _, addr := range insns.Keys() {
		d, _ := insns.Get(addr)
		inst, err := g.Classifier.Classify(d, g.IgnoreErrors)
		if err != nil {
			if g.IgnoreErrors {
				g.Log.Warnf("findFunctions: skipping instruction at 0x%x: %v", addr, err)
				continue
			}
			return nil, err
		}
		if !inst.IsCall {
			continue
		}
		targets, err := g.Classifier.Targets(inst, addr)
		if err != nil {
			if g.IgnoreErrors {
				g.Log.Warnf("findFunctions: ignoring unresolved call at 0x%x: %v", addr, err)
				continue
			}
			return nil, err
		}
		if len(targets) != 1 {
			continue
		}
		target := targets[0]
		if target == addr+uint64(inst.SizeBytes) {
			g.Log.Debugf("findFunctions: ignoring self-successor call at 0x%x", addr)
			continue
		}
		if seen[target] {
			continue
		}
		seen[target] = true

		name, ok := symbols.Lookup(target)
		if !ok {
			ctx, base, hasCtx := symbols.Context(target)
			if hasCtx {
				name = fmt.Sprintf("%s+0x%x", ctx, target-base)
			} else {
				name = fmt.Sprintf("0x%x", target)
			}
		}
		out = append(out, FunctionEntry{EntryAddr: target, Name: name})
	}

	sortFunctionsByAddr(out)
	return out, nil
}

func sortFunctionsByAddr(fns []FunctionEntry) {
	for i := 1; i < len(fns); i++ {
		j := i
		for j > 0 && fns[j-1].EntryAddr > fns[j].EntryAddr {
			fns[j-1], fns[j] = fns[j], fns[j-1]
			j--
		}
	}
}

// GenerateFlows runs FindFunctions followed by CreateFuncFlow for each
// discovered function, returning the resulting FlowMap.
func (g *Generator) GenerateFlows(insns *InsnMap, symbols *SymbMap) (*FlowMap, error) {
	functions, err := g.FindFunctions(insns, symbols)
	if err != nil {
		return nil, err
	}

	fm := NewFlowMap()
	for _, fn := range functions {
		g.Log.Infof("Creating flow for function %q at 0x%x", fn.Name, fn.EntryAddr)
		f, err := g.CreateFuncFlow(insns, symbols, fn)
		if err != nil {
			if g.IgnoreErrors {
				g.Log.Warnf("skipping function %q: %v", fn.Name, err)
				continue
			}
			return nil, err
		}
		fm.put(fn.EntryAddr, f)
	}
	return fm, nil
}

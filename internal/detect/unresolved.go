package detect

import "bincfg/internal/flow"

// UnresolvedTargetDetector flags blocks that end without any outgoing
// edge and without being marked a pre-exit — an indirect jump/call
// whose target spec.md §7 leaves unresolved (ErrUnresolvableTarget),
// surfaced here instead of aborting flow generation.
type UnresolvedTargetDetector struct{}

func (UnresolvedTargetDetector) Detect(f *flow.Flow, findings []Finding) []Finding {
	for _, addr := range f.Blocks() {
		b, ok := f.Block(addr)
		if !ok {
			continue
		}
		if len(f.OutEdges(addr)) > 0 || f.IsPreExit(addr) {
			continue
		}
		findings = append(findings, Finding{
			BlockID: b.ID,
			Addr:    addr,
			Kind:    "unresolved-target",
			Detail:  "block has no successor and is not a return site",
		})
	}
	return findings
}

// DeadEndDetector flags Normal blocks with zero incoming edges that
// are not the function's post-entry block — unreachable code, usually
// the symptom of a prior overlap/merge pass having mis-split a region.
type DeadEndDetector struct{}

func (DeadEndDetector) Detect(f *flow.Flow, findings []Finding) []Finding {
	post, hasPost := f.PostEntry()
	for _, addr := range f.Blocks() {
		if hasPost && addr == post {
			continue
		}
		b, ok := f.Block(addr)
		if !ok {
			continue
		}
		if b.Type != flow.Normal {
			continue
		}
		if len(f.InEdges(addr)) > 0 {
			continue
		}
		findings = append(findings, Finding{
			BlockID: b.ID,
			Addr:    addr,
			Kind:    "dead-end",
			Detail:  "block is unreachable from the function entry",
		})
	}
	return findings
}

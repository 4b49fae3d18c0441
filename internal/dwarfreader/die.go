package dwarfreader

import "debug/dwarf"

// validDieTags is the tag filter the JSON exporter's --debug DIE-tree
// supplement applies (SPEC_FULL.md §12 item 1), grounded on
// JsonFlowExporter::exportDebugData's validTags set in the original
// implementation.
var validDieTags = map[dwarf.Tag]bool{
	dwarf.TagCompileUnit:       true,
	dwarf.TagSubprogram:        true,
	dwarf.TagInlinedSubroutine: true,
	dwarf.TagVariable:          true,
	dwarf.TagBaseType:          true,
	dwarf.TagLexDwarfBlock:     true,
}

// DieNode is one exported debug-info entry: its tag, offset, flattened
// attribute values, and children (filtered to validDieTags).
type DieNode struct {
	Tag      string
	Offset   int64
	Attrs    map[string]string
	Children []*DieNode
}

// DieTree builds the filtered DIE forest for every compile unit,
// returning one root DieNode per compile unit.
func (r *Reader) DieTree() []*DieNode {
	var roots []*DieNode
	for _, cu := range r.units {
		root := buildDieNode(r.data, cu.Entry)
		reader := r.data.Reader()
		reader.Seek(cu.Entry.Offset)
		reader.Next() // consume the CU entry itself
		root.Children = buildChildren(r.data, reader, 1)
		roots = append(roots, root)
	}
	return roots
}

func buildDieNode(data *dwarf.Data, entry *dwarf.Entry) *DieNode {
	n := &DieNode{Tag: entry.Tag.String(), Offset: int64(entry.Offset), Attrs: make(map[string]string)}
	for _, f := range entry.Field {
		n.Attrs[f.Attr.String()] = attrString(f.Val)
	}
	return n
}

func attrString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int64:
		return itoa(t)
	case uint64:
		return itoa(int64(t))
	default:
		return ""
	}
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// buildChildren walks siblings at the current reader depth, recursing
// into children and skipping tags outside validDieTags. A skipped
// entry's own valid descendants are still walked and are attached in
// its place, as children of the nearest valid ancestor.
func buildChildren(data *dwarf.Data, reader *dwarf.Reader, depth int) []*DieNode {
	var children []*DieNode
	for {
		entry, err := reader.Next()
		if err != nil || entry == nil {
			return children
		}
		if entry.Tag == 0 {
			// end of siblings at this depth
			return children
		}
		var kids []*DieNode
		if entry.Children {
			kids = buildChildren(data, reader, depth+1)
		}
		if !validDieTags[entry.Tag] {
			children = append(children, kids...)
			continue
		}
		node := buildDieNode(data, entry)
		node.Children = kids
		children = append(children, node)
	}
}

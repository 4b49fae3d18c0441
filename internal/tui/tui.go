// Package tui implements the interactive flow browser behind `bincfg
// view`. Grounded on the reference tool's internal/reverse/cmd model:
// a bubbletea/v2 model pairing a bubbles/v2 list.Model (left: block
// list) with a viewport.Model (right: rendered block detail), styled
// with lipgloss/v2 and glamour via internal/styles — the same pairing
// the reference tool uses for its symbols/reverse views, retargeted
// from ELF symbols to Flow basic blocks.
package tui

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/v2/list"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"

	"bincfg/internal/styles"
	"bincfg/internal/symbols"
)

// blockItem is one list.Item backing the block-list pane.
type blockItem struct {
	id         int64
	blockType  string
	addrRanges [][2]uint64
	calls      []string
	outEdges   []int64
	filterTerm string
}

func (b blockItem) Title() string {
	if len(b.addrRanges) == 0 {
		return fmt.Sprintf("[%s]", b.blockType)
	}
	return fmt.Sprintf("%#x  %s", b.addrRanges[0][0], b.blockType)
}
func (b blockItem) FilterValue() string { return b.filterTerm }
func (b blockItem) Description() string { return "" }

type blockDelegate struct{}

func (d blockDelegate) Height() int                               { return 1 }
func (d blockDelegate) Spacing() int                              { return 0 }
func (d blockDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d blockDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	b, ok := listItem.(blockItem)
	if !ok {
		return
	}

	indicator := " "
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	if index == m.Index() {
		indicator = ">"
		style = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))
	}

	fmt.Fprintf(w, " %s  %s", indicator, style.Render(b.Title()))
}

// Model is the top-level bubbletea model for `bincfg view`.
type Model struct {
	list     list.Model
	detail   viewport.Model
	flow     *flowDoc
	width    int
	height   int
	sourceID string
}

// New builds a Model over a previously-parsed flow document.
func New(path string, doc *flowDoc) Model {
	items := make([]list.Item, 0, len(doc.BasicBlocks))
	for _, b := range doc.BasicBlocks {
		items = append(items, blockItem{
			id:         b.ID,
			blockType:  b.BlockType,
			addrRanges: b.AddrRanges,
			calls:      b.Calls,
			outEdges:   doc.outEdges[b.ID],
			filterTerm: fmt.Sprintf("%d %s %s", b.ID, b.BlockType, strings.Join(b.Calls, " ")),
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].(blockItem).id < items[j].(blockItem).id })

	l := list.New(items, blockDelegate{}, 40, 24)
	l.Title = fmt.Sprintf("%s — %d blocks", doc.Name, len(doc.BasicBlocks))
	l.Styles.Title = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).MarginLeft(1)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	vp := viewport.New()
	vp.SetWidth(60)
	vp.SetHeight(24)

	m := Model{list: l, detail: vp, flow: doc, width: 100, height: 24, sourceID: path}
	m.updateDetail()
	return m
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		listWidth := m.width * 2 / 5
		m.list.SetWidth(listWidth)
		m.list.SetHeight(m.height - 2)
		m.detail.SetWidth(m.width - listWidth - 2)
		m.detail.SetHeight(m.height - 2)
		m.updateDetail()
		return m, nil

	case tea.KeyMsg:
		if m.list.FilterState() != list.Filtering {
			switch msg.String() {
			case "q", "ctrl+c":
				return m, tea.Quit
			}
		}
	}

	var cmd tea.Cmd
	prevIndex := m.list.Index()
	m.list, cmd = m.list.Update(msg)
	if m.list.Index() != prevIndex {
		m.updateDetail()
	}
	return m, cmd
}

func (m Model) View() string {
	listView := m.list.View()
	detailView := m.detail.View()

	row := lipgloss.JoinHorizontal(lipgloss.Top, listView, " ", detailView)

	menu := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("252")).
		Padding(0, 1).
		Width(m.width).
		Render(" ↑/↓: navigate • /: filter • Q: quit ")

	return row + "\n" + menu
}

// updateDetail re-renders the right-hand pane for the currently
// selected block: its address ranges, callees, and successor blocks,
// rendered through glamour the way the reference tool renders its
// info panel.
func (m *Model) updateDetail() {
	item, ok := m.list.SelectedItem().(blockItem)
	if !ok {
		m.detail.SetContent("")
		return
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("## Block %d (%s)", item.id, item.blockType))
	lines = append(lines, "")

	if len(item.addrRanges) > 0 {
		lines = append(lines, "```")
		for _, r := range item.addrRanges {
			lines = append(lines, fmt.Sprintf("%#08x - %#08x", r[0], r[1]))
		}
		lines = append(lines, "```")
	}

	if len(item.calls) > 0 {
		lines = append(lines, "", "**Calls**", "")
		for _, c := range item.calls {
			lines = append(lines, fmt.Sprintf("- `%s`", symbols.Display(c)))
		}
	}

	if len(item.outEdges) > 0 {
		lines = append(lines, "", "**Successors**", "")
		for _, dst := range item.outEdges {
			lines = append(lines, fmt.Sprintf("- %s", blockLabel(dst)))
		}
	}

	width := m.detail.Width()
	if width <= 0 {
		width = 60
	}
	renderer := styles.MarkdownRenderer(width - 2)
	rendered, err := renderer.Render(strings.Join(lines, "\n"))
	if err != nil {
		rendered = strings.Join(lines, "\n")
	}
	m.detail.SetContent(strings.TrimSuffix(rendered, "\n"))
}

func blockLabel(id int64) string {
	switch {
	case id == -1:
		return "Entry"
	case id == -2:
		return "Exit"
	case id < -2:
		return fmt.Sprintf("FunctionCall(%d)", id)
	default:
		return fmt.Sprintf("%#x", id)
	}
}

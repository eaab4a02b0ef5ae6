//go:build !notui

package rulelist

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/agentwarden/warden/internal/tui"
)

// ruleItem implements list.Item for a single trust rule.
type ruleItem struct {
	entry Entry
}

func (i ruleItem) FilterValue() string { return i.entry.Rule.Pattern }

// Title returns plain text — styling is done in the custom delegate to avoid
// ANSI escape corruption when bubbles/list applies filter highlighting.
func (i ruleItem) Title() string {
	return i.entry.Rule.Pattern
}

func (i ruleItem) Description() string {
	desc := i.entry.Rule.Describe()
	if desc == "" {
		desc = "(no description)"
	}
	if i.entry.Scope == "global" {
		desc += "  " + tui.StyleAccent.Render("[global]")
	}
	return tui.StyleMuted.Render(desc)
}

// headerItem is a non-selectable separator for per-tool group headers.
type headerItem struct {
	title string
}

func (h headerItem) FilterValue() string { return "" }
func (h headerItem) Title() string       { return tui.Separator(h.title) }
func (h headerItem) Description() string { return "" }

// ruleDelegate renders rule items with proper styling that won't leak
// ANSI escapes into the filter highlight overlay.
type ruleDelegate struct {
	styles list.DefaultItemStyles
}

func newRuleDelegate() ruleDelegate {
	styles := list.NewDefaultItemStyles()
	styles.SelectedTitle = styles.SelectedTitle.
		Foreground(tui.ColorAccent).
		BorderLeftForeground(tui.ColorAccent)
	styles.SelectedDesc = styles.SelectedDesc.
		Foreground(tui.ColorMuted).
		BorderLeftForeground(tui.ColorAccent)
	return ruleDelegate{styles: styles}
}

func (d ruleDelegate) Height() int                         { return 2 }
func (d ruleDelegate) Spacing() int                        { return 1 }
func (d ruleDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }
func (d ruleDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ri, ok := item.(ruleItem)
	if !ok {
		// headerItem — render as separator
		if h, ok := item.(headerItem); ok {
			fmt.Fprint(w, tui.Separator(h.title))
		}
		return
	}

	selected := index == m.Index()

	title := tui.StyleAccent.Render(tui.IconPattern) + " " + tui.StyleBold.Render(ri.entry.Rule.Pattern)
	desc := ri.Description()

	if selected {
		title = d.styles.SelectedTitle.Render("> " + ri.entry.Rule.Pattern)
		desc = d.styles.SelectedDesc.Render("  " + desc)
	} else {
		title = "  " + title
		desc = "  " + desc
	}

	fmt.Fprintf(w, "%s\n%s", title, desc)
}

// model is the bubbletea model for the interactive rule list.
type model struct {
	list   list.Model
	width  int
	height int
}

// Render displays trust rules in an interactive list grouped by tool.
// Supports scroll navigation and filtering by pattern.
// Falls back to static display in plain mode.
func Render(entries []Entry, title string) error {
	if tui.IsPlainMode() {
		return RenderPlain(entries, title)
	}

	items := buildListItems(entries)

	// Use custom delegate to avoid ANSI escape leak in filter mode
	delegate := newRuleDelegate()

	l := list.New(items, delegate, 80, 24)
	l.Title = fmt.Sprintf("%s (%d rules)", title, len(entries))
	l.Styles.Title = tui.StyleTitle
	l.Styles.FilterPrompt = lipgloss.NewStyle().Foreground(tui.ColorAccent)
	l.Styles.FilterCursor = lipgloss.NewStyle().Foreground(tui.ColorSuccess)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)

	m := model{list: l}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height)

	case tea.KeyMsg:
		if msg.String() == "q" && !m.list.SettingFilter() {
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) View() string {
	return m.list.View()
}

// buildListItems converts entries into list items with a header per tool.
func buildListItems(entries []Entry) []list.Item {
	var items []list.Item
	tools, byTool := groupByTool(entries)
	for _, t := range tools {
		items = append(items, headerItem{title: t.String()})
		for _, e := range byTool[t] {
			items = append(items, ruleItem{entry: e})
		}
	}
	return items
}

package menu

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	defaultWidth  = 80
	defaultHeight = 20
)

// item is one list entry. id is its position in the caller's slice, which
// survives list filtering.
type item struct {
	id    int
	label string
	desc  string
}

func (i item) FilterValue() string { return i.label }

// itemDelegate renders single-line entries. When checked is set, entries
// get a checkbox.
type itemDelegate struct {
	checked map[int]bool
}

func (d itemDelegate) Height() int                             { return 1 }
func (d itemDelegate) Spacing() int                            { return 0 }
func (d itemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	it, ok := listItem.(item)
	if !ok {
		return
	}

	label := it.label
	if d.checked != nil {
		box := "[ ] "
		if d.checked[it.id] {
			box = "[x] "
		}
		label = box + label
	}

	line := "  " + itemStyle.Render(label)
	if index == m.Index() {
		line = selectedStyle.Render("> " + label)
	}
	if it.desc != "" {
		line += descStyle.Render("  " + it.desc)
	}
	fmt.Fprint(w, line)
}

func newList(title string, items []item, delegate itemDelegate) list.Model {
	listItems := make([]list.Item, 0, len(items))
	for _, it := range items {
		listItems = append(listItems, it)
	}

	l := list.New(listItems, delegate, defaultWidth, defaultHeight)
	l.Title = title
	l.Styles.Title = titleStyle
	l.SetShowStatusBar(false)
	l.DisableQuitKeybindings()
	return l
}

// filtering reports whether the list owns the keyboard for its filter.
func filtering(l list.Model) bool {
	return l.FilterState() == list.Filtering
}

// selectModel picks one entry. chosen stays -1 when cancelled.
type selectModel struct {
	list   list.Model
	chosen int
}

func newSelectModel(title string, items []item) selectModel {
	l := newList(title, items, itemDelegate{})
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Choose, keys.Cancel}
	}
	return selectModel{list: l, chosen: -1}
}

func (m selectModel) Init() tea.Cmd { return nil }

func (m selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		if filtering(m.list) {
			break
		}
		switch {
		case key.Matches(msg, keys.Cancel) && m.list.FilterState() == list.Unfiltered:
			return m, tea.Quit
		case key.Matches(msg, keys.Choose):
			if it, ok := m.list.SelectedItem().(item); ok {
				m.chosen = it.id
				return m, tea.Quit
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m selectModel) View() string {
	if m.chosen >= 0 {
		return ""
	}
	return m.list.View()
}

// multiSelectModel picks any number of entries with space; enter confirms.
type multiSelectModel struct {
	list      list.Model
	checked   map[int]bool
	confirmed bool
}

func newMultiSelectModel(title string, items []item) multiSelectModel {
	checked := map[int]bool{}
	l := newList(title, items, itemDelegate{checked: checked})
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Toggle, keys.Choose, keys.Cancel}
	}
	return multiSelectModel{list: l, checked: checked}
}

func (m multiSelectModel) Init() tea.Cmd { return nil }

func (m multiSelectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		if filtering(m.list) {
			break
		}
		switch {
		case key.Matches(msg, keys.Cancel) && m.list.FilterState() == list.Unfiltered:
			for id := range m.checked {
				delete(m.checked, id)
			}
			return m, tea.Quit
		case key.Matches(msg, keys.Toggle):
			if it, ok := m.list.SelectedItem().(item); ok {
				m.checked[it.id] = !m.checked[it.id]
			}
			return m, nil
		case key.Matches(msg, keys.Choose):
			m.confirmed = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m multiSelectModel) View() string {
	if m.confirmed {
		return ""
	}
	return m.list.View()
}

// selected returns the checked ids in ascending order.
func (m multiSelectModel) selected(n int) []int {
	if !m.confirmed {
		return nil
	}
	var ids []int
	for id := 0; id < n; id++ {
		if m.checked[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

// header renders a title with indented detail lines.
func header(title string, details ...string) string {
	var b strings.Builder
	b.WriteString(title)
	for _, d := range details {
		b.WriteString("\n  " + d)
	}
	return b.String()
}

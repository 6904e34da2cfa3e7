package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/xpcom-bridge/resolver"
	"github.com/wippyai/xpcom-bridge/xpt"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelectIface modelState = iota
	stateSelectMethod
	stateResolve
	stateShowResult
)

type interactiveModel struct {
	err      error
	lib      *xpt.Typelib
	ifaces   []*xpt.Interface
	methods  []methodInfo
	result   string
	input    textinput.Model
	iface    int
	selected int
	state    modelState
}

type methodInfo struct {
	method *xpt.Method
	index  int
}

func newInteractiveModel(lib *xpt.Typelib) *interactiveModel {
	return &interactiveModel{
		lib:    lib,
		ifaces: lib.Interfaces(),
		state:  stateSelectIface,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m.updateInput(msg)
	}

	if m.state == stateResolve {
		switch key.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			m.state = stateSelectMethod
			return m, nil
		case "enter":
			m.resolve(m.input.Value())
			return m, nil
		}
		return m.updateInput(msg)
	}

	switch key.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}

	case "down", "j":
		if m.selected < m.listLen()-1 {
			m.selected++
		}

	case "/":
		if m.state == stateSelectMethod {
			m.input = textinput.New()
			m.input.Placeholder = "getLabel"
			m.input.Prompt = "name: "
			m.input.Width = 40
			m.input.Focus()
			m.state = stateResolve
			return m, textinput.Blink
		}

	case "enter":
		switch m.state {
		case stateSelectIface:
			if len(m.ifaces) > 0 {
				m.iface = m.selected
				m.loadMethods()
				m.selected = 0
				m.state = stateSelectMethod
			}
		case stateSelectMethod:
			if len(m.methods) > 0 {
				m.showMethod(m.methods[m.selected])
			}
		case stateShowResult:
			m.state = stateSelectMethod
			m.result = ""
			m.err = nil
		}

	case "esc":
		switch m.state {
		case stateSelectMethod:
			m.state = stateSelectIface
			m.selected = m.iface
		case stateShowResult:
			m.state = stateSelectMethod
			m.result = ""
			m.err = nil
		}
	}
	return m, nil
}

func (m *interactiveModel) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.state != stateResolve {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) listLen() int {
	if m.state == stateSelectIface {
		return len(m.ifaces)
	}
	return len(m.methods)
}

func (m *interactiveModel) loadMethods() {
	iface := m.ifaces[m.iface]
	m.methods = m.methods[:0]
	for i := range iface.MethodCount() {
		meth, _ := iface.Method(i)
		if meth.Hidden {
			continue
		}
		m.methods = append(m.methods, methodInfo{method: meth, index: i})
	}
}

func (m *interactiveModel) showMethod(mi methodInfo) {
	var b strings.Builder
	fmt.Fprintf(&b, "index %d, native name %q\n", mi.index, mi.method.Name)
	for i, p := range mi.method.Params {
		fmt.Fprintf(&b, "  %d: %-12s %-14s %s", i, p.Name, p.Dir, p.Type)
		if p.Type.SizeIs != xpt.NoArg && p.Type.Tag == xpt.Array {
			fmt.Fprintf(&b, " size_is=%s", mi.method.Params[p.Type.SizeIs].Name)
		}
		if p.Type.IIDIs != xpt.NoArg && p.Type.Tag == xpt.InterfaceIs {
			fmt.Fprintf(&b, " iid_is=%s", mi.method.Params[p.Type.IIDIs].Name)
		}
		b.WriteString("\n")
	}
	m.result = b.String()
	m.err = nil
	m.state = stateShowResult
}

func (m *interactiveModel) resolve(name string) {
	iface := m.ifaces[m.iface]
	match, err := resolver.Resolve(iface, strings.TrimSpace(name))
	if err != nil {
		m.err = err
		m.result = ""
	} else {
		m.err = nil
		m.result = fmt.Sprintf("%s -> [%d] %s (%s)", name, match.Index, match.Method.Name, match.Strategy)
	}
	m.state = stateShowResult
}

func (m *interactiveModel) View() string {
	if len(m.ifaces) == 0 {
		return errorStyle.Render("No interfaces loaded.\n\nPress q to quit.")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("XPCOM Bridge"))
	b.WriteString(fmt.Sprintf(" %d interfaces\n\n", len(m.ifaces)))

	switch m.state {
	case stateSelectIface:
		b.WriteString("Select an interface:\n\n")
		for i, iface := range m.ifaces {
			line := iface.Name + " " + typeStyle.Render(iface.IID.String())
			m.writeItem(&b, i, line)
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter open • q quit"))

	case stateSelectMethod:
		b.WriteString(fmt.Sprintf("Methods of %s:\n\n", funcStyle.Render(m.ifaces[m.iface].Name)))
		for i, mi := range m.methods {
			m.writeItem(&b, i, fmt.Sprintf("[%d] %s", mi.index, formatMethod(mi.method)))
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter details • / resolve name • esc back • q quit"))

	case stateResolve:
		b.WriteString(fmt.Sprintf("Resolve a managed call name on %s\n\n", funcStyle.Render(m.ifaces[m.iface].Name)))
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter resolve • esc back"))

	case stateShowResult:
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) writeItem(b *strings.Builder, i int, line string) {
	if i == m.selected {
		b.WriteString(selectedStyle.Render("> " + line))
	} else {
		b.WriteString("  " + line)
	}
	b.WriteString("\n")
}

func runInteractive(lib *xpt.Typelib) error {
	p := tea.NewProgram(newInteractiveModel(lib), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

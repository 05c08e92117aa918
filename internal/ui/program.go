package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// RunOnceModel is a Bubble Tea model that renders once and exits.
// This is used for "run once and exit" output patterns rather than
// interactive TUIs.
type RunOnceModel struct {
	content string
	width   int
	height  int
}

// NewRunOnceModel creates a model that will render the given content and exit
func NewRunOnceModel(content string) RunOnceModel {
	width, height := GetTerminalSize()
	return RunOnceModel{
		content: content,
		width:   width,
		height:  height,
	}
}

// Init implements tea.Model
func (m RunOnceModel) Init() tea.Cmd {
	// Immediately signal we're done after first render
	return tea.Quit
}

// Update implements tea.Model
func (m RunOnceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = GetTerminalSize()
	}
	return m, nil
}

// View implements tea.Model
func (m RunOnceModel) View() string {
	return m.content
}

// RenderOnce renders content using Bubble Tea's rendering engine and immediately exits.
func RenderOnce(content string) error {
	p := tea.NewProgram(NewRunOnceModel(content), tea.WithOutput(os.Stdout), tea.WithInput(nil))
	_, err := p.Run()
	return err
}

// Field is one rendered packet field.
type Field struct {
	Group string // Empty for top level fields
	Name  string
	Value string
}

// Printer writes CLI output, styled when the output is a terminal.
type Printer struct {
	out    io.Writer
	width  int
	styled bool
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:    w,
		width:  GetTerminalWidth(),
		styled: IsTerminal(w),
	}
}

// Styled reports whether output is styled.
func (p *Printer) Styled() bool { return p.styled }

// Print writes content to the output
func (p *Printer) Print(content string) {
	_, _ = fmt.Fprint(p.out, content)
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintTable prints a table. Styled tables on stdout go through RenderOnce.
func (p *Printer) PrintTable(t *Table) error {
	content := t.Render(p.styled)
	if p.styled && p.out == os.Stdout {
		return RenderOnce(content)
	}
	p.Print(content)
	return nil
}

// PrintHeader prints a message header, boxed when styled.
func (p *Printer) PrintHeader(title, subtitle string) {
	if !p.styled {
		p.Println(title + " (" + subtitle + ")")
		return
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		HeaderTitleStyle.Render(strings.ToUpper(title)),
		HeaderCommandStyle.Render(subtitle),
	)
	p.Println(HeaderBorderStyle(p.width).Render(content))
}

// PrintFields prints fields one per line, grouped under their group name.
func (p *Printer) PrintFields(fields []Field) {
	keyWidth := 0
	for _, f := range fields {
		if w := lipgloss.Width(f.Name); w > keyWidth {
			keyWidth = w
		}
	}
	group := ""
	for _, f := range fields {
		indent := ""
		if f.Group != "" {
			indent = "  "
			if f.Group != group {
				p.Println(render(p.styled, GroupStyle, f.Group))
			}
		}
		group = f.Group
		key := f.Name + strings.Repeat(" ", keyWidth-lipgloss.Width(f.Name))
		p.Println(indent + render(p.styled, FieldKeyStyle, key) + "  " + render(p.styled, FieldValueStyle, f.Value))
	}
}

// PrintSuccess prints a success line followed by sorted details.
func (p *Printer) PrintSuccess(title string, details map[string]string) {
	p.Println(render(p.styled, SuccessTitleStyle, SuccessMarker+" "+title))
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p.Println("  " + render(p.styled, FieldKeyStyle, k+":") + " " + details[k])
	}
}

// PrintError prints an error with optional troubleshooting tips
func (p *Printer) PrintError(title string, err error, troubleshooting []string) {
	p.Println(render(p.styled, ErrorTitleStyle, FailureMarker+" "+title))
	if err != nil {
		p.Println("  " + render(p.styled, ErrorMessageStyle, err.Error()))
	}
	for _, tip := range troubleshooting {
		p.Println("  - " + tip)
	}
}

// Package ui renders terminal output for the lumen CLI.
//
// Output is styled with Lipgloss only when it goes to a terminal; piped output
// stays plain so it can be consumed by scripts. Styled tables on stdout are
// rendered through a run-once Bubble Tea program.
//
// Example:
//
//	p := ui.NewPrinter(os.Stdout)
//	p.PrintHeader("SetPower", "protocol 1024, type 21")
//	p.PrintFields([]ui.Field{
//	    {Group: "frame_header", Name: "size", Value: "38"},
//	    {Name: "level", Value: "65535"},
//	})
//
// # Logging Integration
//
// This package expects logging to be controlled via the LUMEN_LOG_LEVEL
// environment variable. When unset or empty, zap logging is silent, allowing
// the curated output to be displayed cleanly.
package ui

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/mapstack/pkg/genre"
	"github.com/matzehuels/mapstack/pkg/surface"
)

// out receives all user-facing output. Tests swap it for a buffer.
var out io.Writer = os.Stdout

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - links
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleHighlight for emphasized values.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleLink for URLs.
	StyleLink = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleRebuilt  = lipgloss.NewStyle().Foreground(colorYellow)
	styleFastPath = lipgloss.NewStyle().Foreground(colorGreen)
	styleHidden   = lipgloss.NewStyle().Foreground(colorDim).Strikethrough(true)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess  = "✓"
	iconError    = "✗"
	iconWarning  = "!"
	iconInfo     = "›"
	iconArrow    = "→"
	iconRebuilt  = "rebuilt"
	iconFastPath = "in place"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(out, styleIconSuccess.Render(iconSuccess)+" "+msg)
}

// printError prints an error message.
func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(out, styleIconError.Render(iconError)+" "+msg)
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(out, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(msg))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(out, styleIconInfo.Render(iconInfo)+" "+msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(out, "  "+StyleDim.Render(msg))
}

// =============================================================================
// File Output
// =============================================================================

// printFile prints a file output line.
func printFile(path string) {
	fmt.Fprintln(out, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

// =============================================================================
// Key-Value Output
// =============================================================================

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Fprintln(out, keyStyle.Render(key)+" "+StyleValue.Render(value))
}

// =============================================================================
// Reconcile Display
// =============================================================================

// printResult prints reconcile counters on a single line.
func printResult(res *genre.Result) {
	if res == nil {
		return
	}
	var parts []string
	for _, c := range []struct {
		n    int
		what string
	}{
		{res.Created, "created"},
		{res.Patched, "patched"},
		{res.Reused, "reused"},
		{res.Removed, "removed"},
		{res.Carried, "carried"},
		{res.Failed, "failed"},
		{res.Pending, "pending"},
		{res.Foreign, "foreign"},
	} {
		if c.n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", c.n, c.what))
		}
	}

	status, statusStyle := iconFastPath, styleFastPath
	if res.Rebuilt {
		status, statusStyle = iconRebuilt, styleRebuilt
	}
	parts = append(parts, statusStyle.Render(status))

	line := "  "
	for i, part := range parts {
		if i > 0 {
			line += StyleDim.Render(" · ")
		}
		line += StyleDim.Render(part)
	}
	fmt.Fprintln(out, line)
}

// printStack prints the nodes of c top-down, the topmost node first.
func printStack(c *surface.Collection) {
	nodes := c.Nodes()
	if len(nodes) == 0 {
		printInfo("Surface is empty")
		return
	}
	for i := len(nodes) - 1; i >= 0; i-- {
		printNode(len(nodes)-1-i, nodes[i])
	}
}

func printNode(pos int, n *surface.Node) {
	id := string(n.ID())
	if n.Foreign() {
		id = "(foreign)"
	}
	name := StyleValue.Render(id)
	if !n.Visible {
		name = styleHidden.Render(id)
	}

	var attrs []string
	attrs = append(attrs, string(n.Kind), n.Source.Type)
	if n.Opacity != 1 {
		attrs = append(attrs, fmt.Sprintf("opacity %g", n.Opacity))
	}
	if n.Extent != nil {
		attrs = append(attrs, "extent "+n.Extent.String())
	}

	fmt.Fprintf(out, "%s %s %s\n",
		StyleNumber.Render(fmt.Sprintf("%3d", pos)),
		name,
		StyleDim.Render(strings.Join(attrs, " · ")))
	if n.Source.URL != "" {
		fmt.Fprintln(out, "    "+StyleLink.Render(n.Source.URL))
	}
}

// =============================================================================
// Commands & Next Steps
// =============================================================================

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Fprintln(out, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

// =============================================================================
// Utilities
// =============================================================================

// printNewline prints an empty line.
func printNewline() {
	fmt.Fprintln(out)
}

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

var (
	// fatih/color disables these automatically when output is not a TTY
	successColor = color.New(color.FgGreen, color.Bold)
	linkColor    = color.New(color.FgGreen, color.Underline)
	warningColor = color.New(color.FgYellow, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgBlue, color.Bold)
	labelColor   = color.New(color.FgWhite, color.Bold)
	valueColor   = color.New(color.FgHiBlack)
	dimColor     = color.New(color.FgHiBlack)
)

// PrintSection prints a section header surrounded by blank lines.
func PrintSection(title string) {
	fmt.Println()
	_, _ = headerColor.Printf("▸ %s\n", title)
	fmt.Println()
}

// PrintSubsection prints an indented subsection header.
func PrintSubsection(title string) {
	_, _ = infoColor.Printf("  %s\n", title)
}

// PrintSuccess prints a success message with a checkmark.
func PrintSuccess(msg string) {
	_, _ = successColor.Printf("✓ %s\n", msg)
}

// PrintWarning prints a warning message.
func PrintWarning(msg string) {
	_, _ = warningColor.Printf("⚠ %s\n", msg)
}

// PrintError prints an error message to stderr.
func PrintError(msg string) {
	_, _ = errorColor.Fprintf(os.Stderr, "✗ %s\n", msg)
}

// PrintInfo prints an uncolored message.
func PrintInfo(msg string) {
	fmt.Println(msg)
}

// PrintLabelValue prints an indented "label: value" line.
func PrintLabelValue(label, value string) {
	PrintLabelValueWithColor(label, value, valueColor)
}

// PrintLabelValueWithColor prints an indented "label: value" line with the
// value in valueClr.
func PrintLabelValueWithColor(label, value string, valueClr *color.Color) {
	_, _ = labelColor.Printf("  %s: ", label)
	_, _ = valueClr.Println(value)
}

// PrintList prints items as bullets, indented by indent levels.
func PrintList(items []string, indent int) {
	prefix := strings.Repeat("  ", indent)
	for _, item := range items {
		_, _ = infoColor.Printf("%s• %s\n", prefix, item)
	}
}

// PrintTable prints rows under headers with every column padded to its
// widest cell. Cells beyond the header count are dropped.
func PrintTable(headers []string, rows [][]string) {
	if len(headers) == 0 || len(rows) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = len(header)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], len(row[i]))
		}
	}

	printRow(headers, widths, headerColor)

	rule := make([]string, len(widths))
	for i, w := range widths {
		rule[i] = strings.Repeat("-", w)
	}
	fmt.Println("  " + strings.Join(rule, "  "))

	for _, row := range rows {
		printRow(row, widths, valueColor)
	}
}

func printRow(cells []string, widths []int, clr *color.Color) {
	fmt.Print("  ")
	for i := 0; i < len(cells) && i < len(widths); i++ {
		if i > 0 {
			fmt.Print("  ")
		}
		_, _ = clr.Printf("%-*s", widths[i], cells[i])
	}
	fmt.Println()
}

// PrintEmptyState prints a dimmed placeholder for an empty listing.
func PrintEmptyState(msg string) {
	_, _ = dimColor.Printf("  %s\n", msg)
}

// PrintCount formats count with the singular or plural noun.
func PrintCount(count int, singular, plural string) string {
	noun := plural
	if count == 1 {
		noun = singular
	}
	return fmt.Sprintf("%d %s", count, noun)
}

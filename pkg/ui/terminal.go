package ui

import (
	"fmt"
	"io"
	"os"
)

// ASCII logo for the application
const ASCIILogo = `
    ╔═══════════════════════════════════════════════════════╗
    ║ ██╗  ██╗███████╗ ██████╗██████╗  █████╗ ██████╗ ███████╗║
    ║ ╚██╗██╔╝██╔════╝██╔════╝██╔══██╗██╔══██╗██╔══██╗██╔════╝║
    ║  ╚███╔╝ ███████╗██║     ██████╔╝███████║██████╔╝█████╗  ║
    ║  ██╔██╗ ╚════██║██║     ██╔══██╗██╔══██║██╔═══╝ ██╔══╝  ║
    ║ ██╔╝ ██╗███████║╚██████╗██║  ██║██║  ██║██║     ███████╗║
    ║ ╚═╝  ╚═╝╚══════╝ ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝╚═╝     ╚══════╝║
    ║          PROFILE COLLECTION UTILITY                    ║
    ╚═══════════════════════════════════════════════════════╝
`

// Output is where the print helpers write
var Output io.Writer = os.Stdout

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(colorString, text)
	}
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	fmt.Fprint(Output, Cyan(ASCIILogo))
}

// detail appends the non-empty details to msg
func detail(msg string, args []interface{}) string {
	for _, a := range args {
		if v := fmt.Sprint(a); v != "" {
			msg += ": " + v
		}
	}
	return msg
}

// PrintError prints msg and any details in red
func PrintError(msg string, args ...interface{}) {
	fmt.Fprintln(Output, Red("✗ "+detail(msg, args)))
}

// PrintWarning prints msg and any details in yellow
func PrintWarning(msg string, args ...interface{}) {
	fmt.Fprintln(Output, Yellow("! "+detail(msg, args)))
}

func PrintSuccess(msg string) {
	fmt.Fprintln(Output, Green("✓ "+msg))
}

// PrintInfo prints an aligned label and value
func PrintInfo(label string, value string) {
	fmt.Fprintf(Output, "%s %s\n", Cyan(fmt.Sprintf("%-16s", label+":")), value)
}

// PrintHighlight prints a section marker
func PrintHighlight(msg string) {
	fmt.Fprintln(Output, Magenta(msg))
}

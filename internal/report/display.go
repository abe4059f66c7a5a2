package report

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
)

var (
	errorStyleBG = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	errorFG      = pterm.FgRed
	warnStyleBG  = pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	warnFG       = pterm.FgYellow
)

// Display renders a diagnostic produced by this package to stderr, with a
// colored banner and, for source-anchored errors, the offending line(s)
// with a caret underline -- following the banner-then-snippet layout the
// teacher's pterm-based logger uses.
func Display(err error) {
	switch e := err.(type) {
	case *ParseError:
		displayBanner("Syntax Error", true)
		fmt.Fprintln(os.Stderr, e.Msg)
		displaySource(e.File, e.Span)
	case *CodegenError:
		displayBanner("Error", true)
		fmt.Fprintln(os.Stderr, e.Msg)
		displaySource(e.File, e.Span)
	case *BackendError:
		displayBanner("Backend Error", true)
		fmt.Fprintln(os.Stderr, e.Msg)
	case *IOError:
		displayBanner("IO Error", true)
		fmt.Fprintln(os.Stderr, e.Error())
	default:
		displayBanner("Error", true)
		fmt.Fprintln(os.Stderr, err.Error())
	}
}

// DisplayWarning renders a warning with the warning color scheme.
func DisplayWarning(err error) {
	displayBanner("Warning", false)
	fmt.Fprintln(os.Stderr, err.Error())
}

func displayBanner(label string, isError bool) {
	fmt.Fprint(os.Stderr, "\n-- ")
	if isError {
		fmt.Fprint(os.Stderr, errorStyleBG.Sprint(label))
	} else {
		fmt.Fprint(os.Stderr, warnStyleBG.Sprint(label))
	}
	fmt.Fprint(os.Stderr, " ")
	fmt.Fprintln(os.Stderr, strings.Repeat("-", 40))
}

// displaySource prints the source line(s) covered by span with a caret
// underline beneath the erroneous text, mirroring displaySourceText in the
// teacher's src/logging/display.go.
func displaySource(path string, span Span) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for ln := 0; sc.Scan(); ln++ {
		if span.StartLine <= ln && ln <= span.EndLine {
			lines = append(lines, strings.ReplaceAll(sc.Text(), "\t", "    "))
		}
	}
	if len(lines) == 0 {
		return
	}

	maxLineNumLen := len(strconv.Itoa(span.EndLine + 1))
	lineNumFmt := "%-" + strconv.Itoa(maxLineNumLen) + "v | "

	for i, line := range lines {
		fmt.Fprintf(os.Stderr, lineNumFmt, i+span.StartLine+1)
		fmt.Fprintln(os.Stderr, line)

		fmt.Fprint(os.Stderr, strings.Repeat(" ", maxLineNumLen), " | ")

		var prefix int
		if i == 0 {
			prefix = span.StartCol
		}
		var suffix int
		if i == len(lines)-1 && span.EndCol <= len(line) {
			suffix = len(line) - span.EndCol
		}

		carets := len(line) - suffix - prefix
		if carets < 1 {
			carets = 1
		}

		fg := errorFG
		fmt.Fprint(os.Stderr, strings.Repeat(" ", prefix))
		fmt.Fprintln(os.Stderr, fg.Sprint(strings.Repeat("^", carets)))
	}
	fmt.Fprintln(os.Stderr)
}

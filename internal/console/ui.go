package console

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
	headingStyle = lipgloss.NewStyle().Bold(true)
)

func okLine(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, okStyle.Render("ok")+"    "+fmt.Sprintf(format, args...))
}

func failLine(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, failStyle.Render("fail")+"  "+fmt.Sprintf(format, args...))
}

func fixLine(w io.Writer, line int, previous, current string) {
	fmt.Fprintf(w, "%s   line %d\n", warnStyle.Render("fix"), line)
	fmt.Fprintln(w, faintStyle.Render("  - "+previous))
	fmt.Fprintln(w, "  + "+current)
}

func errorLine(w io.Writer, msg string) {
	fmt.Fprintln(w, failStyle.Render("error")+" "+msg)
}

func heading(w io.Writer, text string) {
	fmt.Fprintln(w, headingStyle.Render(text))
}

func faint(text string) string {
	return faintStyle.Render(text)
}

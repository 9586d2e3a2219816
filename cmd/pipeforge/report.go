package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/pipeforge/internal/assembler"
	"github.com/fyrsmithlabs/pipeforge/internal/validate"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("46")).
		Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

// renderGenerate prints the outcome of a generate pass.
func renderGenerate(w io.Writer, res *assembler.FileResult) {
	var action string
	switch {
	case res.Written:
		action = okStyle.Render("written")
	case res.Unchanged:
		action = dimStyle.Render("unchanged")
	default:
		action = warningStyle.Render("not written")
	}
	fmt.Fprintf(w, "%s %s %s\n", titleStyle.Render(res.Path), action, dimStyle.Render("("+string(res.Status)+")"))

	fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("custom jobs:"), countOrNone(len(res.CustomJobs)))
	if len(res.Gate.Prerequisites) > 0 {
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("gate needs:"), strings.Join(res.Gate.Prerequisites, ", "))
	}
	for _, warning := range res.Warnings {
		fmt.Fprintf(w, "  %s %s\n", warningStyle.Render("!"), warning)
	}
	renderIssues(w, res.Validation)
}

// renderValidation prints the findings for one file.
func renderValidation(w io.Writer, path string, res validate.Result) {
	status := okStyle.Render("valid")
	if !res.Valid {
		status = errorStyle.Render("invalid")
	}
	fmt.Fprintf(w, "%s %s\n", titleStyle.Render(path), status)
	renderIssues(w, res)
}

func renderIssues(w io.Writer, res validate.Result) {
	for _, issue := range res.Errors {
		fmt.Fprintf(w, "  %s %s\n", errorStyle.Render("✗"), formatIssue(issue))
	}
	for _, issue := range res.Warnings {
		fmt.Fprintf(w, "  %s %s\n", warningStyle.Render("⚠"), formatIssue(issue))
	}
}

func formatIssue(issue validate.Issue) string {
	s := issue.String()
	if issue.Location != "" {
		s += " " + dimStyle.Render("at "+issue.Location)
	}
	return s
}

func countOrNone(n int) string {
	if n == 0 {
		return dimStyle.Render("none")
	}
	return fmt.Sprint(n)
}

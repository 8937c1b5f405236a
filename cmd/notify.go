package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/neostalgic/obsidian-strapi-uploader/internal/config"
	"github.com/neostalgic/obsidian-strapi-uploader/internal/strapi"
	syncflow "github.com/neostalgic/obsidian-strapi-uploader/internal/sync"
)

var (
	styleSuccess = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	styleFailure = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	styleMuted   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func printSuccess(w io.Writer, msg string) {
	fmt.Fprintln(w, render(w, styleSuccess, "✓")+" "+msg)
}

// printFailure prints one line describing err, naming the failed publish
// stage when there is one.
func printFailure(w io.Writer, err error) {
	fmt.Fprintln(w, render(w, styleFailure, "✗")+" "+failureMessage(err))

	var apiErr *strapi.APIError
	if errors.As(err, &apiErr) && flagVerbose && apiErr.Body != "" {
		fmt.Fprintln(w, render(w, styleMuted, apiErr.Body))
	}
}

func failureMessage(err error) string {
	var stageErr *syncflow.StageError
	if errors.As(err, &stageErr) {
		return fmt.Sprintf("%s failed during %s: %v", stageErr.Path, stageLabel(stageErr.Stage), stageErr.Err)
	}
	if errors.Is(err, config.ErrMissingConfig) {
		return fmt.Sprintf("%v (run `osu init` or set STRAPI_HOST and STRAPI_API_TOKEN)", err)
	}
	return err.Error()
}

func stageLabel(stage syncflow.Stage) string {
	switch stage {
	case syncflow.StageRead:
		return "reading the note"
	case syncflow.StageUpload:
		return "asset upload"
	case syncflow.StageMap:
		return "content mapping"
	case syncflow.StageSubmit:
		return "entry creation"
	default:
		return string(stage)
	}
}

// render styles s only when w is a terminal.
func render(w io.Writer, style lipgloss.Style, s string) string {
	if !isTerminal(w) {
		return s
	}
	return style.Render(s)
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/neostalgic/obsidian-strapi-uploader/internal/config"
	"github.com/neostalgic/obsidian-strapi-uploader/internal/contenttype"
)

var gitignoreEntries = []string{".env", ".osu/"}

type initAnswers struct {
	Host        string
	Token       string
	ContentType string
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Set up the current vault for publishing",
		Long: `Init prepares the current directory (your vault) for osu.

It will:
  - Prompt for the Strapi host and API token and write them to .env
  - Choose the default content type for publish
  - Add .env and .osu/ to .gitignore`,
		Args: cobra.NoArgs,
		RunE: runInit,
	}
}

func runInit(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	envCreated, err := ensureDotEnv(cmd, flagEnvFile)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", flagEnvFile, err)
	}
	if envCreated {
		printSuccess(out, flagEnvFile+" created")
	} else {
		printSuccess(out, flagEnvFile+" already exists")
	}

	if err := ensureGitignore(".gitignore"); err != nil {
		return fmt.Errorf("failed to update .gitignore: %w", err)
	}
	printSuccess(out, ".gitignore updated")

	fmt.Fprintln(out, "\nvault initialized. Publish a note with: osu publish <note.md>")
	return nil
}

// ensureGitignore appends missing osu entries to the .gitignore at path,
// creating it if necessary.
func ensureGitignore(path string) error {
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	content := string(existing)
	var missing []string
	for _, entry := range gitignoreEntries {
		if !containsLine(content, entry) {
			missing = append(missing, entry)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if len(existing) > 0 && !strings.HasSuffix(content, "\n") {
		fmt.Fprintln(f)
	}
	if len(existing) == 0 {
		fmt.Fprintln(f, "# Obsidian Strapi uploader")
	}
	for _, e := range missing {
		fmt.Fprintln(f, e)
	}
	return nil
}

// ensureDotEnv creates the .env file from prompted answers; returns true if
// the file was created.
func ensureDotEnv(cmd *cobra.Command, path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	var (
		answers initAnswers
		err     error
	)
	if isTerminal(cmd.InOrStdin()) && isTerminal(cmd.OutOrStdout()) {
		answers, err = promptForm()
	} else {
		answers, err = promptLines(cmd.InOrStdin(), cmd.OutOrStdout())
	}
	if err != nil {
		return false, err
	}

	lines := []string{
		"# Strapi credentials for osu",
		fmt.Sprintf("STRAPI_HOST=%s", strings.TrimRight(answers.Host, "/")),
		fmt.Sprintf("STRAPI_API_TOKEN=%s", answers.Token),
	}
	if answers.ContentType != "" && answers.ContentType != config.DefaultContentType {
		lines = append(lines, fmt.Sprintf("OSU_CONTENT_TYPE=%s", answers.ContentType))
	}

	return true, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600)
}

func promptForm() (initAnswers, error) {
	answers := initAnswers{ContentType: config.DefaultContentType}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Strapi host").
				Placeholder("https://cms.example.com").
				Validate(validateHost).
				Value(&answers.Host),
			huh.NewInput().
				Title("Strapi API token").
				EchoMode(huh.EchoModePassword).
				Validate(requireValue("API token")).
				Value(&answers.Token),
			huh.NewSelect[string]().
				Title("Default content type").
				Options(huh.NewOptions(contenttype.Names()...)...).
				Value(&answers.ContentType),
		),
	)
	if err := form.Run(); err != nil {
		return initAnswers{}, err
	}
	return answers, nil
}

func promptLines(in io.Reader, out io.Writer) (initAnswers, error) {
	fmt.Fprintln(out, "\nNo .env file found. Please enter your Strapi credentials.")
	scanner := bufio.NewScanner(in)

	answers := initAnswers{
		Host:        promptField(scanner, out, "STRAPI_HOST (e.g. https://cms.example.com)"),
		Token:       promptField(scanner, out, "STRAPI_API_TOKEN"),
		ContentType: promptField(scanner, out, fmt.Sprintf("OSU_CONTENT_TYPE [%s]", config.DefaultContentType)),
	}
	if err := validateHost(answers.Host); err != nil {
		return initAnswers{}, err
	}
	if err := requireValue("API token")(answers.Token); err != nil {
		return initAnswers{}, err
	}
	if answers.ContentType != "" {
		if _, err := contenttype.Lookup(answers.ContentType); err != nil {
			return initAnswers{}, err
		}
	}
	return answers, nil
}

func promptField(scanner *bufio.Scanner, out io.Writer, label string) string {
	fmt.Fprintf(out, "  %s: ", label)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text())
	}
	return ""
}

func validateHost(v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return errors.New("host is required")
	}
	u, err := url.ParseRequestURI(v)
	if err != nil || u.Host == "" {
		return fmt.Errorf("host %q must be an absolute URL", v)
	}
	return nil
}

func requireValue(name string) func(string) error {
	return func(v string) error {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

// containsLine reports whether s contains the given line.
func containsLine(s, line string) bool {
	for _, l := range strings.Split(s, "\n") {
		if strings.TrimSpace(l) == line {
			return true
		}
	}
	return false
}

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/rohankatakam/changerisk/internal/config"
	"github.com/rohankatakam/changerisk/internal/output"
	"github.com/spf13/cobra"
)

var configureGlobal bool

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Interactive setup wizard (GitHub token goes to the OS keychain)",
	Long: `Walk through ChangeRisk configuration step-by-step.

This will configure:
1. History source (local git repository or GitHub)
2. GitHub token, stored in the OS keychain when available
3. Analysis window and output format
4. Where to save the configuration`,
	RunE: runConfigure,
}

func init() {
	configureCmd.Flags().BoolVar(&configureGlobal, "global", false, "save to ~/.changerisk/config.yaml instead of the project")
}

// prompter reads answers line by line
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *prompter) ask(question, current string) string {
	if current != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", question, current)
	} else {
		fmt.Fprintf(p.out, "%s: ", question)
	}
	line, _ := p.in.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	return line
}

func (p *prompter) confirm(question string, def bool) bool {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	answer := strings.ToLower(p.ask(question+" ("+hint+")", ""))
	if answer == "" {
		return def
	}
	return answer == "y" || answer == "yes"
}

func configPath() string {
	if configureGlobal {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, config.DirName, "config.yaml")
	}
	return filepath.Join(config.DirName, "config.yaml")
}

func runConfigure(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	p := &prompter{in: bufio.NewReader(os.Stdin), out: out}
	c := cfg

	fmt.Fprintln(out, "ChangeRisk Configuration Wizard")
	fmt.Fprintln(out, strings.Repeat("=", 32))
	fmt.Fprintln(out)

	// Step 1: source
	fmt.Fprintln(out, "Step 1/4: History Source")
	fmt.Fprintln(out, "  git    - a local clone (no credentials needed)")
	fmt.Fprintln(out, "  github - the GitHub API (token recommended)")
	switch strings.ToLower(p.ask("Source", c.Source.Type)) {
	case config.SourceGitHub:
		c.Source.Type = config.SourceGitHub
		repo := p.ask("Repository (owner/name)", strings.Trim(c.Source.Owner+"/"+c.Source.Repo, "/"))
		owner, name, ok := strings.Cut(repo, "/")
		if !ok || owner == "" || name == "" {
			return fmt.Errorf("repository must be owner/name, got %q", repo)
		}
		c.Source.Owner, c.Source.Repo = owner, name
	default:
		c.Source.Type = config.SourceGit
		c.Source.Path = p.ask("Repository path", c.Source.Path)
	}
	fmt.Fprintln(out)

	// Step 2: token
	fmt.Fprintln(out, "Step 2/4: GitHub Token")
	if c.Source.Type == config.SourceGitHub {
		if err := configureToken(p, out); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out, "  Not needed for a local git source")
	}
	fmt.Fprintln(out)

	// Step 3: window and output
	fmt.Fprintln(out, "Step 3/4: Window and Output")
	days, err := strconv.Atoi(p.ask("Days of history", strconv.Itoa(c.Window.Days)))
	if err != nil || days <= 0 {
		return fmt.Errorf("days must be a positive number")
	}
	c.Window.Days = days

	format, err := output.ParseFormat(p.ask("Table format (csv, json, yaml)", c.Output.Format))
	if err != nil {
		return err
	}
	c.Output.Format = string(format)
	c.Output.Compress = p.confirm("Compress tables with zstd?", c.Output.Compress)
	fmt.Fprintln(out)

	if err := c.Validate().Err(); err != nil {
		return err
	}

	// Step 4: save
	path := configPath()
	fmt.Fprintln(out, "Step 4/4: Save Configuration")
	fmt.Fprintf(out, "Save to: %s\n", path)
	if !p.confirm("Confirm?", true) {
		fmt.Fprintln(out, "Configuration not saved")
		return nil
	}
	if err := c.Save(path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	fmt.Fprintln(out, "Configuration saved")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next: changerisk analyze")
	return nil
}

func configureToken(p *prompter, out io.Writer) error {
	km := config.NewKeyringManager()
	if !km.IsAvailable() {
		fmt.Fprintln(out, "  OS keychain not available; set GITHUB_TOKEN in the environment or a .env file")
		return nil
	}

	if token, err := km.GetGitHubToken(); err == nil && token != "" {
		fmt.Fprintf(out, "  Current: %s (%s)\n", config.MaskToken(token), keychainLocation())
		if p.confirm("Keep existing token?", true) {
			return nil
		}
	}

	token, err := config.NewCredentialManager().PromptGitHubToken()
	if err != nil {
		return err
	}
	if token == "" {
		fmt.Fprintln(out, "  No token stored; public repositories work anonymously at a lower rate limit")
	}
	return nil
}

func keychainLocation() string {
	switch runtime.GOOS {
	case "darwin":
		return "macOS Keychain"
	case "windows":
		return "Windows Credential Manager"
	default:
		return "Secret Service"
	}
}

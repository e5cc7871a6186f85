package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rohankatakam/changerisk/internal/errors"
	"golang.org/x/term"
)

// TokenSource records where a credential came from
type TokenSource string

const (
	TokenFromConfig   TokenSource = "config" // config file or environment
	TokenFromKeychain TokenSource = "keychain"
	TokenFromPrompt   TokenSource = "prompt"
	TokenNone         TokenSource = "none"
)

// CredentialManager handles credential retrieval with priority chain
// Priority: Environment/Config → Keychain → Interactive Prompt
type CredentialManager struct {
	mode    DeploymentMode
	keyring *KeyringManager
	in      *os.File
	out     io.Writer
}

// NewCredentialManager creates a manager reading prompts from stdin
func NewCredentialManager() *CredentialManager {
	return &CredentialManager{
		mode:    DetectMode(),
		keyring: NewKeyringManager(),
		in:      os.Stdin,
		out:     os.Stderr,
	}
}

// GitHubToken resolves the GitHub token for cfg. An empty token with
// TokenNone is returned when nothing is configured and prompting is not
// possible; unauthenticated access still works for public repositories.
func (cm *CredentialManager) GitHubToken(cfg Config) (string, TokenSource, error) {
	if cfg.Source.Token != "" {
		return cfg.Source.Token, TokenFromConfig, nil
	}

	if cm.keyring.IsAvailable() {
		if token, err := cm.keyring.GetGitHubToken(); err == nil && token != "" {
			return token, TokenFromKeychain, nil
		}
	}

	if !cm.mode.AllowsInteractivePrompts() || !cm.isInteractive() {
		return "", TokenNone, nil
	}

	token, err := cm.PromptGitHubToken()
	if err != nil {
		return "", TokenNone, err
	}
	return token, TokenFromPrompt, nil
}

// PromptGitHubToken asks for a token and stores it in the keychain when
// one is available
func (cm *CredentialManager) PromptGitHubToken() (string, error) {
	fmt.Fprint(cm.out, "Enter GitHub token (leave empty for anonymous access): ")
	token, err := cm.readSecurely()
	if err != nil {
		return "", errors.ConfigError(fmt.Sprintf("read token: %v", err))
	}
	if token == "" {
		return "", nil
	}
	if strings.ContainsAny(token, " \t") {
		return "", errors.ValidationError("GitHub token must not contain whitespace")
	}

	if cm.keyring.IsAvailable() {
		if err := cm.keyring.SetGitHubToken(token); err == nil {
			fmt.Fprintln(cm.out, "Saved to keychain")
		}
	}
	return token, nil
}

// readSecurely reads a token from the terminal without echoing; piped input
// is read as a line
func (cm *CredentialManager) readSecurely() (string, error) {
	if cm.isInteractive() {
		bytes, err := term.ReadPassword(int(cm.in.Fd()))
		fmt.Fprintln(cm.out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(bytes)), nil
	}

	line, err := bufio.NewReader(cm.in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (cm *CredentialManager) isInteractive() bool {
	return term.IsTerminal(int(cm.in.Fd()))
}

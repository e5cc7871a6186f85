package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyringManager_GitHubToken(t *testing.T) {
	keyring.MockInit()
	km := NewKeyringManager()
	require.True(t, km.IsAvailable())

	token, err := km.GetGitHubToken()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, km.SetGitHubToken("ghp_1234567890abcdef"))
	token, err = km.GetGitHubToken()
	require.NoError(t, err)
	assert.Equal(t, "ghp_1234567890abcdef", token)

	require.NoError(t, km.DeleteGitHubToken())
	token, err = km.GetGitHubToken()
	require.NoError(t, err)
	assert.Empty(t, token)

	// deleting twice is fine
	assert.NoError(t, km.DeleteGitHubToken())
	assert.Error(t, km.SetGitHubToken(""))
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "(not set)", MaskToken(""))
	assert.Equal(t, "***", MaskToken("short"))
	assert.Equal(t, "ghp_...cdef", MaskToken("ghp_1234567890abcdef"))
}

func newTestCredentialManager(t *testing.T, mode DeploymentMode) *CredentialManager {
	t.Helper()
	in, err := os.CreateTemp(t.TempDir(), "stdin")
	require.NoError(t, err)
	t.Cleanup(func() { in.Close() })

	out, err := os.CreateTemp(t.TempDir(), "stdout")
	require.NoError(t, err)
	t.Cleanup(func() { out.Close() })

	return &CredentialManager{mode: mode, keyring: NewKeyringManager(), in: in, out: out}
}

func TestCredentialManager_GitHubToken(t *testing.T) {
	keyring.MockInit()
	cm := newTestCredentialManager(t, ModeInteractive)

	cfg := Default()
	cfg.Source.Token = "ghp_from_config"
	token, source, err := cm.GitHubToken(cfg)
	require.NoError(t, err)
	assert.Equal(t, "ghp_from_config", token)
	assert.Equal(t, TokenFromConfig, source)

	// nothing configured and stdin is not a terminal
	cfg.Source.Token = ""
	token, source, err = cm.GitHubToken(cfg)
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Equal(t, TokenNone, source)

	require.NoError(t, NewKeyringManager().SetGitHubToken("ghp_from_keychain"))
	token, source, err = cm.GitHubToken(cfg)
	require.NoError(t, err)
	assert.Equal(t, "ghp_from_keychain", token)
	assert.Equal(t, TokenFromKeychain, source)
}

func TestCredentialManager_PromptFromPipe(t *testing.T) {
	keyring.MockInit()
	cm := newTestCredentialManager(t, ModeInteractive)

	_, err := cm.in.WriteString("ghp_piped_token\n")
	require.NoError(t, err)
	_, err = cm.in.Seek(0, 0)
	require.NoError(t, err)

	token, err := cm.PromptGitHubToken()
	require.NoError(t, err)
	assert.Equal(t, "ghp_piped_token", token)

	stored, err := NewKeyringManager().GetGitHubToken()
	require.NoError(t, err)
	assert.Equal(t, "ghp_piped_token", stored)
}

package config

import (
	"os"
	"strings"
)

// DeploymentMode represents the execution context
type DeploymentMode string

const (
	// ModeInteractive is a developer at a terminal; prompts are allowed
	ModeInteractive DeploymentMode = "interactive"

	// ModeCI is a pipeline run; credentials come from the environment only
	// and validation fails fast
	ModeCI DeploymentMode = "ci"
)

// ciEnvVars are set by common CI systems
var ciEnvVars = []string{
	"CI",
	"CONTINUOUS_INTEGRATION",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"CIRCLECI",
	"TRAVIS",
	"JENKINS_URL",
	"BUILDKITE",
	"DRONE",
	"TF_BUILD", // Azure Pipelines
}

// DetectMode determines the execution context based on environment
func DetectMode() DeploymentMode {
	switch strings.ToLower(os.Getenv("CHANGERISK_MODE")) {
	case "ci", "cicd":
		return ModeCI
	case "interactive", "local":
		return ModeInteractive
	}

	for _, envVar := range ciEnvVars {
		if os.Getenv(envVar) != "" {
			return ModeCI
		}
	}
	return ModeInteractive
}

func (m DeploymentMode) String() string {
	return string(m)
}

// AllowsInteractivePrompts returns true if interactive prompts are allowed
func (m DeploymentMode) AllowsInteractivePrompts() bool {
	return m == ModeInteractive
}

// ConfigSource returns where credentials should come from
func (m DeploymentMode) ConfigSource() string {
	if m == ModeCI {
		return "environment variables only"
	}
	return "environment variables, keychain, or interactive prompt"
}

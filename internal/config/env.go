package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// envFiles are loaded in order; godotenv never overrides a variable that is
// already set, so earlier files and the real environment win.
var envFiles = []string{".env.local", ".env"}

// loadEnvFiles loads .env files from the working directory, the nearest
// parent that has one, and ~/.changerisk/.env
func loadEnvFiles() {
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}

	if path, ok := findEnvFile(); ok {
		godotenv.Load(path)
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		homeEnvFile := filepath.Join(homeDir, DirName, ".env")
		if _, err := os.Stat(homeEnvFile); err == nil {
			godotenv.Load(homeEnvFile)
		}
	}
}

// findEnvFile searches parent directories (max 5 levels) for .env
func findEnvFile() (string, bool) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false
	}

	searchPath := filepath.Dir(cwd)
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(searchPath, ".env")
		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		parent := filepath.Dir(searchPath)
		if parent == searchPath {
			break
		}
		searchPath = parent
	}
	return "", false
}

// applyEnvOverrides applies the conventional variable names that do not
// follow the CHANGERISK_ prefix scheme
func applyEnvOverrides(cfg Config) Config {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		cfg.Source.Token = token
	}
	if rate := os.Getenv("GITHUB_RATE_LIMIT"); rate != "" {
		if v, err := strconv.ParseFloat(rate, 64); err == nil {
			cfg.Source.RequestsPerSecond = v
		}
	}
	if dir := os.Getenv("CHANGERISK_CACHE_DIR"); dir != "" {
		cfg.Cache.Directory = dir
	}
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		cfg.Storage.Driver = "postgres"
		cfg.Storage.DSN = dsn
	}

	cfg.Source.Path = expandPath(cfg.Source.Path)
	cfg.Cache.Directory = expandPath(cfg.Cache.Directory)
	cfg.Output.Directory = expandPath(cfg.Output.Directory)
	cfg.Logging.Directory = expandPath(cfg.Logging.Directory)
	if cfg.Storage.Driver == "sqlite" {
		cfg.Storage.DSN = expandPath(cfg.Storage.DSN)
	}
	return cfg
}

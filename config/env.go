package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"regexp"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

const (
	// LocalFile is searched in the working directory.
	LocalFile = "tokenwatch.yaml"

	// xdgFile is searched under the XDG config directories.
	xdgFile = "tokenwatch/config.yaml"

	// EnvFile is read from the repository directory.
	EnvFile = ".env"
)

// Locate returns the configuration file to read.
//
// A non-empty path must exist. Otherwise ./tokenwatch.yaml is tried, then
// $XDG_CONFIG_HOME/tokenwatch/config.yaml and the XDG system directories.
// Returns "" with a nil error when no file exists.
func Locate(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return path, nil
	}

	if _, err := os.Stat(LocalFile); err == nil {
		return LocalFile, nil
	}

	if found, err := xdg.SearchConfigFile(xdgFile); err == nil {
		return found, nil
	}
	return "", nil
}

// Environment returns the variables of dir/.env overlaid with processEnv.
//
// A missing .env file is not an error. The process environment is only
// read from processEnv, never modified.
func Environment(dir string, processEnv map[string]string) (map[string]string, error) {
	env := make(map[string]string, len(processEnv))

	fileEnv, err := godotenv.Read(filepath.Join(dir, EnvFile))
	switch {
	case err == nil:
		maps.Copy(env, fileEnv)
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read %s: %w", EnvFile, err)
	}

	maps.Copy(env, processEnv)
	return env, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with values
// from env.
func expandEnvVars(s string, env map[string]string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := env[varName]
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("%w: %q", ErrUnsetVariable, varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

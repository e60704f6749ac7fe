package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// DotDir returns ~/.termhost, where config.yaml lives.
func DotDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return "", errors.New("cannot determine user home directory")
	}
	return filepath.Join(home, ".termhost"), nil
}

// Path returns the config file location (~/.termhost/config.yaml).
func Path() (string, error) {
	dir, err := DotDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

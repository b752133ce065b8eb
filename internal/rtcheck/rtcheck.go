// Package rtcheck answers one question for the sensor session: is the
// pose runtime installed? Installation itself is handled elsewhere; the
// session only uses this as a precondition before opening a device that
// needs the runtime.
package rtcheck

import (
	"os"
	"path/filepath"
)

// EnvService overrides the pose service script location when set.
const EnvService = "ANGIKA_POSE_SERVICE"

// EnvInterpreter overrides the interpreter used to run the service.
const EnvInterpreter = "ANGIKA_POSE_PYTHON"

// Present reports whether the pose runtime is installed.
func Present() bool {
	return ServicePath() != ""
}

// ServicePath returns the absolute path of the pose service script, or ""
// when it cannot be found.
func ServicePath() string {
	if p := os.Getenv(EnvService); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
		return ""
	}

	execDir := ""
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/pose_service.py",
		"../scripts/pose_service.py",
		filepath.Join(execDir, "scripts/pose_service.py"),
		filepath.Join(os.Getenv("HOME"), ".angika/scripts/pose_service.py"),
	}
	return firstExisting(candidates)
}

// InterpreterPath returns the Python interpreter to run the service with,
// preferring a project virtual environment. Returns "" when none is found;
// callers fall back to the system interpreter.
func InterpreterPath() string {
	if p := os.Getenv(EnvInterpreter); p != "" {
		return p
	}

	execDir := ""
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".angika/venv/bin/python"),
	}
	return firstExisting(candidates)
}

func firstExisting(candidates []string) string {
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}

package rtcheck

import (
	"os"
	"path/filepath"
	"testing"
)

func TestServicePathEnvOverride(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "pose_service.py")
	if err := os.WriteFile(script, []byte("# stub"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv(EnvService, script)
	if got := ServicePath(); got != script {
		t.Errorf("ServicePath() = %q, want %q", got, script)
	}
	if !Present() {
		t.Error("Present() = false with valid override")
	}
}

func TestServicePathEnvOverrideMissingFile(t *testing.T) {
	t.Setenv(EnvService, filepath.Join(t.TempDir(), "nope.py"))
	if got := ServicePath(); got != "" {
		t.Errorf("ServicePath() = %q, want empty for missing override", got)
	}
	if Present() {
		t.Error("Present() = true with broken override")
	}
}

func TestInterpreterPathEnvOverride(t *testing.T) {
	t.Setenv(EnvInterpreter, "/opt/tools/python3")
	if got := InterpreterPath(); got != "/opt/tools/python3" {
		t.Errorf("InterpreterPath() = %q", got)
	}
}

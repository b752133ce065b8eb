package plugin

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func scriptPlugin(t *testing.T, name, script string) *Plugin {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script plugins need a POSIX shell")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, name+".sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return &Plugin{
		Manifest:   Manifest{Name: name, Executable: name + ".sh"},
		Path:       dir,
		Executable: path,
	}
}

func TestExecutorExecute(t *testing.T) {
	p := scriptPlugin(t, "ok", `echo '{"success":true,"data":{"note":"done"}}'`)

	resp, err := NewExecutor(0).Execute(p, &Request{
		Action:  "toggle",
		Channel: "left-pause",
		EventID: "evt-1",
		FiredAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !resp.Success {
		t.Error("success = false")
	}

	var data map[string]string
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data["note"] != "done" {
		t.Errorf("data = %v", data)
	}
}

func TestExecutorPassesRequestOnStdin(t *testing.T) {
	p := scriptPlugin(t, "echo", `IN=$(cat)
echo "{\"success\":true,\"data\":$IN}"`)

	resp, err := NewExecutor(0).Execute(p, &Request{
		Action:  "next",
		Channel: "right-point",
		EventID: "evt-2",
		Config:  json.RawMessage(`{"player":"default"}`),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var echoed Request
	if err := json.Unmarshal(resp.Data, &echoed); err != nil {
		t.Fatalf("unmarshal echoed request: %v", err)
	}
	if echoed.Action != "next" || echoed.Channel != "right-point" || echoed.EventID != "evt-2" {
		t.Errorf("echoed request = %+v", echoed)
	}
	if string(echoed.Config) != `{"player":"default"}` {
		t.Errorf("echoed config = %s", echoed.Config)
	}
}

func TestExecutorTimeout(t *testing.T) {
	p := scriptPlugin(t, "slow", `sleep 5
echo '{"success":true}'`)

	start := time.Now()
	_, err := NewExecutor(100 * time.Millisecond).Execute(p, &Request{Action: "slow"})
	if err == nil {
		t.Fatal("no error from a plugin that outlives its timeout")
	}
	if time.Since(start) > 2*time.Second {
		t.Error("timeout did not kill the plugin promptly")
	}
}

func TestExecutorErrorResponse(t *testing.T) {
	p := scriptPlugin(t, "sad", `echo '{"success":false,"error":"no player running"}'`)

	resp, err := NewExecutor(0).Execute(p, &Request{Action: "toggle"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.Success {
		t.Error("success = true for an error response")
	}
	if resp.Error != "no player running" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestExecutorMalformedOutput(t *testing.T) {
	p := scriptPlugin(t, "garbage", `echo 'not json'`)

	if _, err := NewExecutor(0).Execute(p, &Request{Action: "x"}); err == nil {
		t.Fatal("no error for malformed plugin output")
	}
}

func TestExecutorNonZeroExit(t *testing.T) {
	p := scriptPlugin(t, "crash", `echo "boom" >&2
exit 3`)

	_, err := NewExecutor(0).Execute(p, &Request{Action: "x"})
	if err == nil {
		t.Fatal("no error for a crashing plugin")
	}
}

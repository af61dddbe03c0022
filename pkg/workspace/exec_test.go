package workspace

import (
	"context"
	"strings"
	"testing"
)

func TestRunCommandSuccess(t *testing.T) {
	res, err := RunCommand(context.Background(), "echo hi", CommandOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(res.Stdout) != "hi" {
		t.Fatalf("stdout = %q", res.Stdout)
	}
	if res.ExitCode != 0 {
		t.Fatalf("exit code = %d", res.ExitCode)
	}
}

func TestRunCommandNonZeroExit(t *testing.T) {
	res, err := RunCommand(context.Background(), "exit 3", CommandOptions{})
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	cmdErr, ok := err.(*CommandError)
	if !ok {
		t.Fatalf("expected *CommandError, got %T", err)
	}
	if cmdErr.Result.ExitCode != 3 {
		t.Fatalf("exit code = %d, want 3", cmdErr.Result.ExitCode)
	}
	if res.ExitCode != 3 {
		t.Fatalf("returned result exit code = %d, want 3", res.ExitCode)
	}
}

func TestRunCommandTimeout(t *testing.T) {
	res, err := RunCommand(context.Background(), "sleep 5", CommandOptions{TimeoutMs: 50})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	cmdErr, ok := err.(*CommandError)
	if !ok {
		t.Fatalf("expected *CommandError, got %T", err)
	}
	if !cmdErr.Result.TimedOut {
		t.Fatal("expected TimedOut=true")
	}
	if res.ExitCode == 0 {
		t.Fatal("expected non-zero exit code on timeout")
	}
}

func TestRunCommandCapturesEnvAndDir(t *testing.T) {
	dir := t.TempDir()
	res, err := RunCommand(context.Background(), "pwd && echo $FOO", CommandOptions{
		Dir: dir,
		Env: []string{"FOO=bar"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(res.Stdout), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", res.Stdout)
	}
	if lines[1] != "bar" {
		t.Fatalf("env not propagated: %q", res.Stdout)
	}
}

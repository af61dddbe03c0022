package obslog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLogWritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.jsonl")
	l := New(Config{Path: path})

	l.Infof("store", "created %s", "run_1")
	l.Errorf("store", "failed: %v", "boom")

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []Entry
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("bad json line: %v", err)
		}
		lines = append(lines, e)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Level != LevelInfo || lines[0].Message != "created run_1" {
		t.Fatalf("unexpected first line: %+v", lines[0])
	}
	if lines[1].Level != LevelError {
		t.Fatalf("unexpected second line: %+v", lines[1])
	}
}

func TestLogNilLoggerIsNoop(t *testing.T) {
	var l *Logger
	l.Infof("x", "should not panic")
}

func TestOnEntryHookFires(t *testing.T) {
	var got []Entry
	l := New(Config{OnEntry: func(e Entry) { got = append(got, e) }})
	l.Debugf("session", "iter %d", 1)
	if len(got) != 1 || got[0].Message != "iter 1" {
		t.Fatalf("unexpected entries: %+v", got)
	}
}

func TestRedactShortStringUnchanged(t *testing.T) {
	if got := Redact("short"); got != "short" {
		t.Fatalf("got %q", got)
	}
}

func TestRedactLongStringTruncated(t *testing.T) {
	long := "0123456789abcdefghijklmnopqrstuvwxyz"
	got := Redact(long)
	if got == long {
		t.Fatal("expected redaction to change the string")
	}
	if got[:20] != long[:20] {
		t.Fatalf("expected first 20 chars preserved, got %q", got)
	}
}

func TestRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.jsonl")
	l := New(Config{Path: path, MaxBytes: 1, MaxBackups: 2})

	l.Infof("x", "first")
	l.Infof("x", "second")

	if _, err := os.Stat(path + ".1"); err != nil {
		t.Fatalf("expected rotated backup, got err: %v", err)
	}
}

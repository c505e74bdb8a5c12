package logger

import (
	"bytes"
	"strings"
	"testing"
)

func newTestLogger(buf *bytes.Buffer, level LogLevel) *Logger {
	return New(Config{Level: level, Output: buf})
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, WARN)

	l.Debugf("debug %d", 1)
	l.Infof("info %d", 2)
	l.Warnf("warn %d", 3)
	l.Errorf("error %d", 4)

	out := buf.String()
	for _, absent := range []string{"debug 1", "info 2"} {
		if strings.Contains(out, absent) {
			t.Errorf("output should not contain %q:\n%s", absent, out)
		}
	}
	for _, present := range []string{"[WARN] warn 3", "[ERROR] error 4"} {
		if !strings.Contains(out, present) {
			t.Errorf("output should contain %q:\n%s", present, out)
		}
	}
}

func TestWithPrefix(t *testing.T) {
	var buf bytes.Buffer
	root := New(Config{Level: DEBUG, Output: &buf, Prefix: "[bandprint]"})
	child := root.With("matcher")

	child.Infof("hello")
	if got := buf.String(); !strings.Contains(got, "[bandprint] [matcher] hello") {
		t.Errorf("unexpected line %q", got)
	}

	// children have independent levels
	child.SetLevel(ERROR)
	buf.Reset()
	child.Infof("quiet")
	root.Infof("loud")
	if got := buf.String(); strings.Contains(got, "quiet") || !strings.Contains(got, "loud") {
		t.Errorf("unexpected output %q", got)
	}
}

func TestFatalExits(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, INFO)
	code := -1
	l.exit = func(c int) { code = c }

	l.Fatalf("bye")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(buf.String(), "[FATAL] bye") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   LogLevel
		wantOK bool
	}{
		{"debug", DEBUG, true},
		{" INFO ", INFO, true},
		{"warning", WARN, true},
		{"Error", ERROR, true},
		{"fatal", FATAL, true},
		{"", INFO, false},
		{"loud", INFO, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Errorf("nothing to see")
	if l.Level() <= FATAL {
		t.Errorf("Discard level = %v, want above FATAL", l.Level())
	}
}

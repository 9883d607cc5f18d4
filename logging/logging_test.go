package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New()
	log.SetOutput(&buf)
	log.SetLevel(LevelWarn)

	log.Debug("hidden")
	log.Info("hidden too")
	log.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("expected debug/info suppressed, got %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("expected warn logged, got %q", out)
	}
}

func TestComponentAndTrace(t *testing.T) {
	var buf bytes.Buffer
	log := New()
	log.SetOutput(&buf)

	log.WithComponent("consumer").WithTraceID("cycle-7").Info("task_started",
		map[string]interface{}{"task": "0x1"})

	out := buf.String()
	if !strings.Contains(out, "[consumer]") {
		t.Errorf("expected component tag, got %q", out)
	}
	if !strings.Contains(out, "trace=cycle-7") {
		t.Errorf("expected trace field, got %q", out)
	}
	if !strings.Contains(out, "task=0x1") {
		t.Errorf("expected task field, got %q", out)
	}
}

func TestEventHelpers(t *testing.T) {
	var buf bytes.Buffer
	log := New()
	log.SetOutput(&buf)

	log.TaskFailed("0x2", "Security Error: protocol not allowed")
	log.PollError(errors.New("connection refused"))

	out := buf.String()
	if !strings.Contains(out, "task_failed") || !strings.Contains(out, "0x2") {
		t.Errorf("expected task_failed event, got %q", out)
	}
	if !strings.Contains(out, "poll_error") || !strings.Contains(out, "connection refused") {
		t.Errorf("expected poll_error event, got %q", out)
	}
}

func TestSecurityBlockFlagged(t *testing.T) {
	var buf bytes.Buffer
	log := New()
	log.SetOutput(&buf)

	log.SecurityBlock("http://127.0.0.1/", "loopback")

	if !strings.Contains(buf.String(), "security=true") {
		t.Errorf("expected security flag, got %q", buf.String())
	}
}

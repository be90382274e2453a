package varobjcli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunTranscript(t *testing.T) {
	var out bytes.Buffer
	code := Run(filepath.Join("testdata", "demo.yaml"), &out)
	if code != 0 {
		t.Fatalf("Run exited %d; output:\n%s", code, out.String())
	}
	text := out.String()

	for _, want := range []string{
		"initial stop",
		"step 1",
		"step 4",
		"var1 changed = 6",
		"went out of scope",
		"dynamic type changed to Derived *",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("transcript missing %q:\n%s", want, text)
		}
	}

	// A non-terminal writer must get plain text, no escape sequences.
	if strings.Contains(text, "\033[") {
		t.Error("transcript contains escape sequences for a non-TTY writer")
	}
}

func TestRunMissingScenario(t *testing.T) {
	var out bytes.Buffer
	if code := Run(filepath.Join("testdata", "absent.yaml"), &out); code == 0 {
		t.Fatal("missing scenario should exit non-zero")
	}
	if !strings.Contains(out.String(), "error") {
		t.Errorf("no error reported: %s", out.String())
	}
}

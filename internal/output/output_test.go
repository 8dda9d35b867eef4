package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/gridline-app/gridline/internal/service"
	"github.com/gridline-app/gridline/internal/store"
)

func TestWriteJSONSuccess(t *testing.T) {
	var buf bytes.Buffer
	writeJSONSuccess(&buf, map[string]string{"key": "val"}, "it worked")

	var env successEnvelope
	if err := json.Unmarshal(buf.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !env.OK {
		t.Error("ok = false, want true")
	}
	if env.Message != "it worked" {
		t.Errorf("message = %q, want %q", env.Message, "it worked")
	}
	data, ok := env.Data.(map[string]any)
	if !ok {
		t.Fatalf("data type = %T, want map", env.Data)
	}
	if data["key"] != "val" {
		t.Errorf("data.key = %v, want %q", data["key"], "val")
	}
}

func TestWriteJSONError(t *testing.T) {
	var buf bytes.Buffer
	writeJSONError(&buf, errors.New("something broke"), ErrNotFound)

	var env errorEnvelope
	if err := json.Unmarshal(buf.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.OK {
		t.Error("ok = true, want false")
	}
	if env.Error != "something broke" {
		t.Errorf("error = %q, want %q", env.Error, "something broke")
	}
	if env.Code != ErrNotFound {
		t.Errorf("code = %q, want %q", env.Code, ErrNotFound)
	}
}

func TestCodeForError(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorCode
	}{
		{service.ErrNotFound, ErrNotFound},
		{fmt.Errorf("comment x: %w", store.ErrUnknownRecord), ErrNotFound},
		{store.ErrNotLoaded, ErrNotFound},
		{store.ErrDuplicateRelation, ErrConflict},
		{store.ErrSelfRelation, ErrConflict},
		{errors.New("boom"), ErrGeneral},
	}
	for _, tt := range tests {
		if got := CodeForError(tt.err); got != tt.want {
			t.Errorf("CodeForError(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrNotFound, ExitNotFound},
		{ErrValidation, ExitValidation},
		{ErrConflict, ExitConflict},
		{ErrGeneral, ExitGeneral},
		{ErrorCode("UNKNOWN"), ExitGeneral},
	}
	for _, tt := range tests {
		if got := ExitCodeForError(tt.code); got != tt.want {
			t.Errorf("ExitCodeForError(%q) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestWriterErrorReturnsExitCode(t *testing.T) {
	var stdout, stderr bytes.Buffer
	w := &Writer{JSONMode: true, Stdout: &stdout, Stderr: &stderr}

	code := w.Error(errors.New("nope"), ErrValidation)
	if code != ExitValidation {
		t.Errorf("exit code = %d, want %d", code, ExitValidation)
	}
	if stdout.Len() == 0 {
		t.Error("JSON mode wrote nothing to stdout")
	}
	if stderr.Len() != 0 {
		t.Error("JSON mode wrote to stderr")
	}
}

func TestSuccessHumanPassesMultilineThrough(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var stdout bytes.Buffer
	w := &Writer{Stdout: &stdout}

	table := "ID  TITLE\n1   first\n2   second"
	w.Success(nil, table)
	if got := stdout.String(); got != table+"\n" {
		t.Errorf("multi-line output = %q, want pre-formatted content unchanged", got)
	}

	stdout.Reset()
	w.Success(nil, "")
	if stdout.Len() != 0 {
		t.Error("empty message wrote output")
	}
}

func TestDiagnosticChannels(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var stderr bytes.Buffer

	quiet := &Writer{QuietMode: true, Stderr: &stderr}
	quiet.Info("hint")
	if stderr.Len() != 0 {
		t.Error("quiet mode emitted Info")
	}
	quiet.Warn("autosave failed")
	if got := stderr.String(); got != "Warning: autosave failed\n" {
		t.Errorf("quiet Warn = %q, want the warning emitted", got)
	}

	stderr.Reset()
	jsonW := &Writer{JSONMode: true, Stderr: &stderr}
	jsonW.Info("hint")
	jsonW.Warn("autosave failed")
	if stderr.Len() != 0 {
		t.Error("JSON mode wrote diagnostics to stderr")
	}
}

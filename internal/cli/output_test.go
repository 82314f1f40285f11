package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestOutputTable(t *testing.T) {
	var buf, errBuf bytes.Buffer
	out := newOutput(false, &buf, &errBuf)

	out.Print([]string{"ID", "STATUS"}, [][]string{{"wf-1", "ACTIVE"}}, nil)

	got := buf.String()
	if !strings.Contains(got, "ID") || !strings.Contains(got, "wf-1") {
		t.Errorf("table output missing data:\n%s", got)
	}
	if errBuf.Len() != 0 {
		t.Errorf("table output leaked to stderr: %q", errBuf.String())
	}
}

func TestOutputJSONMode(t *testing.T) {
	var buf bytes.Buffer
	out := newOutput(true, &buf, &bytes.Buffer{})

	out.Print([]string{"ID"}, nil, map[string]string{"id": "wf-1"})

	var decoded map[string]string
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded["id"] != "wf-1" {
		t.Errorf("decoded = %v", decoded)
	}
}

func TestOutputDetail(t *testing.T) {
	var buf bytes.Buffer
	out := newOutput(false, &buf, &bytes.Buffer{})

	out.Detail([][2]string{
		{"ID", "exec-1"},
		{"Status", "COMPLETED"},
		{"Error", ""}, // пустые значения не выводятся
	}, nil)

	got := buf.String()
	if !strings.Contains(got, "exec-1") || !strings.Contains(got, "COMPLETED") {
		t.Errorf("detail output missing data:\n%s", got)
	}
	if strings.Contains(got, "Error") {
		t.Errorf("empty pair must be skipped:\n%s", got)
	}
}

func TestOutputMessagesGoToStderr(t *testing.T) {
	var buf, errBuf bytes.Buffer
	out := newOutput(false, &buf, &errBuf)

	out.Success("done")
	out.Error("boom")

	if buf.Len() != 0 {
		t.Errorf("messages leaked to stdout: %q", buf.String())
	}
	if !strings.Contains(errBuf.String(), "done") || !strings.Contains(errBuf.String(), "Error: boom") {
		t.Errorf("stderr output = %q", errBuf.String())
	}
}

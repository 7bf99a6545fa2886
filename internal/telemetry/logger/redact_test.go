package logger

import (
	"bytes"
	"strings"
	"testing"
)

type docID string

func (d docID) String() string { return string(d) }

const testDocID = "abcdefghijklmnopqrstuvwxyz012345"

func TestRedact_DocumentIDs(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Format: "json", Output: &buf})

	l.Info("saved",
		"doc", docID(testDocID),
		"read_only", testDocID,
		"path", "/data/ab/cd/efghijklmnopqrstuvwxyz012345/latest.json",
		"version", 3)

	out := buf.String()
	if strings.Contains(out, testDocID) || strings.Contains(out, "efghijklmnopqrstuvwxyz012345") {
		t.Fatalf("document id leaked: %s", out)
	}

	entry := decodeLine(t, &buf)
	if entry["doc"] != MaskDocumentID(testDocID) || entry["read_only"] != MaskDocumentID(testDocID) {
		t.Errorf("doc = %v, read_only = %v", entry["doc"], entry["read_only"])
	}
	if want := "/data/" + MaskDocumentID(testDocID) + "/latest.json"; entry["path"] != want {
		t.Errorf("path = %v, want %s", entry["path"], want)
	}
	if entry["version"] != float64(3) {
		t.Errorf("version = %v, want 3", entry["version"])
	}
}

func TestRedact_SensitiveKeys(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Format: "json", Output: &buf})

	l.Info("config", "metrics_token", "hunter2", "addr", "127.0.0.1:5080")

	entry := decodeLine(t, &buf)
	if entry["metrics_token"] != redactedValue {
		t.Errorf("metrics_token = %v", entry["metrics_token"])
	}
	if entry["addr"] != "127.0.0.1:5080" {
		t.Errorf("addr = %v", entry["addr"])
	}
}

func TestRedact_Groups(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Format: "json", Output: &buf})

	l.WithGroup("req").Info("x", "id", testDocID)

	if strings.Contains(buf.String(), testDocID) {
		t.Errorf("grouped id leaked: %s", buf.String())
	}
}

func TestRedactString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{testDocID, MaskDocumentID(testDocID)},
		{"/api", "/api"},
		{"/data/ab/cd/efghijklmnopqrstuvwxyz012345/status.json", "/data/" + MaskDocumentID(testDocID) + "/status.json"},
		{"/data/ab/cd/short/status.json", "/data/ab/cd/short/status.json"},
	}

	for _, tt := range tests {
		if got := RedactString(tt.in); got != tt.want {
			t.Errorf("RedactString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMaskDocumentID_Stable(t *testing.T) {
	a := MaskDocumentID(testDocID)
	if a != MaskDocumentID(testDocID) {
		t.Error("mask is not stable")
	}
	if a == MaskDocumentID(strings.Repeat("0", 32)) {
		t.Error("distinct ids share a mask")
	}
	if !strings.HasPrefix(a, "doc#") || len(a) != len("doc#")+12 {
		t.Errorf("mask = %q", a)
	}
}

func TestIsSensitiveKey(t *testing.T) {
	for key, want := range map[string]bool{
		"metrics_token": true,
		"Authorization": true,
		"password":      true,
		"doc":           false,
		"version":       false,
	} {
		if got := IsSensitiveKey(key); got != want {
			t.Errorf("IsSensitiveKey(%q) = %v, want %v", key, got, want)
		}
	}
}

package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mizushima/kiroku/internal/offline"
)

func sampleStatus() *offline.IndexStatus {
	return &offline.IndexStatus{
		Dir: "/data/index",
		Artifacts: []offline.ArtifactInfo{
			{Name: "index.json", Present: true, SizeBytes: 42, Modified: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
			{Name: "embeddings.json", Present: false},
			{Name: "clusters.json", Present: true, SizeBytes: 8, Modified: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		},
		TotalSizeBytes: 50,
	}
}

func TestWriteIndexStatus_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteIndexStatus(&buf, sampleStatus(), OutputText); err != nil {
		t.Fatalf("WriteIndexStatus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"/data/index", "index.json", "missing", "incomplete"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteIndexStatus_json(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteIndexStatus(&buf, sampleStatus(), OutputJSON); err != nil {
		t.Fatalf("WriteIndexStatus: %v", err)
	}
	var decoded offline.IndexStatus
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Dir != "/data/index" || len(decoded.Artifacts) != 3 {
		t.Errorf("decoded: %+v", decoded)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Errorf("got %q", got)
	}
	if got := Truncate("hello world", 5); got != "hello..." {
		t.Errorf("got %q", got)
	}
	if got := Truncate("hello", 0); got != "hello" {
		t.Errorf("got %q", got)
	}
}

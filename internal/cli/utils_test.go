package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/models"
)

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v; want %q, err=%v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestWriteAnswer_text(t *testing.T) {
	answer := &models.Answer{
		Query: "Who is Alice?",
		Text:  "Alice is a software engineer.",
		Sources: []models.SourceRef{
			{Source: "alice.md", Score: 0.81234},
			{Source: "bob.md", Score: 0.4},
		},
	}
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, answer, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Response:\nAlice is a software engineer.", "alice.md (0.8123)", "bob.md (0.4000)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "alice.md") > strings.Index(out, "bob.md") {
		t.Error("sources should keep their order")
	}
}

func TestWriteAnswer_noContext(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, &models.Answer{NoContext: true, Text: "No relevant context found."}, OutputText); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != NoMatchText+"\n" {
		t.Errorf("output = %q", got)
	}
}

func TestWriteAnswer_JSON(t *testing.T) {
	answer := &models.Answer{Query: "q", Text: "a", Sources: []models.SourceRef{{Source: "s.md", Score: 0.5}}}
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, answer, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.Answer
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Text != "a" || len(decoded.Sources) != 1 || decoded.Sources[0].Source != "s.md" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteBuildSummary(t *testing.T) {
	var buf bytes.Buffer
	WriteBuildSummary(&buf, indexer.BuildStats{Documents: 2, Chunks: 7, Directory: "chroma"})
	want := "Split 2 documents into 7 chunks.\nSaved 7 chunks to chroma.\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestWriteStatus(t *testing.T) {
	stats := models.StoreStats{Documents: 2, Chunks: 5, Dimensions: 384, Embedder: "openai:all-minilm", Metric: "cosine", DiskBytes: 2048}
	var buf bytes.Buffer
	if err := WriteStatus(&buf, "chroma", stats, OutputText); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Documents:  2", "Chunks:     5", "openai:all-minilm (384 dimensions, cosine)", "2.0 KiB"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("status missing %q:\n%s", want, buf.String())
		}
	}

	buf.Reset()
	if err := WriteStatus(&buf, "chroma", stats, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["directory"] != "chroma" || decoded["chunks"] != float64(5) {
		t.Errorf("decoded = %v", decoded)
	}
}

func TestWriteKeywordHits(t *testing.T) {
	hits := []models.KeywordHit{{ChunkID: "c1", Source: "alice.md", Content: "Alice\n\nis   here", Score: 1.5}}
	var buf bytes.Buffer
	if err := WriteKeywordHits(&buf, "alice", hits, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "1. alice.md | Score: 1.5000") || !strings.Contains(buf.String(), "Alice is here") {
		t.Errorf("output:\n%s", buf.String())
	}

	buf.Reset()
	if err := WriteKeywordHits(&buf, "none", nil, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty JSON hits = %q", buf.String())
	}
}

func TestWriteComparison(t *testing.T) {
	var buf bytes.Buffer
	WriteComparison(&buf, "apple", "iphone", 384, 0.56789)
	want := "Vector length: 384\nCosine similarity between 'apple' and 'iphone': 0.5679\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.n); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after query are moved first",
			args:     []string{"Who is Alice?", "-output", "json"},
			expected: []string{"-output", "json", "Who is Alice?"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-output", "json", "Who is Alice?"},
			expected: []string{"-output", "json", "Who is Alice?"},
		},
		{
			name:     "query only returns unchanged",
			args:     []string{"Who is Alice?"},
			expected: []string{"Who is Alice?"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"one", "two", "-limit", "5"},
			expected: []string{"-limit", "5", "one", "two"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestJoinArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"alice"}, "alice"},
		{"multiple words", []string{"Who", "is", "Alice?"}, "Who is Alice?"},
		{"single quoted phrase", []string{"Who is Alice?"}, "Who is Alice?"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := joinArgs(tt.args)
			if got != tt.expected {
				t.Errorf("joinArgs(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

// fakeModelServer answers chat completions with a fixed reply and counts the calls.
func fakeModelServer(t *testing.T, reply string, calls *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		*calls++
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gemma3",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": reply},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// writeProject lays out a config, a data directory with two documents, and
// returns the config path.
func writeProject(t *testing.T, modelURL string, minRelevance float64) string {
	t.Helper()
	dir := t.TempDir()
	data := filepath.Join(dir, "data")
	if err := os.MkdirAll(data, 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"alice.md":   "# Alice\n\nAlice is a cryptographer who sends messages to Bob.",
		"science.md": "# Science\n\nThe boiling point of mercury is 356.7 degrees Celsius.",
		"notes.txt":  "not indexed",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(data, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	cfg := fmt.Sprintf(`data:
  directory: data
index:
  directory: chroma
embedding:
  provider: hashing
  dimensions: 64
retrieval:
  min_relevance: %g
llm:
  base_url: %s/v1/
  model: gemma3
`, minRelevance, modelURL)
	path := filepath.Join(dir, "kotae.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCmd(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_indexAndQuery(t *testing.T) {
	calls := 0
	model := fakeModelServer(t, "Alice is a cryptographer.", &calls)
	cfgPath := writeProject(t, model.URL, -1)

	code, out, errOut := runCmd("index", "--config", cfgPath)
	if code != 0 {
		t.Fatalf("index exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "Split 2 documents into 2 chunks.") {
		t.Errorf("index output = %q", out)
	}
	if !strings.Contains(out, "Saved 2 chunks to ") {
		t.Errorf("index output = %q", out)
	}

	code, out, errOut = runCmd("query", "Who is Alice?", "--config", cfgPath)
	if code != 0 {
		t.Fatalf("query exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "Response:\nAlice is a cryptographer.") || !strings.Contains(out, "alice.md (") {
		t.Errorf("query output = %q", out)
	}
	if calls != 1 {
		t.Errorf("model calls = %d, want 1", calls)
	}

	code, out, _ = runCmd("query", "--config", cfgPath, "--output", "json", "Who is Alice?")
	if code != 0 {
		t.Fatalf("json query exit %d", code)
	}
	var answer struct {
		Answer  string `json:"answer"`
		Sources []struct {
			Source string `json:"source"`
		} `json:"sources"`
	}
	if err := json.Unmarshal([]byte(out), &answer); err != nil {
		t.Fatalf("json output: %v\n%s", err, out)
	}
	if answer.Answer != "Alice is a cryptographer." || len(answer.Sources) != 2 {
		t.Errorf("answer = %+v", answer)
	}

	code, out, _ = runCmd("status", "--config", cfgPath)
	if code != 0 || !strings.Contains(out, "Documents:  2") || !strings.Contains(out, "hashing:64") {
		t.Errorf("status exit %d output %q", code, out)
	}

	code, out, _ = runCmd("search", "--config", cfgPath, "mercury")
	if code != 0 || !strings.Contains(out, "science.md") {
		t.Errorf("search exit %d output %q", code, out)
	}
}

func TestRun_queryWithoutRelevantContext(t *testing.T) {
	calls := 0
	model := fakeModelServer(t, "unused", &calls)
	cfgPath := writeProject(t, model.URL, 1)

	if code, _, errOut := runCmd("index", "--config", cfgPath); code != 0 {
		t.Fatalf("index exit %d: %s", code, errOut)
	}
	code, out, _ := runCmd("query", "--config", cfgPath, "What is love?")
	if code != 0 {
		t.Fatalf("query exit %d", code)
	}
	if strings.TrimSpace(out) != "No good match found in the documents." {
		t.Errorf("output = %q", out)
	}
	if calls != 0 {
		t.Errorf("model called %d times without context", calls)
	}
}

func TestRun_queryWithoutIndex(t *testing.T) {
	calls := 0
	model := fakeModelServer(t, "unused", &calls)
	cfgPath := writeProject(t, model.URL, -1)

	code, _, errOut := runCmd("query", "--config", cfgPath, "Who is Alice?")
	if code != 1 {
		t.Errorf("exit = %d, want 1", code)
	}
	if !strings.Contains(errOut, "run the index command first") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestRun_compareAndChat(t *testing.T) {
	calls := 0
	model := fakeModelServer(t, "Bangalore has many lakes.", &calls)
	cfgPath := writeProject(t, model.URL, -1)

	code, out, _ := runCmd("compare", "--config", cfgPath)
	if code != 0 {
		t.Fatalf("compare exit %d", code)
	}
	if !strings.Contains(out, "Vector length: 64\n") || !strings.Contains(out, "Cosine similarity between 'apple' and 'iphone': ") {
		t.Errorf("compare output = %q", out)
	}

	code, out, _ = runCmd("compare", "--config", cfgPath, "cat", "cat")
	if code != 0 || !strings.Contains(out, "'cat' and 'cat': 1.0000") {
		t.Errorf("compare identical exit %d output %q", code, out)
	}

	code, out, _ = runCmd("chat", "--config", cfgPath, "Tell", "me", "a", "fun", "fact")
	if code != 0 || strings.TrimSpace(out) != "Bangalore has many lakes." {
		t.Errorf("chat exit %d output %q", code, out)
	}
}

func TestRun_usageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no command", nil, 1},
		{"unknown command", []string{"frobnicate"}, 1},
		{"query without text", []string{"query"}, 2},
		{"compare with one text", []string{"compare", "apple"}, 2},
		{"chat without prompt", []string{"chat"}, 2},
		{"help", []string{"help"}, 0},
		{"version", []string{"version"}, 0},
		{"missing explicit config", []string{"status", "--config", filepath.Join(t.TempDir(), "nope.yaml")}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, _, _ := runCmd(tt.args...); code != tt.want {
				t.Errorf("exit = %d, want %d", code, tt.want)
			}
		})
	}
}

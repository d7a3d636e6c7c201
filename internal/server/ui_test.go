package server

import (
	"net/http"
	"strings"
	"testing"
)

func TestHandleUI_form(t *testing.T) {
	asker := &mockAsker{}
	srv := newTestServer(asker, &mockCatalog{})
	w := serve(srv, http.MethodGet, "/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{`value="Who is Alice?"`, "Get Answer"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if len(asker.queries) != 0 {
		t.Error("the form alone must not ask anything")
	}
}

func TestHandleUI_answer(t *testing.T) {
	srv := newTestServer(&mockAsker{}, &mockCatalog{})
	w := serve(srv, http.MethodGet, "/?q=Who+is+Alice%3F", nil)
	body := w.Body.String()
	for _, want := range []string{
		"Alice is a &lt;b&gt;software&lt;/b&gt; engineer.",
		"<strong>alice.md</strong> (score: <code>0.8123</code>)",
		"<strong>bob.md</strong> (score: <code>0.3000</code>)",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q:\n%s", want, body)
		}
	}
	if strings.Index(body, "alice.md") > strings.Index(body, "bob.md") {
		t.Error("sources out of order")
	}
}

func TestHandleUI_noContextAndEmpty(t *testing.T) {
	srv := newTestServer(&mockAsker{}, &mockCatalog{})
	if body := serve(srv, http.MethodGet, "/?q=What+is+love%3F", nil).Body.String(); !strings.Contains(body, "No relevant context found.") {
		t.Errorf("no-context page:\n%s", body)
	}
	if body := serve(srv, http.MethodGet, "/?q=+", nil).Body.String(); !strings.Contains(body, "Please enter a question.") {
		t.Errorf("empty query page:\n%s", body)
	}
}

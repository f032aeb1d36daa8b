package llm

import "testing"

func TestExtractJSON_PlainObject(t *testing.T) {
	got, err := ExtractJSON(`{"a":1}`)
	if err != nil || got != `{"a":1}` {
		t.Fatalf("got %q, err %v", got, err)
	}
}

func TestExtractJSON_FramedByProseAndMarkdown(t *testing.T) {
	input := "Sure, here's the analysis:\n```json\n{\"summary\": \"a brace } inside a string\", \"topics\": [\"x\"]}\n```\nLet me know if you need more."
	got, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"summary": "a brace } inside a string", "topics": ["x"]}`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestExtractJSON_Array(t *testing.T) {
	got, err := ExtractJSON("prefix [1, 2, {\"a\": [3]}] suffix")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `[1, 2, {"a": [3]}]` {
		t.Fatalf("got %q", got)
	}
}

func TestExtractJSON_NoJSON(t *testing.T) {
	_, err := ExtractJSON("no json here at all")
	if err != ErrNoJSON {
		t.Fatalf("expected ErrNoJSON, got %v", err)
	}
}

func TestExtractJSON_Unbalanced(t *testing.T) {
	_, err := ExtractJSON(`{"a": 1`)
	if err != ErrNoJSON {
		t.Fatalf("expected ErrNoJSON for unbalanced input, got %v", err)
	}
}

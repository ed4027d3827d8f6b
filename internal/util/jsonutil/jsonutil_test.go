package jsonutil

import "testing"

func TestUnmarshalFlexDirect(t *testing.T) {
	var out map[string]any
	if err := UnmarshalFlex([]byte(`{"a": 1}`), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["a"].(float64) != 1 {
		t.Fatalf("a = %v", out["a"])
	}
}

func TestNormalizeUnicodeDeepUnescape(t *testing.T) {
	raw := []byte(`{"template": "<div>\\u003cspan\\u003e"}`)
	norm, err := NormalizeUnicode(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if string(norm) != `{"template":"<div><span>"}` {
		t.Fatalf("normalized = %s", norm)
	}
}

func TestUnmarshalFlexQuotedPayload(t *testing.T) {
	// The whole object arrived as a JSON-encoded string.
	raw := []byte(`"{\"dialog\": \"xml\"}"`)
	var out map[string]any
	if err := UnmarshalFlex(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["dialog"] != "xml" {
		t.Fatalf("dialog = %q", out["dialog"])
	}
}

func TestUnmarshalFlexRejectsGarbage(t *testing.T) {
	var out map[string]any
	if err := UnmarshalFlex([]byte("not json at all"), &out); err == nil {
		t.Fatal("expected error")
	}
}

func TestMarshalNoEscape(t *testing.T) {
	b, err := MarshalNoEscape(map[string]string{"t": "<div>"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"t":"<div>"}` {
		t.Fatalf("encoded = %s", b)
	}
}

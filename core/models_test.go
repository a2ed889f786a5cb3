package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "simple content", content: "test content"},
		{name: "empty string", content: ""},
		{name: "long content", content: "This is a much longer piece of content that should still hash consistently"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)
			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	if IDFromContent("content1") == IDFromContent("content2") {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestCorpusKey(t *testing.T) {
	a := CorpusKey("http://localhost:8983/solr/pubmed", "*:*")
	b := CorpusKey("http://localhost:8983/solr/pubmed/", "*:*")
	c := CorpusKey("http://localhost:8983/solr/pubmed", "year:2017")

	if a != b {
		t.Errorf("trailing slash changed key: %s vs %s", a, b)
	}
	if a == c {
		t.Errorf("different queries produced the same key %s", a)
	}
	if len(a) != 16 {
		t.Errorf("CorpusKey() = %q, want 16 hex digits", a)
	}
}

func TestDocument_Text(t *testing.T) {
	doc := Document{
		"pmid":         12345,
		"abstractText": "Protein A binds protein B.",
		"mesh":         []string{"Proteins", "Binding"},
		"authors":      []any{"Yan", "Li"},
		"empty":        nil,
	}

	tests := []struct {
		field string
		want  string
	}{
		{"abstractText", "Protein A binds protein B."},
		{"pmid", "12345"},
		{"mesh", "Proteins Binding"},
		{"authors", "Yan Li"},
		{"empty", ""},
		{"missing", ""},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			if got := doc.Text(tt.field); got != tt.want {
				t.Errorf("Text(%q) = %q, want %q", tt.field, got, tt.want)
			}
		})
	}
}

func TestRange_Len(t *testing.T) {
	tests := []struct {
		r    Range
		want int
	}{
		{Range{0, 20}, 20},
		{Range{40, 41}, 1},
		{Range{5, 5}, 0},
		{Range{10, 5}, 0},
	}

	for _, tt := range tests {
		if got := tt.r.Len(); got != tt.want {
			t.Errorf("%+v.Len() = %d, want %d", tt.r, got, tt.want)
		}
	}
}

func TestCheckpoint_IsZero(t *testing.T) {
	cp := &Checkpoint{Key: "k"}
	if !cp.IsZero() {
		t.Error("fresh checkpoint should be zero")
	}
	cp.VocabularyBuilt = true
	if cp.IsZero() {
		t.Error("checkpoint with vocabulary should not be zero")
	}
}

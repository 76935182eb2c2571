package models

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestValidateContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "short post", input: "short-post", wantErr: false},
		{name: "caption", input: "caption", wantErr: false},
		{name: "professional post", input: "professional-post", wantErr: false},
		{name: "empty", input: "", wantErr: true},
		{name: "unknown", input: "tweet", wantErr: true},
		{name: "case sensitive", input: "Short-Post", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateContentType(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateContentType(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestSplitPosts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "four marked posts",
			input: "POST1: first\nPOST2: second\nPOST3: third\nPOST4: fourth",
			want:  []string{"first", "second", "third", "fourth"},
		},
		{
			name:  "markers with trailing whitespace",
			input: "POST1:   padded  \nPOST2:\tother",
			want:  []string{"padded", "other"},
		},
		{
			name:  "no markers",
			input: "just one block of text",
			want:  []string{"just one block of text"},
		},
		{
			name:  "empty segments dropped",
			input: "POST1: \nPOST2: real content",
			want:  []string{"real content"},
		},
		{
			name:  "double digit markers",
			input: "POST10: ten\nPOST11: eleven",
			want:  []string{"ten", "eleven"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := SplitPosts(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitPosts(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseItems_JSONArray(t *testing.T) {
	t.Parallel()

	stored, err := json.Marshal([]string{"one", "two", "three"})
	if err != nil {
		t.Fatalf("Failed to marshal fixture: %v", err)
	}

	got := ParseItems(string(stored))
	want := []string{"one", "two", "three"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseItems() = %v, want %v", got, want)
	}
}

func TestParseItems_LegacyFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "blank line delimited legacy row",
			input: "first post\n\nsecond post\n\nthird post",
			want:  []string{"first post", "second post", "third post"},
		},
		{
			name:  "malformed JSON falls back",
			input: `["broken`,
			want:  []string{`["broken`},
		},
		{
			name:  "single block",
			input: "only one",
			want:  []string{"only one"},
		},
		{
			name:  "empty segments dropped",
			input: "a\n\n\n\nb",
			want:  []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ParseItems(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseItems(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSplitThenParseRoundTrip(t *testing.T) {
	t.Parallel()

	raw := "POST1: alpha\nPOST2: beta\nPOST3: gamma\nPOST4: delta"
	items := SplitPosts(raw)
	stored, err := json.Marshal(items)
	if err != nil {
		t.Fatalf("Failed to marshal items: %v", err)
	}

	got := ParseItems(string(stored))
	if !reflect.DeepEqual(got, items) {
		t.Errorf("Round trip lost items: got %v, want %v", got, items)
	}
}

package textfilter

import (
	"testing"
)

func TestPromptFilter_FilterText(t *testing.T) {
	filter := NewPromptFilter()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple replacement",
			input:    "What the hell is happening in here?",
			expected: "What the heck is happening in here?",
		},
		{
			name:     "multiple words",
			input:    "This is damn crap!",
			expected: "This is dang crud!",
		},
		{
			name:     "case preservation - uppercase",
			input:    "DAMN that process!",
			expected: "DANG that process!",
		},
		{
			name:     "case preservation - title case",
			input:    "Hell no, the runtime disagrees",
			expected: "Heck no, the runtime disagrees",
		},
		{
			name:     "word boundaries",
			input:    "The grief process is classical in its persistence",
			expected: "The grief process is classical in its persistence",
		},
		{
			name:     "clean text unchanged",
			input:    "The memory usage climbs past the threshold.",
			expected: "The memory usage climbs past the threshold.",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := filter.FilterText(tc.input); got != tc.expected {
				t.Errorf("FilterText(%q) = %q, want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestPromptFilter_ContainsProfanity(t *testing.T) {
	filter := NewPromptFilter()

	if !filter.ContainsProfanity("what the hell") {
		t.Error("expected profanity to be detected")
	}
	if filter.ContainsProfanity("a perfectly clean prompt") {
		t.Error("expected clean text to pass")
	}
}

func TestShouldFilterContent(t *testing.T) {
	tests := []struct {
		rating string
		want   bool
	}{
		{"G", true},
		{"PG", true},
		{"PG13", true},
		{"pg-13", true},
		{" PG ", true},
		{"R", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := ShouldFilterContent(tc.rating); got != tc.want {
			t.Errorf("ShouldFilterContent(%q) = %v, want %v", tc.rating, got, tc.want)
		}
	}
}

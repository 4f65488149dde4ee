package prompt

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func TestLanguage(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		known  []string
		want   string
		prompt string
	}{
		{
			name:   "normalises case and space",
			input:  "  fr \n",
			known:  []string{"AR", "EN", "FR"},
			want:   "FR",
			prompt: "Enter the language sign (e.g., AR, EN, FR): ",
		},
		{
			name:   "no trailing newline",
			input:  "de",
			known:  []string{"DE"},
			want:   "DE",
			prompt: "Enter the language sign (e.g., DE): ",
		},
		{
			name:   "default examples",
			input:  "en\n",
			want:   "EN",
			prompt: "Enter the language sign (e.g., EN, AR, FR): ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := Language(strings.NewReader(tt.input), &out, tt.known)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if out.String() != tt.prompt {
				t.Errorf("prompt = %q, want %q", out.String(), tt.prompt)
			}
		})
	}
}

func TestLanguageEmptyInput(t *testing.T) {
	_, err := Language(strings.NewReader(""), io.Discard, nil)
	if !errors.Is(err, io.EOF) {
		t.Errorf("expected EOF, got %v", err)
	}
}

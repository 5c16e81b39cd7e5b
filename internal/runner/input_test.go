package runner

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestParseIdentities(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "newline list",
			input: "jack\n\n# comment\n@biz\n  ev  \njack\n",
			want:  []string{"jack", "biz", "ev"},
		},
		{
			name:  "json strings",
			input: `["jack", "@biz"]`,
			want:  []string{"jack", "biz"},
		},
		{
			name:  "json objects",
			input: `[{"username": "jack"}, {"Twitter Username": "@biz", "Name": "Biz"}, {"Name": "nobody"}]`,
			want:  []string{"jack", "biz"},
		},
		{
			name:  "empty",
			input: "  \n",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIdentities(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("ParseIdentities failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParseIdentitiesRejectsBadJSON(t *testing.T) {
	if _, err := ParseIdentities(strings.NewReader(`[{"username": "jack"`)); err == nil {
		t.Error("Expected error for truncated JSON")
	}
	if _, err := ParseIdentities(strings.NewReader(`[42]`)); err == nil {
		t.Error("Expected error for non-string entry")
	}
}

func TestReadIdentities(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.txt")
	if err := os.WriteFile(path, []byte("jack\nbiz\n"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := ReadIdentities(path)
	if err != nil {
		t.Fatalf("ReadIdentities failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Expected 2 identities, got %v", got)
	}

	if _, err := ReadIdentities(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Expected error for missing file")
	}
}

package pipeline

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseVariablePath(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"@", []string{"@"}},
		{"@input", []string{"@input"}},
		{"@input.", []string{"@input", ""}},
		{"@input.fo", []string{"@input", "fo"}},
		{"@input.fo.", []string{"@input", "fo", ""}},
		{"@input?.fo", []string{"@input", "fo"}},
		{"@input?.items?.[0]", []string{"@input", "items", "0"}},
		{"@input.items[0].f", []string{"@input", "items", "0", "f"}},
		{"@input.items[0].", []string{"@input", "items", "0", ""}},
		{`@input["first name"].x`, []string{"@input", "first name", "x"}},
		{"@input['a.b']", []string{"@input", "a.b"}},
		{"@a..b", []string{"@a", "", "b"}},
		{"@input.items[3", []string{"@input", "items[3"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseVariablePath(tt.in)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseVariablePath(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestFormatVariablePath(t *testing.T) {
	tests := []struct {
		parts []string
		want  string
	}{
		{[]string{"@input"}, "@input"},
		{[]string{"@input", "items", "0", "title"}, "@input.items[0].title"},
		{[]string{"@input", "first name"}, `@input["first name"]`},
	}
	for _, tt := range tests {
		if got := FormatVariablePath(tt.parts); got != tt.want {
			t.Errorf("FormatVariablePath(%v) = %q, want %q", tt.parts, got, tt.want)
		}
	}
}

func TestIsIndex(t *testing.T) {
	for in, want := range map[string]bool{
		"0": true, "12": true, "": false, "-1": false, "01": false, "a": false,
	} {
		if got := IsIndex(in); got != want {
			t.Errorf("IsIndex(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTemplateVariables(t *testing.T) {
	src := `Hello {{ @input.name | upper }}! {% for x in @input.items %}{{ x }} {{ @jq.count }}{% endfor %}
contact: me@example.com {{ @input.name }} {{ @data["key"] }}`

	want := []string{"@input.name", "@input.items", "@jq.count", `@data["key"]`}
	if diff := cmp.Diff(want, TemplateVariables(src)); diff != "" {
		t.Errorf("TemplateVariables mismatch (-want +got):\n%s", diff)
	}
}

package homepage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const bookmarksYAML = `---
- Developer:
    - Github:
        - abbr: GH
          href: https://github.com/
    - Go Docs:
        - href: https://go.dev/doc
- Social:
    - Reddit:
        - abbr: RE
          href: {{HOMEPAGE_VAR_REDDIT_URL}}
`

const servicesYAML = `---
- Infrastructure:
    - AdGuard Home:
        icon: adguard-home.svg
        href: https://adguard.domain.ext
        description: Network-wide ads & trackers blocking DNS server
        widget:
          type: adguard
          username: {{HOMEPAGE_VAR_ADGUARD_USER}}
    - Traefik:
        href: https://traefik.domain.ext
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create test YAML file: %v", err)
	}
	return path
}

func TestLoadBookmarks(t *testing.T) {
	path := writeFile(t, "bookmarks.yaml", bookmarksYAML)

	links, err := Load(path, FormatAuto)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// The templated Reddit href is stripped and skipped.
	want := []Link{
		{Title: "GH", URL: "https://github.com/", Description: "Developer", Category: "Developer"},
		{Title: "Go Docs", URL: "https://go.dev/doc", Description: "Developer", Category: "Developer"},
	}
	if len(links) != len(want) {
		t.Fatalf("Load() returned %d links, want %d: %+v", len(links), len(want), links)
	}
	for i := range want {
		if links[i] != want[i] {
			t.Errorf("link %d = %+v, want %+v", i, links[i], want[i])
		}
	}
}

func TestLoadServices(t *testing.T) {
	path := writeFile(t, "services.yaml", servicesYAML)

	links, err := Load(path, FormatAuto)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("Load() returned %d links, want 2", len(links))
	}
	if links[0].Title != "AdGuard Home" || links[0].Description != "Network-wide ads & trackers blocking DNS server" {
		t.Errorf("first link = %+v", links[0])
	}
	if links[1].Description != "Infrastructure" {
		t.Errorf("service without description should use the group, got %q", links[1].Description)
	}
}

func TestLoadGuessesFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{name: "bookmarks layout", content: bookmarksYAML, want: 2},
		{name: "services layout", content: servicesYAML, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links, err := Load(writeFile(t, "export.yml", tt.content), FormatAuto)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if len(links) != tt.want {
				t.Errorf("got %d links, want %d", len(links), tt.want)
			}
		})
	}
}

func TestLoadWrongFormat(t *testing.T) {
	path := writeFile(t, "links.yaml", servicesYAML)
	if _, err := Load(path, FormatBookmarks); err == nil {
		t.Error("Load() of services as bookmarks should fail")
	}
}

func TestLoadNoLinks(t *testing.T) {
	path := writeFile(t, "bookmarks.yaml", "---\n- Empty: []\n")
	if _, err := Load(path, FormatBookmarks); !errors.Is(err, ErrNoLinks) {
		t.Errorf("Load() error = %v, want ErrNoLinks", err)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	if _, err := Load("/nonexistent/path/bookmarks.yaml", FormatAuto); err == nil {
		t.Error("Load() with non-existent file should return error")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatAuto},
		{in: "Services", want: FormatServices},
		{in: "bookmarks", want: FormatBookmarks},
		{in: "widgets", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestStripTemplateVariables(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "single template variable",
			input:    []byte("url: {{HOMEPAGE_VAR_URL}}"),
			expected: "url: \"\"",
		},
		{
			name:     "no template variables",
			input:    []byte("plain text"),
			expected: "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := stripTemplateVariables(tt.input)
			if string(result) != tt.expected {
				t.Errorf("stripTemplateVariables() = %q, want %q", string(result), tt.expected)
			}
		})
	}
}

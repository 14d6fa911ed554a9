package homepage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format names the Homepage file layout.
type Format string

const (
	FormatAuto      Format = "auto"
	FormatBookmarks Format = "bookmarks"
	FormatServices  Format = "services"
)

// ParseFormat accepts "", "auto", "bookmarks" and "services".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatAuto:
		return FormatAuto, nil
	case FormatBookmarks, FormatServices:
		return f, nil
	default:
		return "", fmt.Errorf("unknown homepage format %q (want bookmarks, services or auto)", s)
	}
}

var templateVar = regexp.MustCompile(`\{\{[^}]+\}\}`)

// stripTemplateVariables replaces Homepage template variables with an empty
// string. Example: {{HOMEPAGE_VAR_ADGUARD_URL}} -> ""
func stripTemplateVariables(data []byte) []byte {
	return templateVar.ReplaceAll(data, []byte(`""`))
}

// Load reads a Homepage file and returns its links. With FormatAuto the
// layout is guessed from the file name, then from the content.
func Load(path string, format Format) ([]Link, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read homepage file: %w", err)
	}
	data = stripTemplateVariables(data)

	if format == FormatAuto || format == "" {
		format = guessFormat(path)
	}

	switch format {
	case FormatBookmarks:
		return parseBookmarks(data)
	case FormatServices:
		return parseServices(data)
	default:
		links, bErr := parseBookmarks(data)
		if bErr == nil {
			return links, nil
		}
		links, sErr := parseServices(data)
		if sErr == nil {
			return links, nil
		}
		return nil, errors.Join(bErr, sErr)
	}
}

func guessFormat(path string) Format {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasPrefix(name, "bookmarks"):
		return FormatBookmarks
	case strings.HasPrefix(name, "services"):
		return FormatServices
	default:
		return FormatAuto
	}
}

func parseBookmarks(data []byte) ([]Link, error) {
	var cfg BookmarksConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse bookmarks yaml: %w", err)
	}
	return MapBookmarks(cfg)
}

func parseServices(data []byte) ([]Link, error) {
	var cfg ServicesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse services yaml: %w", err)
	}
	return MapServices(cfg)
}

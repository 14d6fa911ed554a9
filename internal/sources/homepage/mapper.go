package homepage

import (
	"errors"
	"maps"
	"slices"
	"strings"
)

// ErrNoLinks is returned when a file holds no entry with an href.
var ErrNoLinks = errors.New("no valid links found in homepage config")

// MapBookmarks flattens bookmarks.yaml. The title is the abbreviation when
// set, otherwise the entry name; the category becomes the description.
func MapBookmarks(cfg BookmarksConfig) ([]Link, error) {
	var links []Link
	for _, category := range cfg {
		for _, categoryName := range sortedKeys(category) {
			for _, entryMap := range category[categoryName] {
				for _, name := range sortedKeys(entryMap) {
					entries := entryMap[name]
					if len(entries) == 0 {
						continue
					}
					entry := entries[0]
					href := strings.TrimSpace(entry.Href)
					if href == "" {
						continue
					}
					title := strings.TrimSpace(entry.Abbr)
					if title == "" {
						title = name
					}
					links = append(links, Link{
						Title:       title,
						URL:         href,
						Description: categoryName,
						Category:    categoryName,
					})
				}
			}
		}
	}
	if len(links) == 0 {
		return nil, ErrNoLinks
	}
	return links, nil
}

// MapServices flattens services.yaml. The service description is kept, the
// group name is used when there is none.
func MapServices(cfg ServicesConfig) ([]Link, error) {
	var links []Link
	for _, group := range cfg {
		for _, groupName := range sortedKeys(group) {
			for _, serviceMap := range group[groupName] {
				for _, name := range sortedKeys(serviceMap) {
					props := serviceMap[name]
					href := strings.TrimSpace(props.Href)
					if href == "" {
						continue
					}
					desc := strings.TrimSpace(props.Description)
					if desc == "" {
						desc = groupName
					}
					links = append(links, Link{
						Title:       name,
						URL:         href,
						Description: desc,
						Category:    groupName,
					})
				}
			}
		}
	}
	if len(links) == 0 {
		return nil, ErrNoLinks
	}
	return links, nil
}

// sortedKeys gives map iteration a stable order so imports are repeatable.
func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

package homepage

// BookmarkEntry is one link of bookmarks.yaml.
type BookmarkEntry struct {
	Icon string `yaml:"icon"`
	Abbr string `yaml:"abbr"`
	Href string `yaml:"href"`
}

// BookmarksConfig is the root of bookmarks.yaml:
//
//	- Category:
//	    - Name:
//	        - abbr: XX
//	          href: https://...
//
// Every name maps to a list holding a single entry.
type BookmarksConfig []map[string][]map[string][]BookmarkEntry

// ServicesConfig is the root of services.yaml. Homepage uses dynamic keys,
// so it is parsed as []map[group][]map[service]ServiceProps.
type ServicesConfig []map[string][]map[string]ServiceProps

// ServiceProps holds the service fields shelf cares about. Widgets and
// monitors are ignored.
type ServiceProps struct {
	Href        string `yaml:"href"`
	Icon        string `yaml:"icon,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// Link is a Homepage entry reduced to what a bookmark needs.
type Link struct {
	Title       string
	URL         string
	Description string
	Category    string
}

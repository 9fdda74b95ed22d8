// Package monitor decides which detection events deserve a notification,
// based on a camera/zone allow-list.
package monitor

import "strings"

// ZoneAll is the sentinel zone meaning "every zone of this camera".
const ZoneAll = "all"

// Config maps camera name to its allowed zone set. An empty Config means
// "monitor every camera, every zone". Built once at startup; immutable.
type Config map[string]map[string]struct{}

// ParseSpec parses the allow-list spec string.
//
// Format:  camera1:zone_a,zone_b;camera2:all
//
// A camera listed without zones monitors all its zones. Parsing is total:
// malformed fragments are skipped and empty/whitespace input yields an empty
// Config (= monitor everything).
func ParseSpec(raw string) Config {
	cfg := Config{}
	if strings.TrimSpace(raw) == "" {
		return cfg
	}

	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		camera := entry
		zonesRaw := ""
		if i := strings.Index(entry, ":"); i >= 0 {
			camera = strings.TrimSpace(entry[:i])
			zonesRaw = entry[i+1:]
		}
		if camera == "" {
			continue
		}

		zones := map[string]struct{}{}
		for _, z := range strings.Split(zonesRaw, ",") {
			if z = strings.TrimSpace(z); z != "" {
				zones[z] = struct{}{}
			}
		}
		if len(zones) == 0 {
			zones[ZoneAll] = struct{}{}
		}
		cfg[camera] = zones
	}
	return cfg
}

// Cameras returns the configured camera names (unordered). Empty for an
// empty config.
func (c Config) Cameras() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	return names
}

// Matches reports whether an event on the given camera/zones passes the
// allow-list. Empty config matches everything. A camera absent from a
// non-empty config never matches; "all" matches any zone; otherwise the
// event's zone set must intersect the allowed set (an event with no zones
// does not match a concrete zone list).
func (c Config) Matches(camera string, zones []string) bool {
	if len(c) == 0 {
		return true
	}
	allowed, ok := c[camera]
	if !ok {
		return false
	}
	if _, all := allowed[ZoneAll]; all {
		return true
	}
	for _, z := range zones {
		if _, hit := allowed[z]; hit {
			return true
		}
	}
	return false
}

package registry

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SourceDomain is the ticketing site entity URLs must belong to.
const SourceDomain = "ticketmaster.com"

var eventIDPattern = regexp.MustCompile(`/event/([^/?#]+)`)

// Candidate is an entity derived from a URL that has passed validation
// but has not been confirmed by the backend yet.
type Candidate struct {
	ID   string
	URL  string
	Name string
}

// ParseURL validates raw and derives the entity id and display name. The
// host must be on SourceDomain and the path must contain /event/<id>.
func ParseURL(raw string) (Candidate, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Candidate{}, fmt.Errorf("%w: empty url", ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return Candidate{}, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	host := strings.ToLower(u.Hostname())
	if host != SourceDomain && !strings.HasSuffix(host, "."+SourceDomain) {
		return Candidate{}, fmt.Errorf("%w: host %q is not %s", ErrInvalidURL, host, SourceDomain)
	}
	m := eventIDPattern.FindStringSubmatch(u.Path)
	if m == nil {
		return Candidate{}, fmt.Errorf("%w: no /event/<id> in %q", ErrInvalidURL, u.Path)
	}
	id := m[1]
	return Candidate{ID: id, URL: raw, Name: displayName(u.Path, id)}, nil
}

// displayName picks the slug that describes the event. Listing URLs put
// it before /event/ ("/artist-city-date/event/<id>"); short links put it
// after the id ("/event/<id>/the-show").
func displayName(path, id string) string {
	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	slug := ""
	for i, s := range segments {
		if s != "event" {
			continue
		}
		if i > 0 {
			slug = segments[i-1]
		} else if i+2 < len(segments) && segments[i+1] == id {
			slug = segments[i+2]
		}
		break
	}
	if slug == "" {
		return "Unknown Event"
	}
	// Casers carry state, so each call gets its own.
	return cases.Title(language.Und, cases.NoLower).String(strings.ReplaceAll(slug, "-", " "))
}

package jma

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/quake-alert/internal/domain"
)

// Document type codes embedded in JMA document URLs.
const (
	codeTsunami    = "VTSE51"
	codeLongPeriod = "VXSE62"
)

// Link is one document referenced by the Atom feed.
type Link struct {
	URL     string
	Kind    domain.SourceKind
	Updated time.Time
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title   string     `xml:"title"`
	ID      string     `xml:"id"`
	Updated string     `xml:"updated"`
	Links   []atomLink `xml:"link"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
}

// ParseFeed returns the newest tsunami and long-period document links in the
// feed, at most one of each. Entries for other document types are ignored.
func ParseFeed(body []byte) ([]Link, error) {
	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("parse atom feed: %w", err)
	}

	latest := make(map[domain.SourceKind]Link)
	var order []domain.SourceKind
	for _, e := range feed.Entries {
		updated, _ := time.Parse(time.RFC3339, strings.TrimSpace(e.Updated))
		for _, l := range e.Links {
			kind, ok := documentKind(l.Href)
			if !ok {
				continue
			}
			cur, seen := latest[kind]
			if !seen {
				order = append(order, kind)
			}
			// Feeds list newest first; a later entry only wins if strictly newer.
			if !seen || updated.After(cur.Updated) {
				latest[kind] = Link{URL: l.Href, Kind: kind, Updated: updated}
			}
		}
	}

	links := make([]Link, 0, len(order))
	for _, k := range order {
		links = append(links, latest[k])
	}
	return links, nil
}

func documentKind(href string) (domain.SourceKind, bool) {
	switch {
	case strings.Contains(href, codeTsunami):
		return domain.KindJMATsunami, true
	case strings.Contains(href, codeLongPeriod):
		return domain.KindJMALongPeriod, true
	default:
		return "", false
	}
}

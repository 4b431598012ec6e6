package pptx

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"

	"github.com/slidescribe/backend/pkg/logger"

	"golang.org/x/net/html/charset"
	"golang.org/x/sync/errgroup"
)

var slideRelsPattern = regexp.MustCompile(`^ppt/slides/_rels/slide(\d+)\.xml\.rels$`)

type relationshipsXML struct {
	XMLName       xml.Name       `xml:"Relationships"`
	Relationships []Relationship `xml:"Relationship"`
}

// Relationships maps a slide number to the relationships declared by that
// slide. It is built once per run and only read afterwards.
type Relationships map[int][]Relationship

// Find returns the relationship with the given id on a slide.
func (r Relationships) Find(slide int, id string) (Relationship, bool) {
	for _, rel := range r[slide] {
		if rel.ID == id {
			return rel, true
		}
	}
	return Relationship{}, false
}

// ParseRelationships decodes a relationship descriptor part. A descriptor with a
// single Relationship and one with many both yield a slice.
func ParseRelationships(content []byte) ([]Relationship, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	dec.CharsetReader = charset.NewReaderLabel

	var doc relationshipsXML
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if doc.Relationships == nil {
		return []Relationship{}, nil
	}
	return doc.Relationships, nil
}

// ResolveRelationships parses every slide relationship descriptor of the
// archive in parallel. A descriptor that fails to parse leaves its slide with
// an empty relationship set; it never fails the whole resolution.
func ResolveRelationships(ctx context.Context, archive *Archive) Relationships {
	rels, _ := resolveRelationships(ctx, archive, nil)
	return rels
}

func resolveRelationships(ctx context.Context, archive *Archive, stats *counters) (Relationships, []error) {
	entries := archive.ListEntries(slideRelsPattern)

	type parsed struct {
		slide int
		rels  []Relationship
		err   error
	}
	results := make([]parsed, len(entries))

	g, _ := errgroup.WithContext(ctx)
	for i, entry := range entries {
		g.Go(func() error {
			slide, err := slideNumberFromEntry(slideRelsPattern, entry)
			if err != nil {
				results[i] = parsed{slide: -1, err: err}
				return nil
			}

			content, err := archive.ReadBytes(entry)
			if err != nil {
				results[i] = parsed{slide: slide, rels: []Relationship{}, err: &RelationshipParseError{Slide: slide, Entry: entry, Err: err}}
				return nil
			}

			rels, err := ParseRelationships(content)
			if err != nil {
				results[i] = parsed{slide: slide, rels: []Relationship{}, err: &RelationshipParseError{Slide: slide, Entry: entry, Err: err}}
				return nil
			}

			results[i] = parsed{slide: slide, rels: rels}
			return nil
		})
	}
	_ = g.Wait()

	out := make(Relationships, len(results))
	var errs []error
	for _, res := range results {
		if res.err != nil {
			errs = append(errs, res.err)
			logger.Warn("[PPTX] Could not parse slide relationships", "slide", res.slide, "err", res.err)
			stats.inc(statRelationshipErrors)
		}
		if res.slide < 0 {
			continue
		}
		out[res.slide] = res.rels
	}

	return out, errs
}

func slideNumberFromEntry(pattern *regexp.Regexp, entry string) (int, error) {
	m := pattern.FindStringSubmatch(entry)
	if len(m) < 2 {
		return 0, fmt.Errorf("entry %s does not name a slide", entry)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("entry %s: %w", entry, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("entry %s: slide number must be positive", entry)
	}
	return n, nil
}

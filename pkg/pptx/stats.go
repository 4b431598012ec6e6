package pptx

import "sync/atomic"

// Stats counts what a run extracted and, more importantly, what it skipped.
// Skips never change the outcome of a run, so these counters are the place to
// look when content goes missing.
type Stats struct {
	SlidesFound        int64 `json:"slides_found"`
	SlidesExtracted    int64 `json:"slides_extracted"`
	SlidesDropped      int64 `json:"slides_dropped"`
	RelationshipErrors int64 `json:"relationship_errors"`
	TextElements       int64 `json:"text_elements"`
	ImageElements      int64 `json:"image_elements"`
	UnresolvedImages   int64 `json:"unresolved_images"`
	MissingImages      int64 `json:"missing_images"`
	ExternalImages     int64 `json:"external_images"`
	FailedImages       int64 `json:"failed_images"`
}

// Skipped returns the number of elements and slides that were left out.
func (s Stats) Skipped() int64 {
	return s.SlidesDropped + s.UnresolvedImages + s.MissingImages + s.ExternalImages + s.FailedImages
}

type statKey int

const (
	statSlidesFound statKey = iota
	statSlidesExtracted
	statSlidesDropped
	statRelationshipErrors
	statTextElements
	statImageElements
	statUnresolvedImages
	statMissingImages
	statExternalImages
	statFailedImages
	statCount
)

type counters struct {
	values [statCount]atomic.Int64
}

func (c *counters) inc(key statKey) {
	if c == nil {
		return
	}
	c.values[key].Add(1)
}

func (c *counters) snapshot() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{
		SlidesFound:        c.values[statSlidesFound].Load(),
		SlidesExtracted:    c.values[statSlidesExtracted].Load(),
		SlidesDropped:      c.values[statSlidesDropped].Load(),
		RelationshipErrors: c.values[statRelationshipErrors].Load(),
		TextElements:       c.values[statTextElements].Load(),
		ImageElements:      c.values[statImageElements].Load(),
		UnresolvedImages:   c.values[statUnresolvedImages].Load(),
		MissingImages:      c.values[statMissingImages].Load(),
		ExternalImages:     c.values[statExternalImages].Load(),
		FailedImages:       c.values[statFailedImages].Load(),
	}
}

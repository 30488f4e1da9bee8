// Package timeextract finds date and time expressions in Chinese text.
// It relies on a segmenter that tags numerals (m) and time words (t).
package timeextract

import (
	"context"

	"github.com/hrygo/hmmseg/plugin/hmm"
)

// Segmenter splits text into POS-tagged words. *hmm.Tagger implements it.
type Segmenter interface {
	Cut(ctx context.Context, text string) ([]hmm.WordTag, error)
}

// Service extracts normalized timestamps from text.
type Service interface {
	// Extract returns every time expression in text as "2006-01-02 15:04:05",
	// in order of appearance. The result is empty when nothing is found.
	Extract(ctx context.Context, text string) ([]string, error)
}

// OutputLayout is the layout of extracted timestamps.
const OutputLayout = "2006-01-02 15:04:05"

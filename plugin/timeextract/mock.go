package timeextract

import (
	"context"

	taggererrors "github.com/hrygo/hmmseg/internal/errors"
	"github.com/hrygo/hmmseg/plugin/hmm"
)

// MockSegmenter returns canned segmentations for testing.
type MockSegmenter struct {
	// Words maps an input text to its segmentation.
	Words map[string][]hmm.WordTag
	// Err, when set, is returned for every call.
	Err error
}

// NewMockSegmenter creates an empty MockSegmenter.
func NewMockSegmenter() *MockSegmenter {
	return &MockSegmenter{Words: make(map[string][]hmm.WordTag)}
}

// Add registers the segmentation of text.
func (m *MockSegmenter) Add(text string, words ...hmm.WordTag) *MockSegmenter {
	m.Words[text] = words
	return m
}

// Cut implements Segmenter.
func (m *MockSegmenter) Cut(_ context.Context, text string) ([]hmm.WordTag, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	words, ok := m.Words[text]
	if !ok {
		return nil, taggererrors.InvalidArgument("no canned segmentation for " + text)
	}
	return words, nil
}

// Package codec serializes trained models into blobs.
//
// A blob is three values written back to back: the initial table
// (map[string]float64), the transition table (map[string]map[string]float64)
// and the emission table (map[string]map[string]float64). States are keyed by
// their string form ("B_n"); emission rows are keyed by symbol.
package codec

import (
	"io"
	"sort"

	"github.com/pkg/errors"

	"github.com/hrygo/hmmseg/plugin/hmm"
)

// Codec encodes and decodes model blobs.
type Codec interface {
	Name() string
	Encode(w io.Writer, m *hmm.Model) error
	Decode(r io.Reader) (*hmm.Model, error)
}

const (
	Gob     = "gob"
	Msgpack = "msgpack"
)

var registry = map[string]Codec{
	Gob:     gobCodec{},
	Msgpack: msgpackCodec{},
}

// Get returns the codec registered under name.
func Get(name string) (Codec, error) {
	c, ok := registry[name]
	if !ok {
		return nil, errors.Errorf("unknown codec %q (supported: %v)", name, Names())
	}
	return c, nil
}

// Names lists the registered codecs.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type tables struct {
	initial    map[string]float64
	transition map[string]map[string]float64
	emission   map[string]map[string]float64
}

func (t *tables) model() (*hmm.Model, error) {
	m, err := hmm.FromTables(t.initial, t.transition, t.emission)
	if err != nil {
		return nil, errors.Wrap(err, "invalid model blob")
	}
	return m, nil
}

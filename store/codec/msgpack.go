package codec

import (
	"io"

	"github.com/pkg/errors"
	msgpack "gopkg.in/vmihailenco/msgpack.v2"

	"github.com/hrygo/hmmseg/plugin/hmm"
)

type msgpackCodec struct{}

func (msgpackCodec) Name() string { return Msgpack }

func (msgpackCodec) Encode(w io.Writer, m *hmm.Model) error {
	initial, transition, emission := m.Tables()
	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(initial); err != nil {
		return errors.Wrap(err, "failed to encode initial table")
	}
	if err := enc.Encode(transition); err != nil {
		return errors.Wrap(err, "failed to encode transition table")
	}
	if err := enc.Encode(emission); err != nil {
		return errors.Wrap(err, "failed to encode emission table")
	}
	return nil
}

func (msgpackCodec) Decode(r io.Reader) (*hmm.Model, error) {
	var t tables
	dec := msgpack.NewDecoder(r)
	if err := dec.Decode(&t.initial); err != nil {
		return nil, errors.Wrap(err, "failed to decode initial table")
	}
	if err := dec.Decode(&t.transition); err != nil {
		return nil, errors.Wrap(err, "failed to decode transition table")
	}
	if err := dec.Decode(&t.emission); err != nil {
		return nil, errors.Wrap(err, "failed to decode emission table")
	}
	return t.model()
}

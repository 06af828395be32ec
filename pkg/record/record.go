// Package record defines the key/value element model shared by the adapter
// and both backend engines.
//
// The pipeline engine consumes records as generic key/value pairs. Bounded
// (format-based) stages produce full KV records; unbounded (receiver-based)
// stages only carry a value, so the adapter synthesizes records with a nil
// key when bridging them into the KV model.
package record

// KV is a single key/value element.
type KV struct {
	Key   interface{}
	Value interface{}
}

// Stream is a channel-based stream of KV records. The producer closes both
// channels when the stream ends; at most one error is delivered for a failed
// stream.
type Stream struct {
	Records <-chan KV
	Errors  <-chan error
}

// ValueStream is a channel-based stream of bare values, as produced by the
// receiver-based streaming backend.
type ValueStream struct {
	Values <-chan interface{}
	Errors <-chan error
}

// FromSlice builds a bounded Stream from in-memory records. Intended for
// tests and for feeding write stages from already-materialized data.
func FromSlice(records []KV) *Stream {
	out := make(chan KV, len(records))
	errs := make(chan error)
	for _, kv := range records {
		out <- kv
	}
	close(out)
	close(errs)
	return &Stream{Records: out, Errors: errs}
}

// Collect drains a Stream into a slice. It returns the first error delivered
// on the error channel, if any.
func Collect(s *Stream) ([]KV, error) {
	var records []KV
	for kv := range s.Records {
		records = append(records, kv)
	}
	if err, ok := <-s.Errors; ok && err != nil {
		return records, err
	}
	return records, nil
}

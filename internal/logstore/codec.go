package logstore

import (
	"encoding/json"

	"github.com/ayumu837/guildlog/internal/errors"
)

// Encode serializes records as a pretty-printed JSON array. The document is
// a flat array with no wrapper envelope; element order is record order.
// A nil slice encodes as an empty array, never as JSON null.
func Encode[T any](records []T) ([]byte, error) {
	if records == nil {
		records = []T{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encode record list")
	}

	return append(data, '\n'), nil
}

// Decode parses a partition document back into an ordered record list.
// A document that does not decode is reported as corrupt, carrying the
// partition path; callers must not conflate that with an absent partition.
func Decode[T any](data []byte, path string) ([]T, error) {
	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.NewCorruptPartition(path, err)
	}
	return records, nil
}

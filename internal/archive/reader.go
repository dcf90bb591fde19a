package archive

import (
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/ayumu837/guildlog/internal/errors"
)

// Reader reads archive rows of one record type from a Parquet file.
type Reader[R any] struct {
	file   *os.File
	reader *parquet.GenericReader[R]
	path   string
}

// NewReader opens a Parquet archive at path.
func NewReader[R any](path string) (*Reader[R], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open file")
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "stat file")
	}

	pf, err := parquet.OpenFile(f, stat.Size(), parquet.ReadBufferSize(1024*1024))
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "open parquet file")
	}

	reader := parquet.NewGenericReader[R](pf)

	return &Reader[R]{
		file:   f,
		reader: reader,
		path:   path,
	}, nil
}

// Read reads up to n rows from the file.
func (r *Reader[R]) Read(n int) ([]R, error) {
	rows := make([]R, n)
	count, err := r.reader.Read(rows)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return rows[:count], nil
}

// ReadAll reads every row in the file.
func (r *Reader[R]) ReadAll() ([]R, error) {
	rows := make([]R, r.reader.NumRows())
	n, err := r.reader.Read(rows)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return rows[:n], nil
}

// NumRows returns the total number of rows in the file.
func (r *Reader[R]) NumRows() int64 {
	return r.reader.NumRows()
}

// Close closes the reader.
func (r *Reader[R]) Close() error {
	if err := r.reader.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

// Path returns the file path.
func (r *Reader[R]) Path() string {
	return r.path
}

package archive

import (
	"os"

	"github.com/ayumu837/guildlog/internal/errors"
	"github.com/ayumu837/guildlog/internal/logging"
	"github.com/ayumu837/guildlog/internal/logstore"
)

// ExportMessages archives every message partition under root into a
// single Parquet file at outPath and returns the number of rows written.
func ExportMessages(root, outPath string, opts Options) (int64, error) {
	return exportLog(root, outPath, opts, MessageToRow)
}

// ExportVoice archives every voice partition under root into a single
// Parquet file at outPath and returns the number of rows written.
func ExportVoice(root, outPath string, opts Options) (int64, error) {
	return exportLog(root, outPath, opts, VoiceToRow)
}

// exportLog decodes each partition under root and streams its records
// into one Parquet file. A corrupt partition aborts the export; the
// partial output file is removed.
func exportLog[T any, R any](root, outPath string, opts Options, conv func(*T) R) (int64, error) {
	log := logging.Component("archive")

	files, err := logstore.ListPartitionFiles(root)
	if err != nil {
		return 0, errors.Wrap(err, "list partitions")
	}

	w, err := NewWriter[R](outPath, opts)
	if err != nil {
		return 0, err
	}

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			w.Close()
			os.Remove(outPath)
			return 0, errors.Wrap(err, "read partition")
		}

		records, err := logstore.Decode[T](data, path)
		if err != nil {
			w.Close()
			os.Remove(outPath)
			return 0, err
		}

		rows := make([]R, len(records))
		for i := range records {
			rows[i] = conv(&records[i])
		}
		if err := w.Write(rows); err != nil {
			w.Close()
			os.Remove(outPath)
			return 0, err
		}

		log.Debug("partition archived", "path", path, "records", len(records))
	}

	if err := w.Close(); err != nil {
		os.Remove(outPath)
		return 0, err
	}

	log.Info("export finished", "path", outPath, "rows", w.RowCount(), "partitions", len(files))
	return w.RowCount(), nil
}

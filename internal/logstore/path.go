package logstore

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ayumu837/guildlog/config"
	"github.com/ayumu837/guildlog/internal/errors"
)

// Resolve maps (root, key segments, date) to the partition file path
// root/segs.../YYYY-MM-DD.json, creating every directory component up to
// the file. MkdirAll treats an already-existing directory as success, so
// concurrent resolves of the same path cannot fail on the create race.
//
// The filename date is taken in the timezone carried by date itself.
func Resolve(root string, date time.Time, segs ...string) (string, error) {
	dir := filepath.Join(append([]string{root}, segs...)...)
	if err := os.MkdirAll(dir, config.DirMode); err != nil {
		return "", errors.Wrap(err, "create partition directory")
	}

	name := date.Format(config.PartitionDateLayout) + config.PartitionExt
	return filepath.Join(dir, name), nil
}

// ListPartitionFiles recursively enumerates every partition file under
// root. A root that does not exist yet yields an empty list, not an error.
func ListPartitionFiles(root string) ([]string, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(path) != config.PartitionExt {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "walk partition tree")
	}

	return files, nil
}

// ParsePartitionDate extracts the partition date from a file path whose
// basename must match YYYY-MM-DD.json exactly. The returned time is
// midnight UTC of that calendar date.
func ParsePartitionDate(path string) (time.Time, error) {
	base := filepath.Base(path)
	name, ok := strings.CutSuffix(base, config.PartitionExt)
	if !ok {
		return time.Time{}, errors.NewBadPartitionName(path)
	}

	date, err := time.Parse(config.PartitionDateLayout, name)
	if err != nil {
		return time.Time{}, errors.NewBadPartitionName(path)
	}

	return date, nil
}

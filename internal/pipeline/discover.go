package pipeline

import (
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/regimelab/regimebatch/internal/naming"
)

// Discover walks root, collects the regular files whose basename matches the
// data file pattern, and returns the paths sorted lexicographically for
// deterministic processing order. Symlinks are not followed: WalkDir does not
// descend into symlinked directories, and symlinked files fail the
// regular-file check.
func Discover(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if naming.MatchesDataFile(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

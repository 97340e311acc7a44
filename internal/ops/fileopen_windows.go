//go:build windows

package ops

import (
	"os"

	"github.com/hpungsan/fetchnfeed/internal/errors"
)

// openFileNoFollow opens an exchange file for writing. Windows has no
// O_NOFOLLOW; ValidatePath has already rejected symlinks.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}

// openFileNoFollowRead opens an exchange file for reading.
func openFileNoFollowRead(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("file", path)
		}
		return nil, err
	}
	return f, nil
}

package assetstores

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// localProvider serves assets straight off the filesystem. There is
// nothing to sign; the download gate streams the bytes itself.
type localProvider struct {
	root string
}

func newLocalProvider(root string) (*localProvider, error) {
	if root == "" {
		return nil, errors.New("No root directory configured for local asset store")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrap(err, "checking local asset root")
	}
	if !info.IsDir() {
		return nil, errors.Errorf("local asset root %s is not a directory", root)
	}
	return &localProvider{root: root}, nil
}

func (l *localProvider) SignURL(key string) (string, error) {
	return "", errors.New("local asset store serves bytes directly")
}

// Open resolves the key inside the configured root. Keys may not
// escape the root.
func (l *localProvider) Open(key string) (io.ReadCloser, int64, error) {
	cleaned := filepath.Clean("/" + key)
	path := filepath.Join(l.root, cleaned)
	if !strings.HasPrefix(path, filepath.Clean(l.root)+string(os.PathSeparator)) {
		return nil, 0, errors.New("file key escapes the asset root")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

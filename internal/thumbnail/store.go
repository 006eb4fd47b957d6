package thumbnail

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rohmanhakim/wikisearch/pkg/failure"
	"github.com/rohmanhakim/wikisearch/pkg/fileutil"
	"github.com/rohmanhakim/wikisearch/pkg/hashutil"
)

// Store is the port for persisted thumbnails, keyed by canonical URL.
type Store interface {
	// Load returns the stored bytes and their path, or ok=false when nothing is stored.
	Load(thumbURL string) (data []byte, path string, ok bool)
	// Save persists data for url and returns where it was written.
	Save(thumbURL string, data []byte) (string, failure.ClassifiedError)
}

// DiskStore keeps thumbnails as {dir}/thumbnails/{hash}.{ext}, where hash
// is a prefix of the URL digest and ext is taken from the URL path.
type DiskStore struct {
	dir      string
	hashAlgo hashutil.HashAlgo
}

func NewDiskStore(dir string, hashAlgo hashutil.HashAlgo) *DiskStore {
	if hashAlgo == "" {
		hashAlgo = DefaultHashAlgo
	}
	return &DiskStore{
		dir:      dir,
		hashAlgo: hashAlgo,
	}
}

func (s *DiskStore) Dir() string {
	return filepath.Join(s.dir, "thumbnails")
}

// PathFor returns the file a thumbnail URL maps to.
func (s *DiskStore) PathFor(thumbURL string) (string, failure.ClassifiedError) {
	hash, err := hashutil.ShortHash([]byte(thumbURL), s.hashAlgo, hashPrefixLen)
	if err != nil {
		return "", &ThumbnailError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseHashFailure,
		}
	}
	name := hash
	if ext := strings.ToLower(fileutil.GetFileExtension(urlPath(thumbURL))); ext != "" {
		name += "." + ext
	}
	return filepath.Join(s.Dir(), name), nil
}

func (s *DiskStore) Load(thumbURL string) ([]byte, string, bool) {
	path, err := s.PathFor(thumbURL)
	if err != nil {
		return nil, "", false
	}
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil, "", false
	}
	return data, path, true
}

func (s *DiskStore) Save(thumbURL string, data []byte) (string, failure.ClassifiedError) {
	path, err := s.PathFor(thumbURL)
	if err != nil {
		return "", err
	}
	if writeErr := fileutil.WriteFileAtomic(path, data); writeErr != nil {
		var fileErr *fileutil.FileError
		if errors.As(writeErr, &fileErr) && fileErr.Cause == fileutil.ErrCauseDiskFull {
			return "", &ThumbnailError{
				Message:   fmt.Sprintf("disk full: %s", fileErr.Message),
				Retryable: true,
				Cause:     ErrCauseDiskFull,
			}
		}
		return "", &ThumbnailError{
			Message:   fmt.Sprintf("write failed: %v", writeErr),
			Retryable: false,
			Cause:     ErrCauseWriteFailure,
		}
	}
	return path, nil
}

func urlPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Path
}

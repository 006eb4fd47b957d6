package thumbnail

import (
	"github.com/rohmanhakim/wikisearch/pkg/hashutil"
)

// Thumbnail is a downloaded (or disk cached) thumbnail image.
type Thumbnail struct {
	url      string
	path     string
	data     []byte
	fromDisk bool
}

func NewThumbnail(url string, path string, data []byte, fromDisk bool) Thumbnail {
	return Thumbnail{
		url:      url,
		path:     path,
		data:     data,
		fromDisk: fromDisk,
	}
}

// URL is the canonical thumbnail URL.
func (t Thumbnail) URL() string {
	return t.url
}

// Path is where the thumbnail lives on disk.
func (t Thumbnail) Path() string {
	return t.path
}

func (t Thumbnail) Data() []byte {
	return t.data
}

// FromDisk reports whether the bytes came from the disk cache.
func (t Thumbnail) FromDisk() bool {
	return t.fromDisk
}

type DownloadParam struct {
	userAgent   string
	maxSize     int64
	concurrency int
}

func NewDownloadParam(userAgent string, maxSize int64, concurrency int) DownloadParam {
	if concurrency < 1 {
		concurrency = 1
	}
	return DownloadParam{
		userAgent:   userAgent,
		maxSize:     maxSize,
		concurrency: concurrency,
	}
}

func (p DownloadParam) UserAgent() string {
	return p.userAgent
}

func (p DownloadParam) MaxSize() int64 {
	return p.maxSize
}

func (p DownloadParam) Concurrency() int {
	return p.concurrency
}

// Report is the outcome of FetchAll.
type Report struct {
	// Thumbnails maps a page's thumbnail URL (as given) to the result.
	Thumbnails map[string]Thumbnail
	// Missing maps a page's thumbnail URL (as given) to why it is absent.
	Missing map[string]ThumbnailErrorCause
}

func (r Report) Downloaded() int {
	n := 0
	for _, t := range r.Thumbnails {
		if !t.fromDisk {
			n++
		}
	}
	return n
}

// DefaultHashAlgo names thumbnail files.
const DefaultHashAlgo = hashutil.HashAlgoBLAKE3

// hashPrefixLen is the number of hex digits kept in file names.
const hashPrefixLen = 16

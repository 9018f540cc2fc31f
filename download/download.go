package download

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jrsteele09/go-classroom-client/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const defaultRevokeDelay = time.Second

// Fetcher performs an authenticated binary GET. *api.Client implements it.
type Fetcher interface {
	Download(ctx context.Context, path string, query url.Values) (*api.Blob, error)
}

var _ Fetcher = (*api.Client)(nil)

// Saver receives a downloaded file. tmpPath is only valid until the
// downloader removes it, so a Saver must copy or move it before returning.
type Saver interface {
	Save(ctx context.Context, tmpPath, filename string) error
}

type SaverFunc func(ctx context.Context, tmpPath, filename string) error

func (f SaverFunc) Save(ctx context.Context, tmpPath, filename string) error {
	return f(ctx, tmpPath, filename)
}

// Downloader fetches files into temporary files, hands them to a Saver and
// removes them after a short delay.
type Downloader struct {
	fetcher     Fetcher
	saver       Saver
	tempDir     string
	revokeDelay time.Duration
}

type Option func(*Downloader)

func WithRevokeDelay(d time.Duration) Option {
	return func(dl *Downloader) {
		dl.revokeDelay = d
	}
}

// WithTempDir sets where temporary files are created (default os.TempDir).
func WithTempDir(dir string) Option {
	return func(dl *Downloader) {
		dl.tempDir = dir
	}
}

func New(fetcher Fetcher, saver Saver, options ...Option) (*Downloader, error) {
	if fetcher == nil {
		return nil, errors.New("[download.New] fetcher is required")
	}
	if saver == nil {
		return nil, errors.New("[download.New] saver is required")
	}
	dl := &Downloader{
		fetcher:     fetcher,
		saver:       saver,
		revokeDelay: defaultRevokeDelay,
	}
	for _, opt := range options {
		opt(dl)
	}
	return dl, nil
}

// Result describes a completed download.
type Result struct {
	Filename string
	Size     int64
	// Revoked is closed once the temporary file has been removed.
	Revoked <-chan struct{}
}

// Fetch downloads path and passes it to the saver. fallbackName is used when
// the server does not name the file.
func (dl *Downloader) Fetch(ctx context.Context, path string, query url.Values, fallbackName string) (*Result, error) {
	blob, err := dl.fetcher.Download(ctx, path, query)
	if err != nil {
		return nil, err
	}
	defer blob.Body.Close()

	filename := sanitize(blob.Filename)
	if filename == "" {
		filename = sanitize(fallbackName)
	}
	if filename == "" {
		filename = "download"
	}

	tmp, err := os.CreateTemp(dl.tempDir, "classroom-*-"+filename)
	if err != nil {
		return nil, errors.Wrap(err, "[Downloader.Fetch] create temp file")
	}
	size, copyErr := io.Copy(tmp, blob.Body)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmp.Name())
		return nil, errors.Wrapf(firstErr(copyErr, closeErr), "[Downloader.Fetch] write %s", filename)
	}

	revoked := dl.revokeLater(tmp.Name())
	if err := dl.saver.Save(ctx, tmp.Name(), filename); err != nil {
		return nil, errors.Wrapf(err, "[Downloader.Fetch] save %s", filename)
	}

	log.Debug().Str("path", path).Str("filename", filename).Int64("size", size).Msg("downloaded")
	return &Result{Filename: filename, Size: size, Revoked: revoked}, nil
}

func (dl *Downloader) revokeLater(name string) <-chan struct{} {
	done := make(chan struct{})
	time.AfterFunc(dl.revokeDelay, func() {
		if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("file", name).Msg("cannot remove temporary download")
		}
		close(done)
	})
	return done
}

// CopyTo returns a Saver that copies downloads into dir.
func CopyTo(dir string) Saver {
	return SaverFunc(func(ctx context.Context, tmpPath, filename string) error {
		src, err := os.Open(tmpPath)
		if err != nil {
			return err
		}
		defer src.Close()

		dst, err := os.Create(filepath.Join(dir, filename))
		if err != nil {
			return err
		}
		if _, err := io.Copy(dst, src); err != nil {
			dst.Close()
			return err
		}
		return dst.Close()
	})
}

func sanitize(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

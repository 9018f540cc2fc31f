package download_test

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-classroom-client/api"
	"github.com/jrsteele09/go-classroom-client/download"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	filename string
	content  []byte
	err      error
	paths    []string
}

func (f *fakeFetcher) Download(ctx context.Context, path string, query url.Values) (*api.Blob, error) {
	f.paths = append(f.paths, path)
	if f.err != nil {
		return nil, f.err
	}
	return &api.Blob{
		Body:     io.NopCloser(bytes.NewReader(f.content)),
		Filename: f.filename,
		Size:     int64(len(f.content)),
	}, nil
}

func TestFetchSavesAndRevokes(t *testing.T) {
	fetcher := &fakeFetcher{filename: "scores.xlsx", content: []byte("sheet")}
	var tmpPath string
	saver := download.SaverFunc(func(ctx context.Context, path, filename string) error {
		tmpPath = path
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, "sheet", string(data))
		require.Equal(t, "scores.xlsx", filename)
		return nil
	})

	dl, err := download.New(fetcher, saver, download.WithRevokeDelay(10*time.Millisecond), download.WithTempDir(t.TempDir()))
	require.NoError(t, err)

	res, err := dl.Fetch(context.Background(), "/classes/1/scores/export", nil, "")
	require.NoError(t, err)
	require.Equal(t, int64(5), res.Size)

	select {
	case <-res.Revoked:
	case <-time.After(time.Second):
		t.Fatal("temporary file not revoked")
	}
	_, err = os.Stat(tmpPath)
	require.True(t, os.IsNotExist(err))
}

func TestFetchUsesFallbackName(t *testing.T) {
	fetcher := &fakeFetcher{content: []byte("x")}
	dir := t.TempDir()
	dl, err := download.New(fetcher, download.CopyTo(dir), download.WithRevokeDelay(time.Millisecond))
	require.NoError(t, err)

	res, err := dl.Fetch(context.Background(), "/assignments/3/file", nil, "../brief.pdf")
	require.NoError(t, err)
	require.Equal(t, "brief.pdf", res.Filename)

	data, err := os.ReadFile(filepath.Join(dir, "brief.pdf"))
	require.NoError(t, err)
	require.Equal(t, "x", string(data))
	<-res.Revoked
}

func TestFetchErrorSkipsSaver(t *testing.T) {
	fetcher := &fakeFetcher{err: &api.HTTPError{Method: "GET", Path: "/submissions/1/file", Status: 404}}
	called := false
	dl, err := download.New(fetcher, download.SaverFunc(func(context.Context, string, string) error {
		called = true
		return nil
	}))
	require.NoError(t, err)

	_, err = dl.Fetch(context.Background(), "/submissions/1/file", nil, "")
	require.Error(t, err)
	require.False(t, called)
}

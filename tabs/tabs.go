// Package tabs wires tab.Controller to each classroom feature: every tab fixes
// its loader and exposes the mutations its page offers.
package tabs

import (
	"context"

	"github.com/jrsteele09/go-classroom-client/classroom"
	"github.com/jrsteele09/go-classroom-client/download"
	clienterrors "github.com/jrsteele09/go-classroom-client/internal/errors"
	"github.com/jrsteele09/go-classroom-client/tab"
	"github.com/pkg/errors"
)

// Deps are shared by every tab.
type Deps struct {
	Service    *classroom.Service
	Downloader *download.Downloader // optional; without it downloads fail
	Options    []tab.Option
}

func (d Deps) validate(name string) error {
	if d.Service == nil {
		return errors.Errorf("[tabs.%s] service is required", name)
	}
	return nil
}

func (d Deps) download(ctx context.Context, path, fallback string) (*download.Result, error) {
	if d.Downloader == nil {
		return nil, errors.Wrap(clienterrors.ErrUnsupported, "[tabs] no downloader configured")
	}
	return d.Downloader.Fetch(ctx, path, nil, fallback)
}

func newTab[T any](d Deps, name string, loader tab.Loader[T], extra ...tab.Option) (*tab.Controller[T], error) {
	if err := d.validate(name); err != nil {
		return nil, err
	}
	opts := append(append([]tab.Option{}, d.Options...), extra...)
	return tab.New(name, loader, opts...)
}

func listOf[T any](fn func(ctx context.Context, id int64) ([]T, error)) tab.Loader[T] {
	return tab.FromList(func(ctx context.Context, scope tab.Scope) ([]T, error) {
		return fn(ctx, scope.ID)
	})
}

// discard drops the result of a call that returns one.
func discard[T any](_ T, err error) error {
	return err
}

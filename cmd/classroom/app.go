package main

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"path/filepath"

	"github.com/jrsteele09/go-classroom-client/api"
	"github.com/jrsteele09/go-classroom-client/classroom"
	"github.com/jrsteele09/go-classroom-client/download"
	"github.com/jrsteele09/go-classroom-client/fakebackend"
	"github.com/jrsteele09/go-classroom-client/internal/config"
	clienterrors "github.com/jrsteele09/go-classroom-client/internal/errors"
	"github.com/jrsteele09/go-classroom-client/internal/logging"
	"github.com/jrsteele09/go-classroom-client/sessions"
	"github.com/jrsteele09/go-classroom-client/storage"
	"github.com/jrsteele09/go-classroom-client/storage/filestore"
	"github.com/jrsteele09/go-classroom-client/storage/memstore"
	"github.com/jrsteele09/go-classroom-client/tab"
	"github.com/jrsteele09/go-classroom-client/tabs"
	"github.com/jrsteele09/go-classroom-client/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const sessionFile = "session.json"

type globalFlags struct {
	baseURL  string
	envFile  string
	logLevel string
	output   string
	saveDir  string
	yes      bool
	demo     string
	banner   bool
}

// app holds everything a command needs. It is built once per invocation.
type app struct {
	cfg       config.Config
	out       *printer
	in        *bufio.Reader
	session   *sessions.Manager
	service   *classroom.Service
	downloads *download.Downloader
	confirm   tab.Confirmer
	demo      *fakebackend.Backend
}

func newApp(ctx context.Context, flags *globalFlags, in io.Reader, out io.Writer) (*app, error) {
	opts := []config.Option{config.WithDotEnv(flags.envFile)}
	if flags.logLevel != "" {
		opts = append(opts, config.WithValue("log_level", flags.logLevel))
	}
	if flags.baseURL != "" {
		opts = append(opts, config.WithValue("base_url", flags.baseURL))
	}

	var demo *fakebackend.Backend
	if flags.demo != "" {
		demo = fakebackend.New()
		demo.Seed()
		opts = append(opts, config.WithValue("base_url", demo.URL()), config.WithValue("push_url", demo.PushURL()))
	}

	cfg := config.New(opts...)
	logging.Setup(cfg.GetEnv(), cfg.GetLogLevel())

	p, err := newPrinter(out, flags.output)
	if err != nil {
		return nil, err
	}

	var store storage.Store
	if demo != nil {
		store = memstore.New()
	} else if store, err = openStore(cfg); err != nil {
		return nil, err
	}

	tokens := sessions.NewTokenStore(store)
	httpClient := &http.Client{Timeout: cfg.GetRequestTimeout(), Transport: http.DefaultTransport}
	validator := sessions.NewValidator(cfg.GetBaseURL(),
		sessions.WithTransport(httpClient.Transport),
		sessions.WithValidatorTimeout(cfg.GetRequestTimeout()),
		sessions.WithValidatePath(cfg.GetValidatePath()),
	)
	manager, err := sessions.NewManager(tokens, validator,
		sessions.WithValidationCacheTTL(cfg.GetValidationCacheTTL()),
		sessions.WithStartupTimeout(cfg.GetStartupValidationTimeout()),
	)
	if err != nil {
		return nil, err
	}

	client, err := api.NewClient(cfg.GetBaseURL(), manager.TokenSource(), api.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}
	service, err := classroom.NewService(client)
	if err != nil {
		return nil, err
	}

	saveDir := flags.saveDir
	if saveDir == "" {
		saveDir = "."
	}
	downloads, err := download.New(client, download.CopyTo(saveDir), download.WithRevokeDelay(cfg.GetDownloadRevokeDelay()))
	if err != nil {
		return nil, err
	}

	reader := bufio.NewReader(in)
	a := &app{
		cfg:       cfg,
		out:       p,
		in:        reader,
		session:   manager,
		service:   service,
		downloads: downloads,
		confirm:   promptConfirmer(reader, out),
		demo:      demo,
	}
	if flags.yes {
		a.confirm = tab.Approve
	}

	manager.Init(ctx)
	if err := manager.WaitInitialized(ctx); err != nil {
		return nil, err
	}
	if demo != nil {
		if err := a.demoLogin(ctx, flags.demo); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func openStore(cfg config.Config) (storage.Store, error) {
	var opts []filestore.Option
	if hexKey := cfg.GetStorageKey(); hexKey != "" {
		key, err := filestore.ParseKey(hexKey)
		if err != nil {
			return nil, err
		}
		opts = append(opts, filestore.WithKey(key))
	}
	return filestore.Open(filepath.Join(cfg.GetDataFolder(), sessionFile), opts...)
}

func (a *app) demoLogin(ctx context.Context, username string) error {
	result, err := a.service.SignIn(ctx, classroom.Credentials{Username: username, Password: "Password1"})
	if err != nil {
		return errors.Wrapf(err, "demo sign-in as %q", username)
	}
	a.session.Login(result.Token, result.User, users.ParseRoles(result.Roles))
	return nil
}

// requireSession fails unless the stored session is still accepted by the
// backend.
func (a *app) requireSession(ctx context.Context) error {
	if a.session.ValidateSession(ctx) {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Wrap(clienterrors.ErrUnauthorized, "not signed in, run `classroom login`")
}

func (a *app) deps() tabs.Deps {
	return tabs.Deps{
		Service:    a.service,
		Downloader: a.downloads,
		Options: []tab.Option{
			tab.WithConfirmer(a.confirm),
			tab.WithOnUnauthorized(a.session.Invalidate),
			tab.WithFlashTimeout(a.cfg.GetFlashTimeout()),
		},
	}
}

func (a *app) close() {
	if a.demo != nil {
		a.demo.Close()
	}
	log.Debug().Msg("done")
}

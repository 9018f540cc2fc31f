package main

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-classroom-client/api"
	"github.com/jrsteele09/go-classroom-client/classroom"
	clienterrors "github.com/jrsteele09/go-classroom-client/internal/errors"
	"github.com/jrsteele09/go-classroom-client/notify"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func noticeRows(notices []classroom.Notice) [][]string {
	rows := make([][]string, 0, len(notices))
	for _, n := range notices {
		rows = append(rows, []string{id(n.ID), n.CreateAt, n.Type, yesNo(n.Read), n.Content})
	}
	return rows
}

var noticeHeaders = []string{"ID", "CREATED", "TYPE", "READ", "CONTENT"}

// noticeFeed is a notice channel that follows the session.
type noticeFeed struct {
	*notify.Channel
	stop func()
}

func (f *noticeFeed) Close() {
	f.stop()
	f.Channel.Close()
}

// openFeed starts a notice channel for the signed in user. A 401 on any fetch
// ends the session, which in turn closes the push subscription. When only push
// is unavailable the feed is returned with an error matching
// ErrPushUnavailable.
func openFeed(ctx context.Context, a *app) (*noticeFeed, error) {
	subscriber := notify.NewWebsocketSubscriber(a.cfg.GetPushURL(), a.session.TokenSource())
	channel, err := notify.NewChannel(a.service, subscriber,
		notify.WithDebounce(a.cfg.GetNoticeDebounce()),
		notify.WithOnUnauthorized(a.session.Invalidate),
	)
	if err != nil {
		return nil, err
	}
	stop, err := channel.Follow(ctx, a.session)
	feed := &noticeFeed{Channel: channel, stop: stop}
	switch {
	case err == nil:
		return feed, nil
	case clienterrors.Is(err, clienterrors.ErrPushUnavailable):
		return feed, err
	default:
		feed.Close()
		return nil, errors.New(api.UserMessage(err, ""))
	}
}

func (r *root) noticesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notices",
		Short: "List your notices",
		Args:  cobra.NoArgs,
		RunE: r.authed(func(ctx context.Context, a *app, _ []string) error {
			user, ok := a.session.User()
			if !ok {
				return clienterrors.ErrUnauthorized
			}
			notices, err := a.service.ListNotices(ctx, user.ID)
			if err != nil {
				if clienterrors.Is(err, clienterrors.ErrUnauthorized) {
					a.session.Invalidate(err)
				}
				return errors.New(api.UserMessage(err, ""))
			}
			return a.out.list(notices, noticeHeaders, noticeRows(notices))
		}),
	}

	read := &cobra.Command{
		Use:   "read <notice-id>",
		Short: "Mark a notice as read",
		Args:  cobra.ExactArgs(1),
		RunE: r.authed(func(ctx context.Context, a *app, args []string) error {
			noticeID, err := parseID(args[0])
			if err != nil {
				return err
			}
			feed, err := openFeed(ctx, a)
			if err != nil && feed == nil {
				return err
			}
			defer feed.Close()
			if err := feed.MarkAsRead(ctx, noticeID); err != nil {
				return errors.New(api.UserMessage(err, ""))
			}
			a.out.message("Marked as read. %d unread.", feed.UnreadCount())
			return nil
		}),
	}

	watch := &cobra.Command{
		Use:   "watch",
		Short: "Follow notices as they arrive until interrupted",
		Args:  cobra.NoArgs,
		RunE: r.authed(func(ctx context.Context, a *app, _ []string) error {
			feed, err := openFeed(ctx, a)
			if err != nil {
				if feed == nil {
					return err
				}
				// push is optional, the list still loads
				a.out.message("Live updates unavailable: %s", api.UserMessage(err, "cannot subscribe"))
			}
			defer feed.Close()

			updates := make(chan struct{}, 1)
			unwatch := feed.Watch(func() {
				select {
				case updates <- struct{}{}:
				default:
				}
			})
			defer unwatch()

			seen := map[int64]bool{}
			show := func() {
				for _, n := range feed.Notices() {
					if seen[n.ID] {
						continue
					}
					seen[n.ID] = true
					fmt.Fprintf(r.out, "[%s] %s\n", n.Type, n.Content)
				}
				a.out.message("%d unread", feed.UnreadCount())
			}
			show()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-updates:
					if !a.session.State().LoggedIn() {
						return errors.Wrap(clienterrors.ErrUnauthorized, "session ended, run `classroom login`")
					}
					if err := feed.Err(); err != nil {
						a.out.message("Refresh failed: %s", api.UserMessage(err, ""))
						continue
					}
					show()
				}
			}
		}),
	}
	cmd.AddCommand(read, watch)
	return cmd
}

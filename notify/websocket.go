package notify

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	clienterrors "github.com/jrsteele09/go-classroom-client/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// DefaultNoticesPath is the push endpoint, relative to the push URL.
const DefaultNoticesPath = "/ws/notices"

// WebsocketSubscriber subscribes to notice pushes over a websocket. A dropped
// connection is not re-established; the next SetUser opens a new one.
type WebsocketSubscriber struct {
	pushURL string
	tokens  oauth2.TokenSource
	dialer  *websocket.Dialer
}

var _ Subscriber = (*WebsocketSubscriber)(nil)

func NewWebsocketSubscriber(pushURL string, tokens oauth2.TokenSource) *WebsocketSubscriber {
	return &WebsocketSubscriber{
		pushURL: strings.TrimRight(pushURL, "/"),
		tokens:  tokens,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

func (s *WebsocketSubscriber) Subscribe(ctx context.Context, userID int64, onEvent func()) (Subscription, error) {
	tok, err := s.tokens.Token()
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	tok.SetAuthHeader(&http.Request{Header: header})

	target := s.pushURL + DefaultNoticesPath + "?" + url.Values{"userId": {strconv.FormatInt(userID, 10)}}.Encode()
	conn, resp, err := s.dialer.DialContext(ctx, target, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, clienterrors.Wrapf(clienterrors.ErrUnauthorized, "[WebsocketSubscriber.Subscribe] %v", err)
		}
		return nil, clienterrors.Wrapf(err, "[WebsocketSubscriber.Subscribe] dial")
	}

	sub := &wsSubscription{conn: conn, done: make(chan struct{})}
	go sub.readLoop(userID, onEvent)
	return sub, nil
}

type wsSubscription struct {
	conn      *websocket.Conn
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func (s *wsSubscription) readLoop(userID int64, onEvent func()) {
	defer close(s.done)
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Int64("user_id", userID).Msg("push subscription ended")
			}
			return
		}
		onEvent()
	}
}

// Close sends a close frame, drops the connection and waits for the reader
// to stop.
func (s *wsSubscription) Close() error {
	s.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		s.closeErr = s.conn.Close()
		<-s.done
	})
	return s.closeErr
}

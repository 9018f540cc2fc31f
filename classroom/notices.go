package classroom

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jrsteele09/go-classroom-client/api"
	"github.com/pkg/errors"
)

func (s *Service) ListNotices(ctx context.Context, userID int64) ([]Notice, error) {
	query := url.Values{"userId": {strconv.FormatInt(userID, 10)}}
	notices, err := api.Get[[]Notice](ctx, s.client, "/notices", query)
	if err != nil {
		return nil, errors.Wrapf(err, "[Service.ListNotices] user %d", userID)
	}
	return notices, nil
}

func (s *Service) MarkNoticeRead(ctx context.Context, noticeID int64) error {
	return s.do(ctx, http.MethodPut, fmt.Sprintf("/notices/%d/read", noticeID), nil, "[Service.MarkNoticeRead]")
}

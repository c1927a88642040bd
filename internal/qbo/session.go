package qbo

import (
	"context"
	"errors"
	"net/http"
	"net/url"
)

// RefreshFunc exchanges expired credentials for a fresh access token.
type RefreshFunc func(ctx context.Context) (string, error)

// BearerSession is a Session backed by a bearer token and a pluggable
// refresh callback.
type BearerSession struct {
	client  *http.Client
	token   string
	refresh RefreshFunc
}

// NewBearerSession creates a session with an initial access token. The
// refresh callback may be nil, in which case Refresh fails and a 401
// propagates after the first attempt.
func NewBearerSession(token string, refresh RefreshFunc) *BearerSession {
	return &BearerSession{
		client:  http.DefaultClient,
		token:   token,
		refresh: refresh,
	}
}

// Get issues an authorized GET request.
func (s *BearerSession) Get(ctx context.Context, rawurl string, params url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return nil, err
	}
	req.URL.RawQuery = params.Encode()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	return s.client.Do(req)
}

// Refresh replaces the access token via the refresh callback.
func (s *BearerSession) Refresh(ctx context.Context) error {
	if s.refresh == nil {
		return errors.New("no credential refresh configured")
	}
	token, err := s.refresh(ctx)
	if err != nil {
		return err
	}
	s.token = token
	return nil
}

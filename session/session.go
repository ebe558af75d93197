/*
 * Copyright 2019 gocas authors and its licensors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package session

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nameof/gocas/cache"
)

const (
	// PersistentInterval is the sentinel interval value marking a session
	// which never expires.
	PersistentInterval = -1

	// DefaultMaxInactiveInterval is the expiry adopted by sessions whose
	// token has no interval stored yet.
	DefaultMaxInactiveInterval = 30 * 60

	// cacheExpireKey is the attribute name holding maxInactiveInterval. Once
	// SetMaxInactiveInterval is called the value is written to the cache
	// under this key right away.
	cacheExpireKey = "maxInactiveInterval"

	// logoutURLKey is the attribute name holding the accumulated client
	// logout URLs as a JSON string list.
	logoutURLKey = "logoutUrl"
)

// ErrSessionInvalidated is the error returned when a Session is used after
// it was invalidated. Operating on a destroyed session is a programming
// error and never ignored silently.
var ErrSessionInvalidated = errors.New("session has been invalidated")

// A Session is a request scoped view on the attributes stored in the shared
// cache under one token. Attribute reads and writes round-trip the cache
// directly since any number of gocas instances may operate on the same token
// concurrently. Only the expiry is buffered in the view and flushed once per
// request with Commit.
type Session struct {
	token string
	dao   cache.Dao

	maxInactiveInterval int
	persisted           bool
	invalid             bool

	logger logrus.FieldLogger
}

// New creates a Session view for the provided token, adopting the expiry
// information currently stored in the cache if there is any.
func New(ctx context.Context, dao cache.Dao, token string, logger logrus.FieldLogger) (*Session, error) {
	s := &Session{
		token: token,
		dao:   dao,

		maxInactiveInterval: DefaultMaxInactiveInterval,

		logger: logger,
	}

	value, err := dao.GetAttribute(ctx, token, cacheExpireKey)
	switch err {
	case nil:
		interval, parseErr := strconv.Atoi(value)
		if parseErr != nil {
			s.logger.WithError(parseErr).WithField("token", token).Warnln("session has invalid interval attribute, using default")
			break
		}
		if interval == PersistentInterval {
			// The token was already made persistent by an earlier commit.
			s.persisted = true
		}
		s.maxInactiveInterval = interval
	case cache.ErrNoSuchAttribute:
		// Fresh token, keep default.
	default:
		return nil, err
	}

	return s, nil
}

// Token returns the accociated session's token.
func (s *Session) Token() string {
	return s.token
}

func (s *Session) checkValid() error {
	if s.invalid {
		return ErrSessionInvalidated
	}
	return nil
}

// GetAttribute reads the named attribute from the cache.
func (s *Session) GetAttribute(ctx context.Context, name string) (string, error) {
	if err := s.checkValid(); err != nil {
		return "", err
	}

	return s.dao.GetAttribute(ctx, s.token, name)
}

// SetAttribute writes the named attribute to the cache.
func (s *Session) SetAttribute(ctx context.Context, name string, value string) error {
	if err := s.checkValid(); err != nil {
		return err
	}

	return s.dao.SetAttribute(ctx, s.token, name, value)
}

// AttributeNames enumerates the attribute names stored for the session.
func (s *Session) AttributeNames(ctx context.Context) ([]string, error) {
	if err := s.checkValid(); err != nil {
		return nil, err
	}

	return s.dao.AttributeNames(ctx, s.token)
}

// GetObject reads the named attribute and decodes its JSON value into dst.
func (s *Session) GetObject(ctx context.Context, name string, dst interface{}) error {
	value, err := s.GetAttribute(ctx, name)
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(value), dst)
}

// SetObject encodes src as JSON and stores it as the named attribute.
func (s *Session) SetObject(ctx context.Context, name string, src interface{}) error {
	value, err := json.Marshal(src)
	if err != nil {
		return err
	}

	return s.SetAttribute(ctx, name, string(value))
}

// MaxInactiveInterval returns the session expiry in seconds as adopted by
// this view.
func (s *Session) MaxInactiveInterval() int {
	return s.maxInactiveInterval
}

// SetMaxInactiveInterval updates the session expiry in seconds. Unlike other
// attribute writes the value is written to the cache right away in addition
// to the view, so concurrent instances sharing the token observe interval
// changes without waiting for a commit.
func (s *Session) SetMaxInactiveInterval(ctx context.Context, interval int) error {
	if err := s.checkValid(); err != nil {
		return err
	}

	s.maxInactiveInterval = interval

	return s.dao.SetAttribute(ctx, s.token, cacheExpireKey, strconv.Itoa(interval))
}

// LogoutURLs returns the client logout URLs accumulated for the session in
// insertion order.
func (s *Session) LogoutURLs(ctx context.Context) ([]string, error) {
	if err := s.checkValid(); err != nil {
		return nil, err
	}

	value, err := s.dao.GetAttribute(ctx, s.token, logoutURLKey)
	if err == cache.ErrNoSuchAttribute {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var urls []string
	if err := json.Unmarshal([]byte(value), &urls); err != nil {
		return nil, err
	}

	return urls, nil
}

// AppendLogoutURL appends the provided URL to the session's logout URL list.
// URLs are never deduplicated or reordered - a client which attaches twice
// is notified twice.
func (s *Session) AppendLogoutURL(ctx context.Context, logoutURL string) error {
	urls, err := s.LogoutURLs(ctx)
	if err != nil {
		return err
	}

	urls = append(urls, logoutURL)
	value, err := json.Marshal(urls)
	if err != nil {
		return err
	}

	return s.dao.SetAttribute(ctx, s.token, logoutURLKey, string(value))
}

// Commit flushes the session expiry to the cache. It is called exactly once
// per request, after all attribute mutations of that request are done. A
// persistent interval results in a single persist call for the token's
// lifetime, any other interval refreshes the time to live on every commit
// to implement sliding expiration. Commit on an invalidated session does
// nothing.
func (s *Session) Commit(ctx context.Context) error {
	if s.invalid {
		return nil
	}

	if s.maxInactiveInterval == PersistentInterval {
		if s.persisted {
			return nil
		}
		if err := s.dao.SetPersist(ctx, s.token); err != nil {
			return err
		}
		s.persisted = true
		return nil
	}

	return s.dao.SetExpire(ctx, s.token, time.Duration(s.maxInactiveInterval)*time.Second)
}

// Invalidate destroys the session, removing the token with all attributes
// from the cache. Any further use of the view fails with
// ErrSessionInvalidated, including a second Invalidate.
func (s *Session) Invalidate(ctx context.Context) error {
	if err := s.checkValid(); err != nil {
		return err
	}

	s.invalid = true

	return s.dao.Del(ctx, s.token)
}

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
	"net/http"

	"github.com/sirupsen/logrus"
	"stash.kopano.io/kgol/rndm"

	"github.com/nameof/gocas/cache"
	"github.com/nameof/gocas/config"
)

const (
	defaultCookieName = "gocas-session"
	tokenLength       = 32
)

// Config defines a Manager's configuration settings.
type Config struct {
	Config *config.Config

	Dao        cache.Dao
	CookieName string
}

// A Manager issues session tokens and resolves Session views from incoming
// HTTP requests via the session cookie.
type Manager struct {
	dao        cache.Dao
	cookieName string

	logger logrus.FieldLogger
}

// NewManager creates a Manager from the provided parameters.
func NewManager(c *Config) *Manager {
	cookieName := c.CookieName
	if cookieName == "" {
		cookieName = defaultCookieName
	}

	return &Manager{
		dao:        c.Dao,
		cookieName: cookieName,

		logger: c.Config.Logger,
	}
}

// IssueToken creates a new random session token.
func (m *Manager) IssueToken() string {
	return rndm.GenerateRandomString(tokenLength)
}

// Lookup creates a Session view for the provided token.
func (m *Manager) Lookup(ctx context.Context, token string) (*Session, error) {
	return New(ctx, m.dao, token, m.logger)
}

// Exists reports whether the provided token has any state in the cache.
func (m *Manager) Exists(ctx context.Context, token string) (bool, error) {
	return m.dao.Exists(ctx, token)
}

// FromRequest resolves the Session view for the request's session cookie. It
// returns nil without error when the request carries no session cookie.
func (m *Manager) FromRequest(ctx context.Context, req *http.Request) (*Session, error) {
	cookie, err := req.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	return m.Lookup(ctx, cookie.Value)
}

// GetOrCreate resolves the request's session like FromRequest, creating a
// fresh token and setting the session cookie when the request has none yet.
func (m *Manager) GetOrCreate(ctx context.Context, rw http.ResponseWriter, req *http.Request) (*Session, error) {
	s, err := m.FromRequest(ctx, req)
	if err != nil || s != nil {
		return s, err
	}

	token := m.IssueToken()
	m.SetCookie(rw, token, 0)

	return m.Lookup(ctx, token)
}

// SetCookie sets the session cookie to the provided token. A maxAge of 0
// yields a browser session cookie.
func (m *Manager) SetCookie(rw http.ResponseWriter, token string, maxAge int) {
	cookie := http.Cookie{
		Name:  m.cookieName,
		Value: token,

		Path:     "/",
		HttpOnly: true,
		MaxAge:   maxAge,
	}
	http.SetCookie(rw, &cookie)
}

// ClearCookie removes the session cookie.
func (m *Manager) ClearCookie(rw http.ResponseWriter) {
	cookie := http.Cookie{
		Name: m.cookieName,

		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	}
	http.SetCookie(rw, &cookie)
}

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

package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/nameof/gocas/identity"
	"github.com/nameof/gocas/mq"
	"github.com/nameof/gocas/session"
	"github.com/nameof/gocas/utils"
)

const (
	// rememberLoginStateTime is the expiry applied to session and cookie
	// when the user requests to stay logged in, 15 days in seconds.
	rememberLoginStateTime = 15 * 24 * 60 * 60

	// Parameter names of the ticket handshake.
	ticketKey    = "token"
	returnURLKey = "returnUrl"
	logoutURLKey = "logoutUrl"

	// userKey is the session attribute holding the authenticated user.
	userKey = "user"
)

// Provider implements the identity server side of the single sign-on
// protocol with handlers for login, ticket validation and global logout.
type Provider struct {
	sessions *session.Manager
	backend  identity.Backend
	sender   mq.Sender

	limiter *logonLimiter

	logger logrus.FieldLogger
}

// NewProvider creates a Provider from the provided parameters.
func NewProvider(c *Config) (*Provider, error) {
	if c.Sessions == nil || c.Backend == nil || c.Sender == nil {
		return nil, fmt.Errorf("provider requires sessions, backend and sender")
	}

	return &Provider{
		sessions: c.Sessions,
		backend:  c.Backend,
		sender:   c.Sender,

		limiter: newLogonLimiter(),

		logger: c.Config.Logger,
	}, nil
}

// AddRoutes registers the Provider's handlers on the provided router. The
// token validation endpoints are called server to server by client sites
// from other origins and thus get CORS handling.
func (p *Provider) AddRoutes(ctx context.Context, router *mux.Router) {
	corsHandler := cors.AllowAll()

	router.HandleFunc("/", p.IndexHandler).Methods(http.MethodGet)
	router.HandleFunc("/login", p.LoginHandler).Methods(http.MethodGet)
	router.HandleFunc("/processLogin", p.ProcessLoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/logout", p.LogoutHandler).Methods(http.MethodGet, http.MethodPost)
	router.Handle("/validatetoken", corsHandler.Handler(http.HandlerFunc(p.ValidateTokenHandler))).Methods(http.MethodPost, http.MethodOptions)
	router.Handle("/verifyQRCodeLogin", corsHandler.Handler(http.HandlerFunc(p.VerifyQRCodeLoginHandler))).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/processQRCodeLogin", p.ProcessQRCodeLoginHandler).Methods(http.MethodPost)
}

// ErrorPage writes an error page to the provided ResponseWriter.
func (p *Provider) ErrorPage(rw http.ResponseWriter, code int, message string) {
	if message == "" {
		message = http.StatusText(code)
	}

	http.Error(rw, fmt.Sprintf("%d %s", code, message), code)
}

// sessionUser reads the authenticated user from the provided session. It
// returns nil when the session holds no user.
func (p *Provider) sessionUser(ctx context.Context, s *session.Session) *identity.User {
	var user identity.User
	if err := s.GetObject(ctx, userKey, &user); err != nil {
		return nil
	}

	return &user
}

// backToClient redirects the browser back to the client site's return URL,
// carrying the global session token as the ticket parameter.
func (p *Provider) backToClient(rw http.ResponseWriter, returnURL string, token string) {
	uri, err := url.Parse(returnURL)
	if err != nil {
		p.ErrorPage(rw, http.StatusBadRequest, "invalid returnUrl")
		return
	}

	params := struct {
		Token string `url:"token"`
	}{token}

	if err := utils.WriteRedirect(rw, http.StatusFound, uri, params); err != nil {
		p.logger.WithError(err).Errorln("provider failed to write client redirect")
		p.ErrorPage(rw, http.StatusInternalServerError, "")
	}
}

func (p *Provider) renderLogin(rw http.ResponseWriter, data *loginTemplateData) {
	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := loginTemplate.Execute(rw, data); err != nil {
		p.logger.WithError(err).Errorln("provider failed to render login page")
	}
}

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

package client

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// AddRoutes registers the Client's logout callback on the provided router.
func (c *Client) AddRoutes(ctx context.Context, router *mux.Router) {
	router.HandleFunc(c.logoutPath, c.LogoutCallbackHandler).Methods(http.MethodPost)
}

// requestState derives the sign-on state of the provided request.
func (c *Client) requestState(ls LocalSession, req *http.Request) State {
	if ls.Subject() != "" {
		return StateAuthenticated
	}
	if req.URL.Query().Get(ticketKey) != "" {
		return StateAwaitingTicket
	}

	return StateUnauthenticated
}

// Handler returns a middleware which enforces sign-on for the wrapped
// handler. Requests without sign-on are redirected to the identity server,
// requests returning with a ticket get it validated and stripped from the
// address before the signed-on request reaches the wrapped handler.
func (c *Client) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		ls, err := c.sessions.FromRequest(rw, req)
		if err != nil {
			c.logger.WithError(err).Errorln("client failed to resolve local session")
			http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		switch c.requestState(ls, req) {
		case StateAuthenticated:
			next.ServeHTTP(rw, req)

		case StateAwaitingTicket:
			token := req.URL.Query().Get(ticketKey)
			result, err := c.ValidateToken(req.Context(), token)
			if err != nil {
				c.logger.WithError(err).Errorln("client failed to validate ticket")
				http.Error(rw, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
				return
			}
			if !result.State {
				c.logger.WithField("state", StateFailed).Debugln("client ticket rejected")
				http.Error(rw, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}

			ls.SetSubject(result.Subject)
			c.registry.Attach(result.GlobalSessionID, ls)
			c.logger.WithFields(logrus.Fields{
				"subject": result.Subject,
				"session": ls.ID(),
			}).Debugln("client signed on")

			// Redirect to the same address with the ticket removed, so
			// it cannot leak through history or referrers.
			clean := *req.URL
			query := clean.Query()
			query.Del(ticketKey)
			clean.RawQuery = query.Encode()
			http.Redirect(rw, req, clean.String(), http.StatusFound)

		default:
			if err := c.LoginRedirect(rw, req); err != nil {
				c.logger.WithError(err).Errorln("client failed to write login redirect")
				http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}
	})
}

// LogoutCallbackHandler implements the HTTP handler the identity server's
// logout fan-out posts to. The posted token selects the local session to
// destroy. The response is 200 even for unknown tokens, a second delivery
// of the same broadcast finds nothing to do and must not report failure.
func (c *Client) LogoutCallbackHandler(rw http.ResponseWriter, req *http.Request) {
	if err := req.ParseForm(); err != nil {
		http.Error(rw, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	token := req.PostForm.Get(ticketKey)
	if token != "" {
		if ls, ok := c.registry.Lookup(token); ok {
			ls.Invalidate()
			c.registry.Detach(token)
			c.logger.WithField("session", ls.ID()).Debugln("client session logged out by broadcast")
		}
	}

	rw.WriteHeader(http.StatusOK)
}

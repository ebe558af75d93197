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
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/nameof/gocas/identity"
	"github.com/nameof/gocas/mq"
	"github.com/nameof/gocas/session"
	"github.com/nameof/gocas/utils"
)

// A logonRequest is the form data as sent to the processLogin endpoint.
type logonRequest struct {
	Username   string `schema:"username"`
	Password   string `schema:"password"`
	RememberMe bool   `schema:"rememberMe"`
	ReturnURL  string `schema:"returnUrl"`
	LogoutURL  string `schema:"logoutUrl"`
}

// A validateTokenResponse holds the response of the validatetoken endpoint.
type validateTokenResponse struct {
	State           bool           `json:"state"`
	Subject         string         `json:"subject,omitempty"`
	GlobalSessionID string         `json:"globalSessionId,omitempty"`
	User            *identity.User `json:"user,omitempty"`
}

// LoginHandler implements the HTTP handler for the login page. Requests of
// already authenticated users with a complete SSO context directly register
// the client's logout URL and return the browser to the client site with
// the ticket.
func (p *Provider) LoginHandler(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	query := req.URL.Query()
	returnURL := query.Get(returnURLKey)
	logoutURL := query.Get(logoutURLKey)

	s, err := p.sessions.FromRequest(ctx, req)
	if err != nil {
		p.logger.WithError(err).Errorln("provider failed to resolve session")
		p.ErrorPage(rw, http.StatusInternalServerError, "")
		return
	}
	if s != nil {
		if user := p.sessionUser(ctx, s); user != nil {
			if returnURL != "" && logoutURL != "" {
				p.logger.WithFields(logrus.Fields{
					"user":      user.Username,
					"returnUrl": returnURL,
					"logoutUrl": logoutURL,
				}).Debugln("provider client site login")

				if err := s.AppendLogoutURL(ctx, logoutURL); err != nil {
					p.logger.WithError(err).Errorln("provider failed to store logout URL")
					p.ErrorPage(rw, http.StatusInternalServerError, "")
					return
				}
				if err := s.Commit(ctx); err != nil {
					p.logger.WithError(err).Errorln("provider session commit failed")
					p.ErrorPage(rw, http.StatusInternalServerError, "")
					return
				}
				p.backToClient(rw, returnURL, s.Token())
				return
			}

			// Duplicate login without complete SSO context is not allowed.
			if err := s.Commit(ctx); err != nil {
				p.logger.WithError(err).Errorln("provider session commit failed")
				p.ErrorPage(rw, http.StatusInternalServerError, "")
				return
			}
			http.Redirect(rw, req, "/", http.StatusFound)
			return
		}
	}

	// Return address and logout address travel in form hidden fields.
	p.renderLogin(rw, &loginTemplateData{
		ReturnURL: returnURL,
		LogoutURL: logoutURL,
	})
}

// ProcessLoginHandler implements the HTTP handler processing the login form.
func (p *Provider) ProcessLoginHandler(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	if err := req.ParseForm(); err != nil {
		p.ErrorPage(rw, http.StatusBadRequest, "failed to parse form data")
		return
	}
	var lr logonRequest
	if err := decodeForm(&lr, req.PostForm); err != nil {
		p.ErrorPage(rw, http.StatusBadRequest, "failed to decode form data")
		return
	}

	if !p.limiter.allow(lr.Username) {
		logonAttempts.WithLabelValues("throttled").Inc()
		p.renderLogin(rw, &loginTemplateData{
			Error:     "Too many attempts, please wait a moment.",
			Username:  lr.Username,
			ReturnURL: lr.ReturnURL,
			LogoutURL: lr.LogoutURL,
		})
		return
	}

	success, user, err := p.backend.Logon(ctx, lr.Username, lr.Password)
	if err != nil {
		p.logger.WithError(err).Errorln("provider logon failed with backend")
		p.ErrorPage(rw, http.StatusInternalServerError, "failed to logon")
		return
	}
	if !success {
		logonAttempts.WithLabelValues("failed").Inc()
		// Return address and logout address travel back into the hidden
		// fields so a retry does not lose the SSO context.
		p.renderLogin(rw, &loginTemplateData{
			Error:     "Wrong username or password.",
			Username:  lr.Username,
			ReturnURL: lr.ReturnURL,
			LogoutURL: lr.LogoutURL,
		})
		return
	}
	logonAttempts.WithLabelValues("ok").Inc()

	s, err := p.sessions.GetOrCreate(ctx, rw, req)
	if err != nil {
		p.logger.WithError(err).Errorln("provider failed to resolve session")
		p.ErrorPage(rw, http.StatusInternalServerError, "")
		return
	}
	if err := s.SetObject(ctx, userKey, user); err != nil {
		p.logger.WithError(err).Errorln("provider failed to store user")
		p.ErrorPage(rw, http.StatusInternalServerError, "")
		return
	}

	if lr.RememberMe {
		if err := s.SetMaxInactiveInterval(ctx, rememberLoginStateTime); err != nil {
			p.logger.WithError(err).Errorln("provider failed to store session interval")
			p.ErrorPage(rw, http.StatusInternalServerError, "")
			return
		}
		p.sessions.SetCookie(rw, s.Token(), rememberLoginStateTime)
	}

	if lr.ReturnURL != "" && lr.LogoutURL != "" {
		p.logger.WithFields(logrus.Fields{
			"user":      user.Username,
			"returnUrl": lr.ReturnURL,
			"logoutUrl": lr.LogoutURL,
		}).Debugln("provider user login from client site")
	} else {
		p.logger.WithField("user", user.Username).Debugln("provider user login")
	}

	// A blank logout address is no error - the login simply proceeds
	// without SSO client context.
	if lr.LogoutURL != "" {
		if err := s.AppendLogoutURL(ctx, lr.LogoutURL); err != nil {
			p.logger.WithError(err).Errorln("provider failed to store logout URL")
			p.ErrorPage(rw, http.StatusInternalServerError, "")
			return
		}
	}

	if err := s.Commit(ctx); err != nil {
		p.logger.WithError(err).Errorln("provider session commit failed")
		p.ErrorPage(rw, http.StatusInternalServerError, "")
		return
	}

	if lr.ReturnURL != "" {
		p.backToClient(rw, lr.ReturnURL, s.Token())
		return
	}
	http.Redirect(rw, req, "/", http.StatusFound)
}

// LogoutHandler implements the HTTP handler for global logout. The
// accumulated client logout URLs are handed to the message queue for
// asynchronous fan-out, then the global session is destroyed. Fan-out
// failures stay invisible to the user - logout always succeeds locally.
func (p *Provider) LogoutHandler(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	s, err := p.sessions.FromRequest(ctx, req)
	if err != nil {
		p.logger.WithError(err).Warnln("provider failed to resolve session on logout")
	}
	if s != nil {
		urls, urlsErr := s.LogoutURLs(ctx)
		if urlsErr != nil {
			p.logger.WithError(urlsErr).Warnln("provider failed to read logout URLs")
		}
		if len(urls) > 0 {
			lm := mq.NewLogoutMessage(s.Token(), urls)
			if m, msgErr := lm.Message(); msgErr != nil {
				p.logger.WithError(msgErr).Errorln("provider failed to serialize logout message")
			} else if sendErr := p.sender.SendMessage(ctx, m); sendErr != nil {
				p.logger.WithError(sendErr).Warnln("provider failed to send logout broadcast")
			} else {
				logoutBroadcasts.Inc()
				p.logger.WithFields(logrus.Fields{
					"token": s.Token(),
					"urls":  len(urls),
				}).Debugln("provider logout broadcast sent")
			}
		}

		if err := s.Invalidate(ctx); err != nil {
			p.logger.WithError(err).Warnln("provider failed to invalidate session")
		}
	}

	p.sessions.ClearCookie(rw)
	http.Redirect(rw, req, "/login", http.StatusFound)
}

// ValidateTokenHandler implements the HTTP handler validating tickets for
// client sites. It responds with the stored user of the session identified
// by the posted token, falling back to the requester's session cookie.
//
// NOTE(nameof): any caller holding the token receives the user data, there
// is no check that the caller is the client which registered the matching
// returnUrl/logoutUrl pair.
func (p *Provider) ValidateTokenHandler(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	if err := req.ParseForm(); err != nil {
		p.ErrorPage(rw, http.StatusBadRequest, "failed to parse form data")
		return
	}

	token := req.PostForm.Get(ticketKey)
	if token == "" {
		if s, err := p.sessions.FromRequest(ctx, req); err == nil && s != nil {
			token = s.Token()
		}
	}

	response := &validateTokenResponse{}
	if token != "" {
		exists, err := p.sessions.Exists(ctx, token)
		if err != nil {
			p.logger.WithError(err).Errorln("provider failed to check token")
			p.ErrorPage(rw, http.StatusInternalServerError, "")
			return
		}
		if exists {
			s, err := p.sessions.Lookup(ctx, token)
			if err != nil {
				p.logger.WithError(err).Errorln("provider failed to resolve token session")
				p.ErrorPage(rw, http.StatusInternalServerError, "")
				return
			}
			if user := p.sessionUser(ctx, s); user != nil {
				response.State = true
				response.Subject = user.Username
				response.GlobalSessionID = token
				response.User = user

				if err := s.Commit(ctx); err != nil {
					p.logger.WithError(err).Errorln("provider session commit failed")
					p.ErrorPage(rw, http.StatusInternalServerError, "")
					return
				}
			}
		}
	}

	if err := utils.WriteJSON(rw, http.StatusOK, response, ""); err != nil {
		p.logger.WithError(err).Errorln("validatetoken request failed writing response")
	}
}

// VerifyQRCodeLoginHandler implements the HTTP handler polled by the login
// page while waiting for a scan login. It responds whether the requester's
// session has a user yet.
func (p *Provider) VerifyQRCodeLoginHandler(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	authenticated := false
	if s, err := p.sessions.FromRequest(ctx, req); err == nil && s != nil {
		if p.sessionUser(ctx, s) != nil {
			authenticated = true
			if err := s.Commit(ctx); err != nil {
				p.logger.WithError(err).Warnln("provider session commit failed")
			}
		}
	}

	if err := utils.WriteJSON(rw, http.StatusOK, authenticated, ""); err != nil {
		p.logger.WithError(err).Errorln("verifyQRCodeLogin request failed writing response")
	}
}

// ProcessQRCodeLoginHandler implements the HTTP handler for scan logins. The
// scanning device posts credentials together with the token of the waiting
// browser session, which becomes authenticated on success.
func (p *Provider) ProcessQRCodeLoginHandler(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	if err := req.ParseForm(); err != nil {
		p.ErrorPage(rw, http.StatusBadRequest, "failed to parse form data")
		return
	}
	username := req.PostForm.Get("username")
	password := req.PostForm.Get("password")
	token := req.PostForm.Get(ticketKey)

	rw.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if !p.limiter.allow(username) {
		logonAttempts.WithLabelValues("throttled").Inc()
		fmt.Fprintln(rw, "too many attempts, please wait a moment")
		return
	}

	success, user, err := p.backend.Logon(ctx, username, password)
	if err != nil {
		p.logger.WithError(err).Errorln("provider logon failed with backend")
		p.ErrorPage(rw, http.StatusInternalServerError, "failed to logon")
		return
	}
	if !success {
		logonAttempts.WithLabelValues("failed").Inc()
		fmt.Fprintln(rw, "wrong username or password")
		return
	}
	logonAttempts.WithLabelValues("ok").Inc()

	var s *session.Session
	if token != "" {
		s, err = p.sessions.Lookup(ctx, token)
	} else {
		s, err = p.sessions.GetOrCreate(ctx, rw, req)
	}
	if err != nil {
		p.logger.WithError(err).Errorln("provider failed to resolve session")
		p.ErrorPage(rw, http.StatusInternalServerError, "")
		return
	}
	if err := s.SetObject(ctx, userKey, user); err != nil {
		p.logger.WithError(err).Errorln("provider failed to store user")
		p.ErrorPage(rw, http.StatusInternalServerError, "")
		return
	}
	if err := s.Commit(ctx); err != nil {
		p.logger.WithError(err).Errorln("provider session commit failed")
		p.ErrorPage(rw, http.StatusInternalServerError, "")
		return
	}

	p.logger.WithField("user", user.Username).Debugln("provider scan login")
	fmt.Fprintln(rw, "login successful")
}

// IndexHandler implements the HTTP handler for the signed-in landing page.
func (p *Provider) IndexHandler(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	s, err := p.sessions.FromRequest(ctx, req)
	if err == nil && s != nil {
		if user := p.sessionUser(ctx, s); user != nil {
			if err := s.Commit(ctx); err != nil {
				p.logger.WithError(err).Warnln("provider session commit failed")
			}
			rw.Header().Set("Content-Type", "text/html; charset=utf-8")
			if err := indexTemplate.Execute(rw, &indexTemplateData{Username: user.Username}); err != nil {
				p.logger.WithError(err).Errorln("provider failed to render index page")
			}
			return
		}
	}

	http.Redirect(rw, req, "/login", http.StatusFound)
}

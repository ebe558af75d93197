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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/nameof/gocas/cache/managers"
	"github.com/nameof/gocas/config"
	identityBackends "github.com/nameof/gocas/identity/backends"
	"github.com/nameof/gocas/mq"
	"github.com/nameof/gocas/session"
)

var logger = &logrus.Logger{
	Out:       os.Stderr,
	Formatter: &logrus.TextFormatter{DisableColors: true},
	Level:     logrus.DebugLevel,
}

// captureSender records sent messages instead of queueing them.
type captureSender struct {
	messages []*mq.Message
}

func (s *captureSender) SendMessage(ctx context.Context, m *mq.Message) error {
	s.messages = append(s.messages, m)
	return nil
}

func newTestProvider(ctx context.Context, t *testing.T) (*mux.Router, *session.Manager, *captureSender) {
	cfg := &config.Config{
		Logger: logger,
	}

	sessions := session.NewManager(&session.Config{
		Config: cfg,

		Dao: managers.NewMemoryDao(ctx),
	})
	sender := &captureSender{}

	p, err := NewProvider(&Config{
		Config: cfg,

		Sessions: sessions,
		Backend:  &identityBackends.DummyBackend{},
		Sender:   sender,
	})
	if err != nil {
		t.Fatal(err)
	}

	router := mux.NewRouter()
	p.AddRoutes(ctx, router)

	return router, sessions, sender
}

func postForm(router *mux.Router, target string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func logon(t *testing.T, router *mux.Router, username string, returnURL string, logoutURL string) *httptest.ResponseRecorder {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", username)
	if returnURL != "" {
		form.Set("returnUrl", returnURL)
	}
	if logoutURL != "" {
		form.Set("logoutUrl", logoutURL)
	}

	rr := postForm(router, "/processLogin", form, nil)
	if rr.Code != http.StatusFound {
		t.Fatalf("logon got status %v want %v", rr.Code, http.StatusFound)
	}

	return rr
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == "gocas-session" && cookie.Value != "" {
			return cookie
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestLoginHandlerRendersForm(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	router, _, _ := newTestProvider(ctx, t)

	req := httptest.NewRequest(http.MethodGet, "/login?returnUrl=https%3A%2F%2Fa.example%2Fpage&logoutUrl=https%3A%2F%2Fa.example%2Fcb", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got status %v want %v", rr.Code, http.StatusOK)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `name="returnUrl" value="https://a.example/page"`) {
		t.Error("returnUrl hidden field missing")
	}
	if !strings.Contains(body, `name="logoutUrl" value="https://a.example/cb"`) {
		t.Error("logoutUrl hidden field missing")
	}
}

func TestProcessLoginRedirectsWithToken(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	router, sessions, _ := newTestProvider(ctx, t)

	rr := logon(t, router, "unittestuser", "https://a.example/page", "https://a.example/cb")
	cookie := sessionCookie(t, rr)

	location, err := url.Parse(rr.Header().Get("Location"))
	if err != nil {
		t.Fatal(err)
	}
	if location.Host != "a.example" || location.Path != "/page" {
		t.Errorf("unexpected redirect target: %v", location)
	}
	if location.Query().Get("token") != cookie.Value {
		t.Error("redirect token must match the session cookie")
	}

	s, err := sessions.Lookup(ctx, cookie.Value)
	if err != nil {
		t.Fatal(err)
	}
	urls, err := s.LogoutURLs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 1 || urls[0] != "https://a.example/cb" {
		t.Errorf("unexpected logout URLs: %v", urls)
	}
}

func TestProcessLoginFailureKeepsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	router, _, _ := newTestProvider(ctx, t)

	form := url.Values{}
	form.Set("username", "unittestuser")
	form.Set("password", "wrong")
	form.Set("returnUrl", "https://a.example/page")
	form.Set("logoutUrl", "https://a.example/cb")

	rr := postForm(router, "/processLogin", form, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got status %v want %v", rr.Code, http.StatusOK)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Wrong username or password.") {
		t.Error("error message missing")
	}
	if !strings.Contains(body, `value="https://a.example/page"`) {
		t.Error("returnUrl must survive a failed attempt")
	}
}

func TestLoginHandlerAuthenticatedClientSite(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	router, sessions, _ := newTestProvider(ctx, t)

	rr := logon(t, router, "unittestuser", "", "")
	cookie := sessionCookie(t, rr)

	// A later visit from a second client site reuses the session.
	req := httptest.NewRequest(http.MethodGet, "/login?returnUrl=https%3A%2F%2Fb.example%2Fhome&logoutUrl=https%3A%2F%2Fb.example%2Fcb", nil)
	req.AddCookie(cookie)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("got status %v want %v", rr.Code, http.StatusFound)
	}
	location, _ := url.Parse(rr.Header().Get("Location"))
	if location.Host != "b.example" || location.Query().Get("token") != cookie.Value {
		t.Errorf("unexpected redirect target: %v", location)
	}

	s, err := sessions.Lookup(ctx, cookie.Value)
	if err != nil {
		t.Fatal(err)
	}
	urls, _ := s.LogoutURLs(ctx)
	if len(urls) != 1 || urls[0] != "https://b.example/cb" {
		t.Errorf("unexpected logout URLs: %v", urls)
	}
}

func TestValidateTokenHandler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	router, _, _ := newTestProvider(ctx, t)

	rr := logon(t, router, "unittestuser", "https://a.example/page", "https://a.example/cb")
	cookie := sessionCookie(t, rr)

	form := url.Values{}
	form.Set("token", cookie.Value)
	rr = postForm(router, "/validatetoken", form, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got status %v want %v", rr.Code, http.StatusOK)
	}

	var result struct {
		State           bool   `json:"state"`
		Subject         string `json:"subject"`
		GlobalSessionID string `json:"globalSessionId"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if !result.State || result.Subject != "unittestuser" || result.GlobalSessionID != cookie.Value {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestValidateTokenHandlerUnknownToken(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	router, _, _ := newTestProvider(ctx, t)

	form := url.Values{}
	form.Set("token", "bogus")
	rr := postForm(router, "/validatetoken", form, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got status %v want %v", rr.Code, http.StatusOK)
	}

	var result struct {
		State bool `json:"state"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.State {
		t.Error("unknown token must not validate")
	}
}

func TestLogoutHandlerBroadcasts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	router, sessions, sender := newTestProvider(ctx, t)

	rr := logon(t, router, "unittestuser", "https://a.example/page", "https://a.example/cb")
	cookie := sessionCookie(t, rr)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(cookie)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("got status %v want %v", rr.Code, http.StatusFound)
	}
	if location := rr.Header().Get("Location"); location != "/login" {
		t.Errorf("got redirect %v want /login", location)
	}

	if len(sender.messages) != 1 {
		t.Fatalf("got %d broadcast messages want 1", len(sender.messages))
	}
	lm, err := mq.ParseLogoutMessage(sender.messages[0])
	if err != nil {
		t.Fatal(err)
	}
	if lm.Token() != cookie.Value {
		t.Error("broadcast must carry the session token")
	}
	urls := lm.LogoutUrls()
	if len(urls) != 1 || urls[0] != "https://a.example/cb" {
		t.Errorf("unexpected broadcast URLs: %v", urls)
	}

	exists, err := sessions.Exists(ctx, cookie.Value)
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("session must be gone after logout")
	}
}

func TestLogoutHandlerWithoutClientsSendsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	router, _, sender := newTestProvider(ctx, t)

	rr := logon(t, router, "unittestuser", "", "")
	cookie := sessionCookie(t, rr)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(cookie)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("got status %v want %v", rr.Code, http.StatusFound)
	}
	if len(sender.messages) != 0 {
		t.Errorf("got %d broadcast messages want 0", len(sender.messages))
	}
}

func TestProcessLoginThrottled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	router, _, _ := newTestProvider(ctx, t)

	form := url.Values{}
	form.Set("username", "throttleduser")
	form.Set("password", "wrong")

	var rr *httptest.ResponseRecorder
	for i := 0; i < logonRateBurst+1; i++ {
		rr = postForm(router, "/processLogin", form, nil)
	}

	if rr.Code != http.StatusOK {
		t.Fatalf("got status %v want %v", rr.Code, http.StatusOK)
	}
	if !strings.Contains(rr.Body.String(), "Too many attempts") {
		t.Error("throttle message missing")
	}
}

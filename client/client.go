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
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nameof/gocas/config"
	"github.com/nameof/gocas/utils"
)

// State is the sign-on state of a request at a client site.
type State int

const (
	// StateUnauthenticated means the request carries no sign-on and no
	// ticket. The next step is a redirect to the identity server.
	StateUnauthenticated State = iota
	// StateAwaitingTicket means the request carries a ticket which still
	// needs validation with the identity server.
	StateAwaitingTicket
	// StateAuthenticated means the request's local session is signed on.
	StateAuthenticated
	// StateFailed means ticket validation was attempted and rejected.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAwaitingTicket:
		return "awaiting-ticket"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	}

	return "unknown"
}

const (
	ticketKey    = "token"
	returnURLKey = "returnUrl"
	logoutURLKey = "logoutUrl"

	defaultLogoutPath = "/logoutCallback"

	validateTimeout = 5 * time.Second
)

// A LocalSessionStore is a client site's own session layer as used by the
// sign-on middleware.
type LocalSessionStore interface {
	// FromRequest returns the request's local session, creating one when
	// the request has none yet.
	FromRequest(rw http.ResponseWriter, req *http.Request) (LocalSession, error)
}

// ValidateTokenResult is the identity server's reply to a ticket
// validation request.
type ValidateTokenResult struct {
	State           bool   `json:"state"`
	Subject         string `json:"subject"`
	GlobalSessionID string `json:"globalSessionId"`
}

// Config defines the parameters of a Client.
type Config struct {
	Config *config.Config

	// ServerURL is the external base address of the identity server.
	ServerURL string
	// ClientURL is the external base address of this client site, used
	// to build absolute return and logout callback addresses.
	ClientURL string
	// LogoutPath is the path of this site's logout callback. Empty
	// selects /logoutCallback.
	LogoutPath string

	Sessions LocalSessionStore
	Registry *Registry
}

// A Client implements the client site side of the single sign-on protocol,
// the redirect to the identity server, ticket validation and handling of
// logout broadcasts.
type Client struct {
	serverURL  *url.URL
	clientURL  *url.URL
	logoutPath string

	sessions LocalSessionStore
	registry *Registry

	httpClient *http.Client
	logger     logrus.FieldLogger
}

// NewClient creates a Client from the provided parameters.
func NewClient(c *Config) (*Client, error) {
	if c.Sessions == nil || c.Registry == nil {
		return nil, fmt.Errorf("client requires sessions and registry")
	}

	serverURL, err := url.Parse(c.ServerURL)
	if err != nil || !serverURL.IsAbs() {
		return nil, fmt.Errorf("client requires an absolute server URL")
	}
	clientURL, err := url.Parse(c.ClientURL)
	if err != nil || !clientURL.IsAbs() {
		return nil, fmt.Errorf("client requires an absolute client URL")
	}

	logoutPath := c.LogoutPath
	if logoutPath == "" {
		logoutPath = defaultLogoutPath
	}

	transport := c.Config.HTTPTransport
	if transport == nil {
		transport = utils.HTTPTransportWithTLSClientConfig(nil)
	}

	return &Client{
		serverURL:  serverURL,
		clientURL:  clientURL,
		logoutPath: logoutPath,

		sessions: c.Sessions,
		registry: c.Registry,

		httpClient: &http.Client{
			Timeout:   validateTimeout,
			Transport: transport,
		},
		logger: c.Config.Logger,
	}, nil
}

// endpoint returns the absolute address of the named identity server
// endpoint.
func (c *Client) endpoint(name string) *url.URL {
	uri := *c.serverURL
	uri.Path = path.Join(uri.Path, name)

	return &uri
}

// LoginRedirect sends the browser to the identity server's login page,
// carrying the current request's address as return address and this site's
// logout callback as logout address.
func (c *Client) LoginRedirect(rw http.ResponseWriter, req *http.Request) error {
	returnURI := c.clientURL.ResolveReference(&url.URL{
		Path:     req.URL.Path,
		RawQuery: req.URL.RawQuery,
	})
	logoutURI := c.clientURL.ResolveReference(&url.URL{
		Path: c.logoutPath,
	})

	params := struct {
		ReturnURL string `url:"returnUrl"`
		LogoutURL string `url:"logoutUrl"`
	}{returnURI.String(), logoutURI.String()}

	return utils.WriteRedirect(rw, http.StatusFound, c.endpoint("login"), params)
}

// ValidateToken posts the provided ticket to the identity server's
// validation endpoint and returns the decoded result.
func (c *Client) ValidateToken(ctx context.Context, token string) (*ValidateTokenResult, error) {
	form := url.Values{}
	form.Set(ticketKey, token)

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("validatetoken").String(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	request.Header.Set("User-Agent", utils.DefaultHTTPUserAgent)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("validate token request failed with status: %d", response.StatusCode)
	}

	result := &ValidateTokenResult{}
	if err := json.NewDecoder(response.Body).Decode(result); err != nil {
		return nil, fmt.Errorf("failed to decode validate token response: %w", err)
	}

	return result, nil
}

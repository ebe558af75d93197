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

package mq

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nameof/gocas/config"
)

const deliveryTimeout = 5 * time.Second

// LogoutMessageReceiver consumes LogoutMessages from a queue and delivers
// the logout to every registered client callback URL with a POST carrying
// the token. Delivery is best effort per URL - a failed or slow client
// never prevents attempts to the remaining URLs and nothing is retried.
type LogoutMessageReceiver struct {
	httpClient *http.Client

	logger logrus.FieldLogger
}

// NewLogoutMessageReceiver creates a LogoutMessageReceiver from the provided
// parameters.
func NewLogoutMessageReceiver(c *config.Config) *LogoutMessageReceiver {
	httpClient := &http.Client{
		Timeout:   deliveryTimeout,
		Transport: c.HTTPTransport,
	}

	return &LogoutMessageReceiver{
		httpClient: httpClient,

		logger: c.Logger,
	}
}

// HandleMessage implements the Handler interface.
func (r *LogoutMessageReceiver) HandleMessage(ctx context.Context, m *Message) {
	lm, err := ParseLogoutMessage(m)
	if err != nil {
		r.logger.WithError(err).WithField("message", m.ID).Warnln("mq discarding undecodable logout message")
		return
	}

	for _, logoutURL := range lm.LogoutUrls() {
		if err := r.deliver(ctx, logoutURL, lm.Token()); err != nil {
			logoutDeliveries.WithLabelValues("failed").Inc()
			r.logger.WithError(err).WithFields(logrus.Fields{
				"url":   logoutURL,
				"token": lm.Token(),
			}).Warnln("mq logout delivery failed")
			continue
		}
		logoutDeliveries.WithLabelValues("ok").Inc()
		r.logger.WithFields(logrus.Fields{
			"url":   logoutURL,
			"token": lm.Token(),
		}).Debugln("mq logout delivered")
	}
}

func (r *LogoutMessageReceiver) deliver(ctx context.Context, logoutURL string, token string) error {
	body := url.Values{}
	body.Set("token", token)

	req, err := http.NewRequest(http.MethodPost, logoutURL, strings.NewReader(body.Encode()))
	if err != nil {
		return err
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	response, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	response.Body.Close()

	return nil
}

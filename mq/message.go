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
	"encoding/json"

	uuid "github.com/satori/go.uuid"
)

// A Message is the envelope carried by a queue. The content is an opaque
// serialized payload, sender and receiver never share any other state so
// they can run in different processes.
type Message struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// NewMessage creates a Message with a fresh ID and the provided content.
func NewMessage(content string) *Message {
	return &Message{
		ID:      uuid.NewV4().String(),
		Content: content,
	}
}

// logoutPayload is the JSON form of a LogoutMessage's content.
type logoutPayload struct {
	Token      string   `json:"token"`
	LogoutUrls []string `json:"logoutUrls"`
}

// A LogoutMessage is the broadcast sent on global logout, carrying the
// global session token and the client logout URLs registered against it.
// It is an immutable value constructed at logout time.
type LogoutMessage struct {
	token      string
	logoutUrls []string
}

// NewLogoutMessage creates a LogoutMessage from the provided token and
// logout URLs.
func NewLogoutMessage(token string, logoutUrls []string) *LogoutMessage {
	if logoutUrls == nil {
		logoutUrls = []string{}
	}

	return &LogoutMessage{
		token:      token,
		logoutUrls: logoutUrls,
	}
}

// ParseLogoutMessage decodes the content of the provided Message into a
// LogoutMessage.
func ParseLogoutMessage(m *Message) (*LogoutMessage, error) {
	var payload logoutPayload
	if err := json.Unmarshal([]byte(m.Content), &payload); err != nil {
		return nil, err
	}

	return NewLogoutMessage(payload.Token, payload.LogoutUrls), nil
}

// Token returns the accociated global session token.
func (lm *LogoutMessage) Token() string {
	return lm.token
}

// LogoutUrls returns the logout URLs in their registration order.
func (lm *LogoutMessage) LogoutUrls() []string {
	return lm.logoutUrls
}

// Message serializes the LogoutMessage into a transport Message.
func (lm *LogoutMessage) Message() (*Message, error) {
	content, err := json.Marshal(&logoutPayload{
		Token:      lm.token,
		LogoutUrls: lm.logoutUrls,
	})
	if err != nil {
		return nil, err
	}

	return NewMessage(string(content)), nil
}

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
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/nameof/gocas/config"
)

var logger = &logrus.Logger{
	Out:       os.Stderr,
	Formatter: &logrus.TextFormatter{DisableColors: true},
	Level:     logrus.DebugLevel,
}

func TestLogoutMessageReceiverDelivery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mutex sync.Mutex
	var tokens []string
	ok := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		if err := req.ParseForm(); err != nil {
			t.Error(err)
		}
		mutex.Lock()
		tokens = append(tokens, req.PostForm.Get("token"))
		mutex.Unlock()
	}))
	defer ok.Close()

	r := NewLogoutMessageReceiver(&config.Config{Logger: logger})

	lm := NewLogoutMessage("token-1", []string{ok.URL})
	m, err := lm.Message()
	if err != nil {
		t.Fatal(err)
	}
	r.HandleMessage(ctx, m)

	mutex.Lock()
	defer mutex.Unlock()
	if len(tokens) != 1 || tokens[0] != "token-1" {
		t.Errorf("unexpected delivered tokens: %v", tokens)
	}
}

func TestLogoutMessageReceiverFailureIsolation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mutex sync.Mutex
	var hits []string
	handler := func(name string) http.HandlerFunc {
		return func(rw http.ResponseWriter, req *http.Request) {
			mutex.Lock()
			hits = append(hits, name)
			mutex.Unlock()
		}
	}
	first := httptest.NewServer(handler("first"))
	defer first.Close()
	last := httptest.NewServer(handler("last"))
	defer last.Close()

	// A dead URL in the middle must not stop the remaining deliveries.
	dead := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {}))
	dead.Close()

	r := NewLogoutMessageReceiver(&config.Config{Logger: logger})

	lm := NewLogoutMessage("token-2", []string{first.URL, dead.URL, last.URL})
	m, err := lm.Message()
	if err != nil {
		t.Fatal(err)
	}
	r.HandleMessage(ctx, m)

	mutex.Lock()
	defer mutex.Unlock()
	if len(hits) != 2 || hits[0] != "first" || hits[1] != "last" {
		t.Errorf("unexpected deliveries: %v", hits)
	}
}

func TestLogoutMessageReceiverDiscardsUndecodable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewLogoutMessageReceiver(&config.Config{Logger: logger})

	// Must not panic and must not deliver anything.
	r.HandleMessage(ctx, NewMessage("not json"))
}

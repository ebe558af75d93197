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
	"net/http"
	"sync"

	"github.com/orcaman/concurrent-map"
	"stash.kopano.io/kgol/rndm"
)

const (
	defaultLocalCookieName = "gocas-client-session"
	localSessionIDLength   = 32
)

// MemorySessionStore is a cookie backed in-memory LocalSessionStore for
// client sites which bring no session layer of their own.
type MemorySessionStore struct {
	table      cmap.ConcurrentMap
	cookieName string
}

// NewMemorySessionStore creates a new MemorySessionStore. An empty
// cookieName selects the default.
func NewMemorySessionStore(cookieName string) *MemorySessionStore {
	if cookieName == "" {
		cookieName = defaultLocalCookieName
	}

	return &MemorySessionStore{
		table:      cmap.New(),
		cookieName: cookieName,
	}
}

// FromRequest implements the LocalSessionStore interface. Invalidated and
// unknown sessions are replaced with a fresh one.
func (store *MemorySessionStore) FromRequest(rw http.ResponseWriter, req *http.Request) (LocalSession, error) {
	if cookie, err := req.Cookie(store.cookieName); err == nil {
		if stored, found := store.table.Get(cookie.Value); found {
			ls := stored.(*memorySession)
			if !ls.invalidated() {
				return ls, nil
			}
			store.table.Remove(cookie.Value)
		}
	}

	ls := &memorySession{
		id: rndm.GenerateRandomString(localSessionIDLength),
	}
	store.table.Set(ls.id, ls)
	http.SetCookie(rw, &http.Cookie{
		Name:     store.cookieName,
		Value:    ls.id,
		Path:     "/",
		HttpOnly: true,
	})

	return ls, nil
}

type memorySession struct {
	id string

	mutex   sync.RWMutex
	subject string
	invalid bool
}

func (ls *memorySession) ID() string {
	return ls.id
}

func (ls *memorySession) Subject() string {
	ls.mutex.RLock()
	defer ls.mutex.RUnlock()
	if ls.invalid {
		return ""
	}

	return ls.subject
}

func (ls *memorySession) SetSubject(subject string) {
	ls.mutex.Lock()
	defer ls.mutex.Unlock()
	ls.subject = subject
}

func (ls *memorySession) Invalidate() {
	ls.mutex.Lock()
	defer ls.mutex.Unlock()
	ls.invalid = true
	ls.subject = ""
}

func (ls *memorySession) invalidated() bool {
	ls.mutex.RLock()
	defer ls.mutex.RUnlock()

	return ls.invalid
}

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
	"github.com/orcaman/concurrent-map"
)

// A LocalSession is a client site's own session as seen by the sign-on
// middleware and the logout callback.
type LocalSession interface {
	// ID returns the local session's identifier.
	ID() string
	// Subject returns the signed-on user, or the empty string when the
	// session is not signed on.
	Subject() string
	// SetSubject marks the session signed on as the provided user.
	SetSubject(subject string)
	// Invalidate destroys the session.
	Invalidate()
}

// A Registry maps global session tokens to the local sessions which were
// signed on with them, so a logout broadcast can find and destroy the
// matching local session.
type Registry struct {
	table cmap.ConcurrentMap
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		table: cmap.New(),
	}
}

// Attach records the provided local session under the provided token. A
// second attach with the same token replaces the earlier registration.
func (r *Registry) Attach(token string, ls LocalSession) {
	r.table.Set(token, ls)
}

// Detach removes the registration of the provided token, if any.
func (r *Registry) Detach(token string) {
	r.table.Remove(token)
}

// Lookup returns the local session registered under the provided token.
func (r *Registry) Lookup(token string) (LocalSession, bool) {
	stored, found := r.table.Get(token)
	if !found {
		return nil, false
	}

	return stored.(LocalSession), true
}

// Count returns the number of registered local sessions.
func (r *Registry) Count() int {
	return r.table.Count()
}

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

package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNoSuchAttribute is the error returned by Dao implementations when the
// requested attribute is not set for the token.
var ErrNoSuchAttribute = errors.New("no such attribute")

// A Dao is a distributed mapping from a session token to named attributes
// with per-token expiry. It is the single shared mutable resource between
// all gocas instances and thus every operation round-trips the backing
// store directly. Implementations must be safe to call from multiple Go
// routines.
type Dao interface {
	// GetAttribute returns the value of the named attribute stored under
	// token. It returns ErrNoSuchAttribute when the attribute is not set.
	GetAttribute(ctx context.Context, token string, name string) (string, error)
	// SetAttribute stores the value of the named attribute under token,
	// replacing any previous value.
	SetAttribute(ctx context.Context, token string, name string, value string) error
	// AttributeNames enumerates the attribute names stored under token. An
	// unknown token yields an empty result, not an error.
	AttributeNames(ctx context.Context, token string) ([]string, error)

	// SetExpire sets the time to live of all of the token's attributes.
	SetExpire(ctx context.Context, token string, expire time.Duration) error
	// SetPersist removes the time to live of the token so that it never
	// expires.
	SetPersist(ctx context.Context, token string) error

	// Exists reports whether any attributes are stored under token.
	Exists(ctx context.Context, token string) (bool, error)
	// Del removes the token together with all of its attributes.
	Del(ctx context.Context, token string) error
}

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

package backends

import (
	"context"

	"github.com/nameof/gocas/identity"
)

// DummyBackend is an identity.Backend accepting every logon where the
// password equals the username. It is for development only.
type DummyBackend struct{}

// Logon implements the identity.Backend interface.
func (b *DummyBackend) Logon(ctx context.Context, username string, password string) (bool, *identity.User, error) {
	if username == "" || username != password {
		return false, nil, nil
	}

	return true, &identity.User{
		Sub:      username,
		Username: username,
	}, nil
}

// Name implements the identity.Backend interface.
func (b *DummyBackend) Name() string {
	return "dummy"
}

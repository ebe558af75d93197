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

package identity

import (
	"context"
)

// A User is the identity stored in a global session after a successful
// logon.
type User struct {
	Sub         string `json:"sub"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
}

// A Backend provides the credential verification used by the identity
// server. Verification policy is not gocas business - backends wrap
// whatever user store an installation has.
type Backend interface {
	// Logon validates the provided credentials. A failed validation is
	// reported with success false and a nil error, errors mean the backend
	// itself failed.
	Logon(ctx context.Context, username string, password string) (success bool, user *User, err error)

	// Name returns the backend's name.
	Name() string
}

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
	"fmt"
	"io/ioutil"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v2"

	"github.com/nameof/gocas/identity"
)

// unknownUserHash is a valid bcrypt hash compared against when the username
// is unknown, so unknown and known users take similar time to reject.
var unknownUserHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// fileUser is one user entry of the users YAML file.
type fileUser struct {
	Sub          string `yaml:"sub"`
	Username     string `yaml:"username"`
	DisplayName  string `yaml:"displayName"`
	PasswordHash string `yaml:"passwordHash"`
}

// FileBackend is an identity.Backend reading its users with bcrypt password
// hashes from a YAML file at construction time.
type FileBackend struct {
	users map[string]*fileUser

	logger logrus.FieldLogger
}

// NewFileBackend loads the provided users YAML file and creates a
// FileBackend from it.
func NewFileBackend(fn string, logger logrus.FieldLogger) (*FileBackend, error) {
	raw, err := ioutil.ReadFile(fn)
	if err != nil {
		return nil, fmt.Errorf("failed to read users file: %v", err)
	}

	var entries []*fileUser
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse users file: %v", err)
	}

	users := make(map[string]*fileUser)
	for _, entry := range entries {
		if entry.Username == "" || entry.PasswordHash == "" {
			return nil, fmt.Errorf("users file entry without username or passwordHash")
		}
		if entry.Sub == "" {
			entry.Sub = entry.Username
		}
		users[entry.Username] = entry
	}

	logger.WithField("count", len(users)).Infoln("loaded users from file")

	return &FileBackend{
		users: users,

		logger: logger,
	}, nil
}

// Logon implements the identity.Backend interface.
func (b *FileBackend) Logon(ctx context.Context, username string, password string) (bool, *identity.User, error) {
	entry, found := b.users[username]
	if !found {
		// Compare anyways, making user probing via timing harder.
		bcrypt.CompareHashAndPassword(unknownUserHash, []byte(password))
		return false, nil, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(entry.PasswordHash), []byte(password)); err != nil {
		return false, nil, nil
	}

	return true, &identity.User{
		Sub:         entry.Sub,
		Username:    entry.Username,
		DisplayName: entry.DisplayName,
	}, nil
}

// Name implements the identity.Backend interface.
func (b *FileBackend) Name() string {
	return "file"
}

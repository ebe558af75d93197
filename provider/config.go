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

package provider

import (
	"github.com/nameof/gocas/config"
	"github.com/nameof/gocas/identity"
	"github.com/nameof/gocas/mq"
	"github.com/nameof/gocas/session"
)

// Config defines a Provider's configuration settings.
type Config struct {
	Config *config.Config

	Sessions *session.Manager
	Backend  identity.Backend
	Sender   mq.Sender
}

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
	"html/template"
)

// Minimal built-in pages. Installations front gocas with their own sign-in
// UI, these exist so the server is usable out of the box.

var loginTemplate = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html>
<head><title>Sign in</title></head>
<body>
<h1>Sign in</h1>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<form method="POST" action="processLogin">
<input type="hidden" name="returnUrl" value="{{.ReturnURL}}">
<input type="hidden" name="logoutUrl" value="{{.LogoutURL}}">
<label>Username <input type="text" name="username" value="{{.Username}}"></label>
<label>Password <input type="password" name="password"></label>
<label><input type="checkbox" name="rememberMe" value="true"> Remember me</label>
<button type="submit">Sign in</button>
</form>
</body>
</html>
`))

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>gocas</title></head>
<body>
<h1>Signed in</h1>
<p>You are signed in as {{.Username}}.</p>
<p><a href="logout">Sign out everywhere</a></p>
</body>
</html>
`))

type loginTemplateData struct {
	Error     string
	Username  string
	ReturnURL string
	LogoutURL string
}

type indexTemplateData struct {
	Username string
}

// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package auth extracts the invoking user's identity from a bearer
// token. A compiled statement is always scoped to {invoking_user,
// admin_mode}, so every request must carry one: unlike the teacher's
// AuthServiceConfig registry (one provider per configured tool, OIDC
// discovery against Google/Azure), GenQuery has a single identity
// input, so one configured signing key is enough.
package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/catalog-query/genquery/genquery"
)

// claims is the minimal shape this service trusts out of a verified
// token: the iRODS/GenQuery username and an optional admin role.
type claims struct {
	jwt.RegisteredClaims
	Admin bool `json:"admin"`
}

// Verifier checks a bearer token's signature and turns it into the
// Options Compile needs. It holds only a signing key, never a
// request-scoped value, so one Verifier is shared across every
// request the server handles.
type Verifier struct {
	key []byte
}

// NewVerifier returns a Verifier that checks tokens against key using
// an HMAC signing method (HS256, HS384 or HS512), the symmetric scheme
// used for a single operator-managed signing key.
func NewVerifier(key []byte) *Verifier {
	return &Verifier{key: key}
}

// Options resolves the Authorization header of r into GenQuery compile
// options. It returns an error the caller should treat as a client
// mistake (missing/expired/malformed token), never a server fault.
func (v *Verifier) Options(r *http.Request) (genquery.Options, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return genquery.Options{}, fmt.Errorf("missing Authorization header")
	}
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return genquery.Options{}, fmt.Errorf("Authorization header must use the Bearer scheme")
	}

	var c claims
	_, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.key, nil
	})
	if err != nil {
		return genquery.Options{}, fmt.Errorf("invalid bearer token: %w", err)
	}
	if c.Subject == "" {
		return genquery.Options{}, fmt.Errorf("bearer token is missing a subject claim")
	}

	return genquery.Options{Username: c.Subject, AdminMode: c.Admin}, nil
}

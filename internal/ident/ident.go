// Package ident generates the identifiers used across the service.
package ident

import (
	"crypto/rand"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

func InterviewID() string { return uuid.NewString() }

func ConnectionID() string { return uuid.NewString() }

// RoomID returns a URL-safe room token with 80 bits of crypto/rand entropy.
// Room ids double as bearer capabilities on some lookup paths, so they must
// not be guessable or enumerable.
func RoomID() string {
	id := ulid.MustNew(ulid.Now(), rand.Reader)
	return "rm-" + strings.ToLower(id.String())
}

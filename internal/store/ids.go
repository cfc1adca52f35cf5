package store

import (
	"crypto/rand"

	"github.com/google/uuid"
)

const slugAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// SlugLen is the length of generated list slugs.
const SlugLen = 8

// newSlug returns SlugLen characters of [A-Z0-9].
func newSlug() (string, error) {
	var b [SlugLen]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = slugAlphabet[int(b[i])%len(slugAlphabet)]
	}
	return string(b[:]), nil
}

func newID() string {
	return uuid.NewString()
}

package object

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path"
	"strings"
	"unicode"
)

const maxNameLen = 128

// ErrInvalidName is returned for file names that cannot be stored.
var ErrInvalidName = errors.New("invalid file name")

// NewKey builds "<hashed owner>/<random>_<sanitized name>". Slash-separated
// regardless of platform so keys are portable between backends.
func NewKey(owner, fileName string) (string, error) {
	name, err := SanitizeName(fileName)
	if err != nil {
		return "", err
	}
	return path.Join(OwnerPrefix(owner), randomID()+"_"+name), nil
}

// OwnerPrefix returns the hex SHA-256 of owner, so ids like "guest:x" or
// "google:123" never reach a file system or bucket path verbatim.
func OwnerPrefix(owner string) string {
	sum := sha256.Sum256([]byte(owner))
	return hex.EncodeToString(sum[:])
}

// SanitizeName flattens separators, drops control characters and caps the
// length while keeping the extension. Traversal sequences are rejected.
func SanitizeName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidName
	}
	s := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	if s == "" {
		return "", ErrInvalidName
	}
	if len(s) > maxNameLen {
		ext := path.Ext(s)
		if len(ext) > 16 {
			ext = ""
		}
		s = strings.ToValidUTF8(s[:maxNameLen-len(ext)], "") + ext
	}
	return s, nil
}

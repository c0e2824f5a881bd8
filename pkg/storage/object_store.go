package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMalformedLocator is returned when a stored locator does not have the
// https://{bucket}.s3.amazonaws.com/{key} shape.
var ErrMalformedLocator = errors.New("malformed object locator")

// ErrObjectNotFound is returned by GetText when the object does not exist.
var ErrObjectNotFound = errors.New("object not found")

const (
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeHTML = "text/html"
)

// ObjectStore writes and reads whole text objects addressed by bucket and key.
// PutText overwrites any existing object and returns its locator.
type ObjectStore interface {
	PutText(ctx context.Context, bucket, key, text, contentType string) (string, error)
	GetText(ctx context.Context, bucket, key string) (string, error)
}

// The bucket group is non-greedy so dotted bucket names keep their dots.
var locatorPattern = regexp.MustCompile(`^https://([^/]+?)\.s3\.amazonaws\.com/(.+)$`)

// Locator formats the public locator for bucket/key.
func Locator(bucket, key string) string {
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", bucket, key)
}

// ParseLocator splits a locator produced by Locator back into bucket and key.
func ParseLocator(locator string) (bucket, key string, err error) {
	m := locatorPattern.FindStringSubmatch(strings.TrimSpace(locator))
	if m == nil {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedLocator, locator)
	}
	return m[1], m[2], nil
}

// ResumeKey is where extracted résumé text for one upload is stored. uploadID
// keeps chats that reuse a file name from sharing an object.
func ResumeKey(userID, uploadID, filename string) string {
	return fmt.Sprintf("resumes/%s/%s/%s.txt", userID, uploadID, baseName(filename))
}

// PageKey is where the published page for a chat lives.
func PageKey(userID, chatID string) string {
	return fmt.Sprintf("pages/%s/pages-%s/index.html", userID, chatID)
}

func baseName(filename string) string {
	name := strings.TrimSpace(filename)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	if name == "" || name == "." || name == ".." {
		return "resume"
	}
	return name
}

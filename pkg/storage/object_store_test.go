package storage

import (
	"context"
	"errors"
	"testing"
)

func TestLocatorRoundTrip(t *testing.T) {
	loc := Locator("portfolio-out", "pages/u1/pages-c1/index.html")
	if loc != "https://portfolio-out.s3.amazonaws.com/pages/u1/pages-c1/index.html" {
		t.Fatalf("unexpected locator %q", loc)
	}
	bucket, key, err := ParseLocator(loc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if bucket != "portfolio-out" || key != "pages/u1/pages-c1/index.html" {
		t.Fatalf("unexpected parts %q %q", bucket, key)
	}
}

func TestLocatorRoundTripDottedBucket(t *testing.T) {
	cases := []struct {
		bucket string
		key    string
	}{
		{"resumes.example.com", "resumes/u1/up1/r.txt"},
		{"my.bucket", "pages/u1/pages-c1/index.html"},
		{"plain", "a.s3.amazonaws.com/odd-key.txt"},
	}
	for _, tc := range cases {
		bucket, key, err := ParseLocator(Locator(tc.bucket, tc.key))
		if err != nil {
			t.Fatalf("parse %s/%s: %v", tc.bucket, tc.key, err)
		}
		if bucket != tc.bucket || key != tc.key {
			t.Fatalf("round trip %s/%s gave %q %q", tc.bucket, tc.key, bucket, key)
		}
	}
}

func TestParseLocatorRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"https://badurl/not-matching",
		"http://bucket.s3.amazonaws.com/key",
		"https://bucket.s3.amazonaws.com/",
		"https://a/b.s3.amazonaws.com/key",
		"https://.s3.amazonaws.com/key",
	}
	for _, loc := range cases {
		if _, _, err := ParseLocator(loc); !errors.Is(err, ErrMalformedLocator) {
			t.Fatalf("expected ErrMalformedLocator for %q, got %v", loc, err)
		}
	}
}

func TestKeys(t *testing.T) {
	if got := ResumeKey("u1", "up1", "cv.final.pdf"); got != "resumes/u1/up1/cv.final.txt" {
		t.Fatalf("unexpected resume key %q", got)
	}
	if got := ResumeKey("u1", "up1", "../../etc/passwd"); got != "resumes/u1/up1/passwd.txt" {
		t.Fatalf("path components should be stripped, got %q", got)
	}
	if got := ResumeKey("u1", "up1", ""); got != "resumes/u1/up1/resume.txt" {
		t.Fatalf("unexpected fallback key %q", got)
	}
	if got := PageKey("u1", "c9"); got != "pages/u1/pages-c9/index.html" {
		t.Fatalf("unexpected page key %q", got)
	}
}

func TestMemoryStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	if _, err := m.GetText(ctx, "b", "k"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	loc1, err := m.PutText(ctx, "b", "k", "one", ContentTypeHTML)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	loc2, _ := m.PutText(ctx, "b", "k", "two", ContentTypeHTML)
	if loc1 != loc2 {
		t.Fatalf("locator should be stable across overwrites")
	}
	got, _ := m.GetText(ctx, "b", "k")
	if got != "two" {
		t.Fatalf("expected overwritten body, got %q", got)
	}
	if ct, _ := m.ContentType("b", "k"); ct != ContentTypeHTML {
		t.Fatalf("unexpected content type %q", ct)
	}
}

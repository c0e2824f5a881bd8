// Package extract turns uploaded résumé documents into plain text.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

var (
	ErrEmptyDocument = errors.New("empty document")
	ErrNoPages       = errors.New("document has no pages")
	ErrNotText       = errors.New("document is not valid text")
)

var pdfMagic = []byte("%PDF-")

// Text extracts plain text from a document. Any failure yields "".
func Text(data []byte, filename string) string {
	text, _ := TextWithError(data, filename)
	return text
}

// TextWithError is Text but reports why extraction produced nothing.
// The returned text is always valid UTF-8 and trimmed.
func TextWithError(data []byte, filename string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyDocument
	}
	var (
		text string
		err  error
	)
	switch detectKind(data, filename) {
	case kindPDF:
		text, err = pdfText(data)
	case kindHTML:
		text, err = htmlText(data)
	default:
		text, err = plainText(data)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.ToValidUTF8(text, "")), nil
}

type kind int

const (
	kindText kind = iota
	kindPDF
	kindHTML
)

func detectKind(data []byte, filename string) kind {
	if bytes.HasPrefix(bytes.TrimLeft(data, "\r\n\t "), pdfMagic) {
		return kindPDF
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return kindPDF
	case ".html", ".htm", ".xhtml":
		return kindHTML
	}
	return kindText
}

// pdfText joins page texts in document order with a single newline.
func pdfText(data []byte) (text string, err error) {
	// the pdf reader panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("read pdf: %v", r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	total := reader.NumPage()
	if total == 0 {
		return "", ErrNoPages
	}
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, err)
		}
		pages = append(pages, strings.ReplaceAll(content, "\x00", ""))
	}
	return strings.Join(pages, "\n"), nil
}

func htmlText(data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.TextNode:
			if s := strings.TrimSpace(node.Data); s != "" {
				buf.WriteString(s)
				buf.WriteString(" ")
			}
		case html.ElementNode:
			if node.Data == "script" || node.Data == "style" || node.Data == "head" {
				return
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if node.Type == html.ElementNode {
			switch node.Data {
			case "p", "br", "div", "li", "h1", "h2", "h3", "h4", "tr", "section":
				buf.WriteString("\n")
			}
		}
	}
	walk(doc)
	lines := strings.Split(buf.String(), "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n"), nil
}

func plainText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", ErrNotText
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return "", ErrNotText
	}
	return string(data), nil
}

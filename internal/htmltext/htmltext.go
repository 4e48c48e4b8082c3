// Package htmltext extracts plain text and structure from article HTML.
package htmltext

import (
	"strings"

	"golang.org/x/net/html"
)

// Heading is a heading element found in a document
type Heading struct {
	Level int
	Text  string
}

// blockTags end a run of text so words on either side do not merge
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "blockquote": true, "tr": true, "td": true,
	"th": true, "table": true, "aside": true, "header": true, "footer": true,
}

// Text strips all markup from s and collapses whitespace.
// Script and style contents are dropped.
func Text(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skip := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or malformed input; either way return what was read
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if (tag == "script" || tag == "style") && tt == html.StartTagToken {
				skip++
			}
			if blockTags[tag] {
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if (tag == "script" || tag == "style") && skip > 0 {
				skip--
			}
			if blockTags[tag] {
				b.WriteByte(' ')
			}
		}
	}
}

// WordCount counts whitespace-delimited words in plain text
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// Headings returns h1-h6 headings in document order whose level is at most maxLevel
func Headings(s string, maxLevel int) []Heading {
	z := html.NewTokenizer(strings.NewReader(s))
	var out []Heading
	level := 0
	var cur strings.Builder

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return out
		case html.StartTagToken:
			name, _ := z.TagName()
			if l := headingLevel(string(name)); l > 0 && l <= maxLevel {
				level = l
				cur.Reset()
			}
		case html.TextToken:
			if level > 0 {
				cur.Write(z.Text())
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if l := headingLevel(string(name)); l > 0 && l == level {
				text := strings.Join(strings.Fields(cur.String()), " ")
				if text != "" {
					out = append(out, Heading{Level: level, Text: text})
				}
				level = 0
			}
		}
	}
}

// Count returns how many start tags named tag appear in s
func Count(s, tag string) int {
	z := html.NewTokenizer(strings.NewReader(s))
	n := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return n
		}
		if tt == html.StartTagToken || tt == html.SelfClosingTagToken {
			name, _ := z.TagName()
			if string(name) == tag {
				n++
			}
		}
	}
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

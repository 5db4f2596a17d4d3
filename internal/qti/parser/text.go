package parser

import (
	"html"
	"strings"
)

// materialText returns the first non-empty mattext of the materials,
// reduced to plain text when it is marked as HTML.
func materialText(ms []xmlMaterial) string {
	for _, m := range ms {
		for _, t := range m.Texts {
			s := plainText(t)
			if s != "" {
				return s
			}
		}
	}
	return ""
}

func plainText(t xmlMattext) string {
	if strings.Contains(strings.ToLower(t.TextType), "html") {
		return stripHTML(t.Value)
	}
	return strings.TrimSpace(t.Value)
}

// blockTags break text; every other tag is dropped in place.
var blockTags = map[string]bool{
	"p": true, "br": true, "div": true, "li": true, "ul": true, "ol": true,
	"tr": true, "td": true, "th": true, "table": true, "hr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// tagName reads the element name of the text between < and >.
func tagName(tag string) string {
	tag = strings.TrimPrefix(strings.TrimSpace(tag), "/")
	if i := strings.IndexAny(tag, " \t\n/"); i >= 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}

// stripHTML does a simple tag stripper and entity unescape for short HTML
// fragments.
func stripHTML(s string) string {
	var b, tag strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
			tag.Reset()
		case r == '>' && inTag:
			inTag = false
			if blockTags[tagName(tag.String())] {
				b.WriteRune(' ')
			}
		case inTag:
			tag.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	out := html.UnescapeString(b.String())
	return strings.Join(strings.Fields(out), " ")
}

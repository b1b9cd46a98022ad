package ingest

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// Sections holds the raw text parts of a document.
type Sections struct {
	Title    string
	Abstract string
	Content  string
}

// Reader parses a document file format into raw sections.
type Reader interface {
	Read(r io.Reader) (Sections, error)
}

// TextReader reads plain text. When Structured is set the first line is the
// title and the following blank-line separated block is the abstract;
// otherwise the whole text is content.
type TextReader struct {
	Structured bool
}

// Read implements Reader.
func (t TextReader) Read(r io.Reader) (Sections, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Sections{}, err
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if !t.Structured {
		return Sections{Content: strings.TrimSpace(text)}, nil
	}

	text = strings.TrimLeft(text, "\n")
	title, rest, _ := strings.Cut(text, "\n")
	rest = strings.TrimLeft(rest, " \t\n")
	abstract, content, found := strings.Cut(rest, "\n\n")
	if !found {
		abstract, content = rest, ""
	}
	return Sections{
		Title:    strings.TrimSpace(title),
		Abstract: strings.TrimSpace(abstract),
		Content:  strings.TrimSpace(content),
	}, nil
}

// blockElements end a paragraph in extracted HTML text.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "section": true,
	"article": true, "tr": true, "blockquote": true, "pre": true,
}

// HTMLReader extracts the <title>, the description meta tag as abstract
// and the visible body text as content.
type HTMLReader struct{}

// Read implements Reader.
func (HTMLReader) Read(r io.Reader) (Sections, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Sections{}, fmt.Errorf("parse html: %w", err)
	}

	var sections Sections
	var body strings.Builder

	var walk func(n *html.Node, inBody bool)
	walk = func(n *html.Node, inBody bool) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			case "title":
				if sections.Title == "" {
					sections.Title = collapse(textOf(n))
				}
				return
			case "meta":
				if strings.EqualFold(attr(n, "name"), "description") && sections.Abstract == "" {
					sections.Abstract = collapse(attr(n, "content"))
				}
			case "body":
				inBody = true
			}
		}
		if n.Type == html.TextNode && inBody {
			body.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inBody)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			body.WriteString("\n\n")
		}
	}
	walk(doc, false)

	sections.Content = paragraphs(body.String())
	return sections, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var buf strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extractText(c)
		}
	}
	extractText(n)
	return buf.String()
}

// XMLReader reads TEI documents: teiHeader titleStmt title, the abstract
// element (anywhere) and the body text.
type XMLReader struct{}

// Read implements Reader.
func (XMLReader) Read(r io.Reader) (Sections, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.CharsetReader = charsetReader

	var sections Sections
	var title, abstract, content strings.Builder
	var stack []string

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Sections{}, fmt.Errorf("parse xml: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			stack = append(stack, el.Name.Local)
		case xml.EndElement:
			if len(stack) > 0 {
				if name := stack[len(stack)-1]; name == "p" || name == "head" || name == "div" {
					switch {
					case within(stack, "abstract"):
						abstract.WriteString("\n\n")
					case within(stack, "body"):
						content.WriteString("\n\n")
					}
				}
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			switch {
			case within(stack, "titleStmt") && within(stack, "title"):
				if title.Len() == 0 {
					title.Write(el)
				}
			case within(stack, "abstract"):
				abstract.Write(el)
			case within(stack, "body"):
				content.Write(el)
			}
		}
	}

	sections.Title = collapse(title.String())
	sections.Abstract = paragraphs(abstract.String())
	sections.Content = paragraphs(content.String())
	return sections, nil
}

func within(stack []string, name string) bool {
	for _, s := range stack {
		if s == name {
			return true
		}
	}
	return false
}

// collapse joins all whitespace runs into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// paragraphs collapses whitespace inside paragraphs and keeps blank lines
// between them.
func paragraphs(s string) string {
	parts := strings.Split(s, "\n\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = collapse(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}

// ReaderFor selects a reader by file extension. Unknown extensions are read
// as plain text.
func ReaderFor(path string) Reader {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".xhtml":
		return HTMLReader{}
	case ".xml", ".tei":
		return XMLReader{}
	default:
		return TextReader{}
	}
}

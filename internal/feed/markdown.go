package feed

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// MarkdownRenderer turns a post body into HTML for clients that ask for a
// rendered representation.
type MarkdownRenderer struct {
	engine goldmark.Markdown
}

func NewMarkdownRenderer() *MarkdownRenderer {
	engine := goldmark.New(
		goldmark.WithExtensions(
			extension.Table,
			extension.Strikethrough,
			extension.Linkify,
			extension.TaskList,
			emoji.Emoji,
			highlighting.NewHighlighting(
				// Common themes: "monokai", "dracula", "github", "solarized-dark"
				highlighting.WithStyle("solarized-dark"),
				highlighting.WithGuessLanguage(true),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(util.Prioritized(&imageTransformer{}, 100)),
		),
	)
	return &MarkdownRenderer{engine: engine}
}

func (m *MarkdownRenderer) Render(source []byte) ([]byte, error) {
	var buf bytes.Buffer
	// html output is larger than markdown add 50% to the buffer
	buf.Grow(len(source) + (len(source) / 2))

	if err := m.engine.Convert(source, &buf); err != nil {
		return nil, fmt.Errorf("markdown conversion: %w", err)
	}

	return bytes.Clone(buf.Bytes()), nil
}

// imageTransformer points relative image references at the asset serving
// route, leaving external links untouched.
type imageTransformer struct{}

func (a *imageTransformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		// walk has finished
		if !entering {
			return ast.WalkContinue, nil
		}

		img, ok := n.(*ast.Image)
		if !ok {
			return ast.WalkContinue, nil
		}

		originPath := string(img.Destination)
		if isExternalLink(originPath) || strings.HasPrefix(originPath, "/images/") {
			return ast.WalkContinue, nil
		}

		newPath, err := url.JoinPath("/images/", originPath)
		if err != nil {
			return ast.WalkContinue, err
		}

		img.Destination = []byte(newPath)

		return ast.WalkContinue, nil
	})
}

func isExternalLink(s string) bool {
	s = strings.ToLower(s)

	for _, prefix := range []string{"http", "https", "ftp", "ftps", "sftp"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

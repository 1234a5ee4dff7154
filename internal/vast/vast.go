// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package vast reads just enough of a VAST document to unlock content with
// a single interactive ad.
package vast

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/google/uuid"
)

var (
	// ErrNotInteractive means the first inline ad is not served by the
	// interactive ad system.
	ErrNotInteractive = errors.New("vast: first ad is not interactive")
	// ErrMissingElement means a required element is absent.
	ErrMissingElement = errors.New("vast: missing element")
	// ErrInvalidParameters means AdParameters is not a JSON object.
	ErrInvalidParameters = errors.New("vast: ad parameters are not a JSON object")
)

// InteractiveAdSystemPrefix marks ads rendered by the interactive SDK.
const InteractiveAdSystemPrefix = "trueX"

// maxDocumentBytes bounds fetched documents.
const maxDocumentBytes = 4 << 20

// Macros substituted by FillMacros.
var Macros = []string{"[stream_id]", "[user_id]"}

// Node is one element. Children are grouped by element name in document
// order; CDATA holds the element's character data.
type Node struct {
	Name     string
	Attrs    map[string]string
	Children map[string][]*Node
	CDATA    string
}

// Get returns the idx-th child called name. It is safe on a nil node.
func (n *Node) Get(name string, idx int) *Node {
	if n == nil || idx < 0 {
		return nil
	}
	list := n.Children[name]
	if idx >= len(list) {
		return nil
	}
	return list[idx]
}

// Text returns the trimmed character data, or "" on a nil node.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.CDATA)
}

// Attr returns an attribute value, or "" when absent.
func (n *Node) Attr(name string) string {
	if n == nil {
		return ""
	}
	return n.Attrs[name]
}

// Parse builds the element tree of an XML document. Namespaces are ignored.
func Parse(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = true

	var root *Node
	var stack []*Node
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("vast: parse: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{
				Name:     t.Name.Local,
				Attrs:    make(map[string]string, len(t.Attr)),
				Children: make(map[string][]*Node),
			}
			for _, a := range t.Attr {
				n.Attrs[a.Name.Local] = a.Value
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children[n.Name] = append(parent.Children[n.Name], n)
			} else if root == nil {
				root = n
			}
			stack = append(stack, n)
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].CDATA += string(t)
			}
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("%w: document element", ErrMissingElement)
	}
	return root, nil
}

// InteractiveParameters returns the JSON configuration of the first inline
// ad when it is served by the interactive ad system.
func InteractiveParameters(root *Node) (json.RawMessage, error) {
	inline := root.Get("Ad", 0).Get("InLine", 0)
	if inline == nil {
		return nil, fmt.Errorf("%w: Ad/InLine", ErrMissingElement)
	}
	system := inline.Get("AdSystem", 0).Text()
	if !strings.HasPrefix(system, InteractiveAdSystemPrefix) {
		return nil, fmt.Errorf("%w: ad system %q", ErrNotInteractive, system)
	}
	params := inline.Get("Creatives", 0).
		Get("Creative", 0).
		Get("Linear", 0).
		Get("AdParameters", 0)
	if params == nil {
		return nil, fmt.Errorf("%w: Creatives/Creative/Linear/AdParameters", ErrMissingElement)
	}
	raw := []byte(params.Text())
	_, typ, _, err := jsonparser.Get(raw)
	if err != nil || typ != jsonparser.Object || !json.Valid(raw) {
		return nil, ErrInvalidParameters
	}
	return json.RawMessage(raw), nil
}

// FillMacros replaces every known macro with a fresh random UUID.
func FillMacros(rawURL string) string {
	for _, m := range Macros {
		rawURL = strings.ReplaceAll(rawURL, m, uuid.NewString())
	}
	return rawURL
}

// Fetch downloads and parses a VAST document. Macros in url are filled
// before the request.
func Fetch(ctx context.Context, client *http.Client, url string) (*Node, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, FillMacros(url), nil)
	if err != nil {
		return nil, fmt.Errorf("vast: build request: %w", err)
	}
	req.Header.Set("Accept", "application/xml, text/xml")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vast: fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vast: fetch: unexpected status %d", resp.StatusCode)
	}
	return Parse(io.LimitReader(resp.Body, maxDocumentBytes))
}

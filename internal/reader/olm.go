package reader

import (
	"encoding/xml"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-message/charset"
)

// Document is the ordered flattening of one Outlook-for-Mac XML export
// file. Element text is keyed by lower-cased local tag name (namespaces
// stripped) in document order, and attribute values are retained for
// fallback scans. Flattening deliberately ignores nesting: export
// schemas vary wildly between Outlook versions, but the tag names they
// use for a given field are stable.
type Document struct {
	// Path is the file this document was parsed from.
	Path string

	nodes []xmlNode
	byTag map[string][]int
}

type xmlNode struct {
	tag   string
	text  string
	attrs []string
}

// Pick returns the value of the first candidate key that has one.
// Order is significant: callers list keys from most to least specific.
func (d *Document) Pick(keys ...string) string {
	for _, k := range keys {
		if idx := d.byTag[k]; len(idx) > 0 {
			return d.nodes[idx[0]].text
		}
	}
	return ""
}

// Values returns every non-empty text value recorded under key, in
// document order.
func (d *Document) Values(key string) []string {
	idx := d.byTag[key]
	if len(idx) == 0 {
		return nil
	}
	out := make([]string, 0, len(idx))
	for _, i := range idx {
		out = append(out, d.nodes[i].text)
	}
	return out
}

// AttrValues returns the attribute values of every element with the
// given tag, in document order, including elements with no text.
func (d *Document) AttrValues(tag string) []string {
	var out []string
	for _, n := range d.nodes {
		if n.tag == tag {
			out = append(out, n.attrs...)
		}
	}
	return out
}

// EachValue visits every non-empty element text in document order until
// fn returns false.
func (d *Document) EachValue(fn func(tag, text string) bool) {
	for _, n := range d.nodes {
		if n.text == "" {
			continue
		}
		if !fn(n.tag, n.text) {
			return
		}
	}
}

// ParseDocument reads and flattens one XML export file.
func ParseDocument(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return flattenXML(f, path)
}

// flattenXML walks the token stream, recording each element's leading
// text (the character data before its first child element, the part
// exporters put field values in) and its attribute values.
func flattenXML(r io.Reader, path string) (*Document, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.CharsetReader = charset.Reader

	d := &Document{Path: path, byTag: map[string][]int{}}

	type frame struct {
		idx      int
		hasChild bool
	}
	var stack []frame

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) > 0 {
				stack[len(stack)-1].hasChild = true
			}
			n := xmlNode{tag: strings.ToLower(t.Name.Local)}
			for _, a := range t.Attr {
				if v := strings.TrimSpace(a.Value); v != "" {
					n.attrs = append(n.attrs, v)
				}
			}
			d.nodes = append(d.nodes, n)
			stack = append(stack, frame{idx: len(d.nodes) - 1})
		case xml.CharData:
			if len(stack) > 0 && !stack[len(stack)-1].hasChild {
				i := stack[len(stack)-1].idx
				d.nodes[i].text += string(t)
			}
		case xml.EndElement:
			if len(stack) > 0 {
				i := stack[len(stack)-1].idx
				stack = stack[:len(stack)-1]
				d.nodes[i].text = strings.TrimSpace(d.nodes[i].text)
			}
		}
	}

	for i, n := range d.nodes {
		if n.text != "" {
			d.byTag[n.tag] = append(d.byTag[n.tag], i)
		}
	}
	return d, nil
}

// XMLItem is one Outlook-for-Mac XML document found during a walk.
// Doc is nil when Err is set.
type XMLItem struct {
	Doc  *Document
	Path string
	Err  error
}

// WalkOutlookXML walks root recursively and yields one item per .xml
// file. Export bookkeeping files (categories.xml) are skipped.
func WalkOutlookXML(root string, fn func(item XMLItem) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d == nil {
				return err
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		name := strings.ToLower(d.Name())
		if !strings.HasSuffix(name, ".xml") || name == "categories.xml" {
			return nil
		}

		doc, err := ParseDocument(path)
		if err != nil {
			return fn(XMLItem{Path: path, Err: err})
		}
		return fn(XMLItem{Doc: doc, Path: path})
	})
}

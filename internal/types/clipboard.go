package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Kind identifies which content variant a clipboard item carries.
type Kind int

const (
	KindText  Kind = 1
	KindImage Kind = 2
	KindHTML  Kind = 3
)

// String returns the lower-case name used in config, CLI flags and JSON.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImage:
		return "image"
	case KindHTML:
		return "html"
	default:
		return "unknown"
	}
}

// Tag is the short prefix used to namespace fingerprints by kind.
func (k Kind) Tag() string {
	switch k {
	case KindText:
		return "T:"
	case KindImage:
		return "I:"
	case KindHTML:
		return "H:"
	default:
		return "?:"
	}
}

// ParseKind parses the names produced by Kind.String.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return KindText, nil
	case "image":
		return KindImage, nil
	case "html":
		return KindHTML, nil
	}
	return 0, fmt.Errorf("unknown content kind %q", s)
}

// Content is the payload of a clipboard item. Exactly one of Text, Image
// or HTML; the set is closed.
type Content interface {
	Kind() Kind
	// Bytes returns the payload as stored, used for fingerprints and
	// byte-level comparison.
	Bytes() []byte
	isContent()
}

// Text is plain text, including canonicalized URLs.
type Text string

// Image is a PNG-encoded image.
type Image []byte

// HTML is raw markup as copied.
type HTML string

func (Text) Kind() Kind  { return KindText }
func (Image) Kind() Kind { return KindImage }
func (HTML) Kind() Kind  { return KindHTML }

func (t Text) Bytes() []byte  { return []byte(t) }
func (i Image) Bytes() []byte { return []byte(i) }
func (h HTML) Bytes() []byte  { return []byte(h) }

func (Text) isContent()  {}
func (Image) isContent() {}
func (HTML) isContent()  {}

// NewContent builds the variant for kind from raw payload bytes.
func NewContent(kind Kind, payload []byte) (Content, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("empty %s payload", kind)
	}
	switch kind {
	case KindText:
		return Text(payload), nil
	case KindImage:
		return Image(append([]byte(nil), payload...)), nil
	case KindHTML:
		return HTML(payload), nil
	}
	return nil, fmt.Errorf("unknown content kind %d", int(kind))
}

// SameContent reports whether a and b have the same kind and
// byte-identical payloads.
func SameContent(a, b Content) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Kind() == b.Kind() && bytes.Equal(a.Bytes(), b.Bytes())
}

// ClipItem is one persisted history entry. Everything except Favorite is
// immutable once stored.
type ClipItem struct {
	ID        uint64
	CreatedAt time.Time
	Content   Content
	Favorite  bool
}

// Kind is shorthand for item.Content.Kind().
func (c *ClipItem) Kind() Kind {
	if c == nil || c.Content == nil {
		return 0
	}
	return c.Content.Kind()
}

type clipItemJSON struct {
	ID        uint64    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Kind      string    `json:"kind"`
	Text      string    `json:"text,omitempty"`
	Image     []byte    `json:"image,omitempty"`
	HTML      string    `json:"html,omitempty"`
	Favorite  bool      `json:"favorite"`
}

// MarshalJSON flattens the content variant into kind plus one populated field.
func (c ClipItem) MarshalJSON() ([]byte, error) {
	out := clipItemJSON{
		ID:        c.ID,
		CreatedAt: c.CreatedAt,
		Favorite:  c.Favorite,
	}
	switch v := c.Content.(type) {
	case Text:
		out.Kind, out.Text = KindText.String(), string(v)
	case Image:
		out.Kind, out.Image = KindImage.String(), []byte(v)
	case HTML:
		out.Kind, out.HTML = KindHTML.String(), string(v)
	default:
		return nil, fmt.Errorf("clip item %d has no content", c.ID)
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (c *ClipItem) UnmarshalJSON(data []byte) error {
	var in clipItemJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	kind, err := ParseKind(in.Kind)
	if err != nil {
		return err
	}
	var payload []byte
	switch kind {
	case KindText:
		payload = []byte(in.Text)
	case KindImage:
		payload = in.Image
	case KindHTML:
		payload = []byte(in.HTML)
	}
	content, err := NewContent(kind, payload)
	if err != nil {
		return err
	}
	*c = ClipItem{
		ID:        in.ID,
		CreatedAt: in.CreatedAt,
		Content:   content,
		Favorite:  in.Favorite,
	}
	return nil
}

// Note is a free-form text record kept alongside the clipboard history.
type Note struct {
	ID        uint64    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Content   string    `json:"content"`
}

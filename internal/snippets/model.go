package snippets

import (
	"encoding/base64"
	"time"
)

const (
	DefaultLanguage = "plaintext"
	PreviewLength   = 100
)

type Snippet struct {
	ID        string    `json:"snip_id"`
	Title     string    `json:"title"`
	Body      string    `json:"snip"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"created_at"`
}

type Image struct {
	Data        []byte
	ContentType string
}

// Record is a snippet reconstructed with its tag names and image.
type Record struct {
	Snippet
	Tags  []string
	Image *Image
}

// View is the wire form of a Record. Image is nil when the snippet has none.
type View struct {
	Title    string   `json:"title"`
	Snip     string   `json:"snip"`
	Language string   `json:"language"`
	Tags     []string `json:"tags"`
	Image    *string  `json:"image"`
}

func (r *Record) View() View {
	v := View{
		Title:    r.Title,
		Snip:     r.Body,
		Language: r.Language,
		Tags:     r.Tags,
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}
	if r.Image != nil {
		encoded := base64.StdEncoding.EncodeToString(r.Image.Data)
		v.Image = &encoded
	}
	return v
}

// Summary is one row of the discovery and search projections.
type Summary struct {
	ID        string
	Title     string
	Body      string
	Tags      []string
	CreatedAt time.Time
}

type Preview struct {
	ID      string   `json:"snip_id"`
	Title   string   `json:"title"`
	Preview string   `json:"preview"`
	Tags    []string `json:"tags"`
}

type SubmitRequest struct {
	Title    string
	Body     string
	Language string
	Tags     []string
	Image    *Image
}

type Stats struct {
	Snippets int64
	Tags     int64
}

// PreviewOf returns the first n characters (runes) of body.
func PreviewOf(body string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range body {
		if count == n {
			return body[:i]
		}
		count++
	}
	return body
}

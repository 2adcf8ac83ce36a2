package comments

import "time"

const MaxLength = 2000

type Comment struct {
	ID        int64     `json:"-"`
	SnippetID string    `json:"-"`
	Body      string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

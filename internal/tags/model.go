package tags

type Tag struct {
	ID   int64  `json:"tag_id"`
	Name string `json:"tag_name"`
}

// Label is the per-snippet projection, which carries the name only.
type Label struct {
	Name string `json:"tag_name"`
}

const SearchLimit = 10

package models

// Campaign mirrors the host platform's campaign entity, reduced to what the
// dashboard queries join against.
type Campaign struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	IsPublished bool   `json:"is_published"`
}

// ContactSource mirrors the host platform's contact-source entity.
type ContactSource struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

package models

// Ref is an embedded reference to another upstream document ({_id, name, address})
type Ref struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

// FileRef points at an uploaded document or image held by the backend
type FileRef struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

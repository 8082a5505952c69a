package models

// Article is the plain-text body extracted from one fetched web page.
type Article struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

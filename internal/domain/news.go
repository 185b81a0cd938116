package domain

import "time"

// Article is a single news item.
type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"url_to_image,omitempty"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	Content     string    `json:"content,omitempty"`
}

// NewsPage is one page of articles for a query.
type NewsPage struct {
	Symbol       string    `json:"symbol,omitempty"`
	CompanyName  string    `json:"company_name,omitempty"`
	Page         int       `json:"page"`
	PageSize     int       `json:"page_size"`
	TotalResults int       `json:"total_results"`
	Articles     []Article `json:"articles"`
}

package pexels

// SearchResponse is the body returned by the search endpoint
type SearchResponse struct {
	Page         int     `json:"page"`
	PerPage      int     `json:"per_page"`
	TotalResults int     `json:"total_results"`
	Photos       []Photo `json:"photos"`
}

// Photo is a single search hit
type Photo struct {
	ID  int64    `json:"id"`
	Alt string   `json:"alt"`
	Src PhotoSrc `json:"src"`
}

// PhotoSrc lists the pre-sized renditions of a photo
type PhotoSrc struct {
	Original string `json:"original"`
	Large    string `json:"large"`
	Medium   string `json:"medium"`
}

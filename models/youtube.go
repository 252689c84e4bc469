package models

type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

type VideoSnippet struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Thumbnails  map[string]Thumbnail `json:"thumbnails"`
	PublishedAt string               `json:"publishedAt"`
}

type VideoStatistics struct {
	ViewCount string `json:"viewCount,omitempty"`
	LikeCount string `json:"likeCount,omitempty"`
}

// Video is one entry of the channel feed, shaped like a Data API search item.
type Video struct {
	ID         string          `json:"id"`
	Snippet    VideoSnippet    `json:"snippet"`
	Statistics VideoStatistics `json:"statistics"`
}

package services

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"media-site-service/cache"
	"media-site-service/logging"
	"media-site-service/metrics"
	"media-site-service/models"
)

const (
	maxLatestVideos = 6
	videoCacheTTL   = 10 * time.Minute

	DefaultYouTubeAPIURL = "https://www.googleapis.com/youtube/v3"
	DefaultYouTubeRSSURL = "https://www.youtube.com/feeds/videos.xml"
)

type YouTubeConfig struct {
	APIKey    string
	ChannelID string
	APIURL    string
	RSSURL    string
	Timeout   time.Duration
}

// YouTubeService fetches a channel's latest uploads, preferring the Data
// API and falling back to the public RSS feed.
type YouTubeService struct {
	cfg        YouTubeConfig
	client     *http.Client
	apiBreaker *gobreaker.CircuitBreaker[[]models.Video]
	rssBreaker *gobreaker.CircuitBreaker[[]models.Video]
	cache      *cache.TTLCache[string, []models.Video]
	log        zerolog.Logger
}

func NewYouTubeService(cfg YouTubeConfig) *YouTubeService {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultYouTubeAPIURL
	}
	if cfg.RSSURL == "" {
		cfg.RSSURL = DefaultYouTubeRSSURL
	}
	return &YouTubeService{
		cfg:        cfg,
		client:     &http.Client{Timeout: cfg.Timeout},
		apiBreaker: newBreaker[[]models.Video]("youtube-api"),
		rssBreaker: newBreaker[[]models.Video]("youtube-rss"),
		cache:      cache.New[string, []models.Video](videoCacheTTL, videoCacheTTL),
		log:        logging.With("youtube"),
	}
}

// Close stops the cache sweeper.
func (s *YouTubeService) Close() {
	s.cache.Close()
}

// LatestVideos returns up to six recent videos. Failures of both sources
// yield an empty list, never an error. Non-empty results are cached.
func (s *YouTubeService) LatestVideos(ctx context.Context) []models.Video {
	if videos, ok := s.cache.Get(s.cfg.ChannelID); ok {
		return videos
	}

	if s.cfg.APIKey != "" {
		videos, err := s.apiBreaker.Execute(func() ([]models.Video, error) {
			return s.fetchAPI(ctx)
		})
		if err == nil && len(videos) > 0 {
			s.cache.Set(s.cfg.ChannelID, videos)
			return videos
		}
		if err != nil {
			metrics.UpstreamFailures.WithLabelValues("youtube-api").Inc()
			s.log.Warn().Err(err).Msg("YouTube API failed, switching to RSS fallback")
		}
	}

	s.log.Debug().Str("channel", s.cfg.ChannelID).Msg("Using YouTube RSS feed")
	videos, err := s.rssBreaker.Execute(func() ([]models.Video, error) {
		return s.fetchRSS(ctx)
	})
	if err != nil {
		metrics.UpstreamFailures.WithLabelValues("youtube-rss").Inc()
		s.log.Error().Err(err).Msg("YouTube RSS fallback failed")
		return []models.Video{}
	}
	if len(videos) > 0 {
		s.cache.Set(s.cfg.ChannelID, videos)
	}
	return videos
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet models.VideoSnippet `json:"snippet"`
	} `json:"items"`
}

type statisticsResponse struct {
	Items []struct {
		ID         string                 `json:"id"`
		Statistics models.VideoStatistics `json:"statistics"`
	} `json:"items"`
}

func (s *YouTubeService) fetchAPI(ctx context.Context) ([]models.Video, error) {
	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("order", "date")
	q.Set("maxResults", fmt.Sprint(maxLatestVideos))
	q.Set("type", "video")
	q.Set("channelId", s.cfg.ChannelID)
	q.Set("key", s.cfg.APIKey)

	var search searchResponse
	if err := s.getJSON(ctx, s.cfg.APIURL+"/search?"+q.Encode(), &search); err != nil {
		return nil, fmt.Errorf("search videos: %w", err)
	}
	if len(search.Items) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(search.Items))
	for _, item := range search.Items {
		ids = append(ids, item.ID.VideoID)
	}

	stats := make(map[string]models.VideoStatistics, len(ids))
	sq := url.Values{}
	sq.Set("part", "statistics")
	sq.Set("id", strings.Join(ids, ","))
	sq.Set("key", s.cfg.APIKey)
	var statsResp statisticsResponse
	if err := s.getJSON(ctx, s.cfg.APIURL+"/videos?"+sq.Encode(), &statsResp); err != nil {
		return nil, fmt.Errorf("video statistics: %w", err)
	}
	for _, item := range statsResp.Items {
		stats[item.ID] = item.Statistics
	}

	videos := make([]models.Video, 0, len(search.Items))
	for _, item := range search.Items {
		videos = append(videos, models.Video{
			ID:         item.ID.VideoID,
			Snippet:    item.Snippet,
			Statistics: stats[item.ID.VideoID],
		})
	}
	return videos, nil
}

func (s *YouTubeService) getJSON(ctx context.Context, endpoint string, v any) error {
	resp, err := s.get(ctx, endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}

func (s *YouTubeService) get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp, nil
}

// Atom feed elements; namespaces are matched by local name.
type rssFeed struct {
	Entries []rssEntry `xml:"entry"`
}

type rssEntry struct {
	VideoID   string `xml:"videoId"`
	Title     string `xml:"title"`
	Published string `xml:"published"`
	Group     struct {
		Description string `xml:"description"`
		Thumbnail   struct {
			URL    string `xml:"url,attr"`
			Width  int    `xml:"width,attr"`
			Height int    `xml:"height,attr"`
		} `xml:"thumbnail"`
		Community struct {
			StarRating struct {
				Count string `xml:"count,attr"`
			} `xml:"starRating"`
			Statistics struct {
				Views string `xml:"views,attr"`
			} `xml:"statistics"`
		} `xml:"community"`
	} `xml:"group"`
}

func (s *YouTubeService) fetchRSS(ctx context.Context) ([]models.Video, error) {
	resp, err := s.get(ctx, s.cfg.RSSURL+"?channel_id="+url.QueryEscape(s.cfg.ChannelID))
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	var feed rssFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return videosFromFeed(feed), nil
}

func videosFromFeed(feed rssFeed) []models.Video {
	entries := feed.Entries
	if len(entries) > maxLatestVideos {
		entries = entries[:maxLatestVideos]
	}

	videos := make([]models.Video, 0, len(entries))
	for _, e := range entries {
		thumb := e.Group.Thumbnail
		videos = append(videos, models.Video{
			ID: e.VideoID,
			Snippet: models.VideoSnippet{
				Title:       e.Title,
				Description: e.Group.Description,
				Thumbnails: map[string]models.Thumbnail{
					"high": {URL: thumb.URL, Width: thumb.Width, Height: thumb.Height},
				},
				PublishedAt: e.Published,
			},
			Statistics: models.VideoStatistics{
				ViewCount: orZero(e.Group.Community.Statistics.Views),
				LikeCount: orZero(e.Group.Community.StarRating.Count),
			},
		})
	}
	return videos
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

package background

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/therealutkarshpriyadarshi/shortforge/internal/provider"
	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

const (
	defaultPexelsBaseURL = "https://api.pexels.com/videos"
	defaultSearchTimeout = 30 * time.Second
	defaultFetchTimeout  = 60 * time.Second
)

// PexelsConfig configures the Pexels video source
type PexelsConfig struct {
	APIKey          string
	BaseURL         string
	PerPage         int
	SearchTimeout   time.Duration
	DownloadTimeout time.Duration
}

// PexelsSource searches Pexels for portrait clips
type PexelsSource struct {
	cfg        PexelsConfig
	httpClient *http.Client
	pick       func(n int) int
}

// PexelsOption customizes the source
type PexelsOption func(*PexelsSource)

// WithHTTPClient overrides the default HTTP client
func WithHTTPClient(client *http.Client) PexelsOption {
	return func(p *PexelsSource) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// WithPicker overrides random clip selection
func WithPicker(pick func(n int) int) PexelsOption {
	return func(p *PexelsSource) {
		p.pick = pick
	}
}

// NewPexelsSource creates a source. A missing API key is reported on Fetch,
// not here, so the pipeline can still run on synthetic backgrounds.
func NewPexelsSource(cfg PexelsConfig, opts ...PexelsOption) *PexelsSource {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultPexelsBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.PerPage <= 0 {
		cfg.PerPage = 15
	}
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = defaultSearchTimeout
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = defaultFetchTimeout
	}

	p := &PexelsSource{
		cfg:        cfg,
		httpClient: &http.Client{},
		pick:       rand.IntN,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type pexelsSearchResponse struct {
	Videos []pexelsVideo `json:"videos"`
}

type pexelsVideo struct {
	ID         int               `json:"id"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	Duration   int               `json:"duration"`
	VideoFiles []pexelsVideoFile `json:"video_files"`
}

type pexelsVideoFile struct {
	ID       int    `json:"id"`
	Quality  string `json:"quality"`
	FileType string `json:"file_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Link     string `json:"link"`
}

// Fetch searches for query and downloads one clip to dst
func (p *PexelsSource) Fetch(ctx context.Context, query string, minDuration float64, dst string) (*models.BackgroundAsset, error) {
	if p.cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: pexels api key not configured", provider.ErrProviderUnavailable)
	}

	videos, err := p.search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, nil
	}

	candidates := make([]pexelsVideo, 0, len(videos))
	for _, v := range videos {
		if float64(v.Duration) >= minDuration {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		// short clips still work once looped
		candidates = videos
	}

	video := candidates[p.pick(len(candidates))]
	file, ok := bestFile(video.VideoFiles)
	if !ok {
		return nil, fmt.Errorf("pexels video %d has no mp4 files", video.ID)
	}

	if err := p.download(ctx, file.Link, dst); err != nil {
		return nil, err
	}

	return &models.BackgroundAsset{
		Path:      dst,
		Duration:  float64(video.Duration),
		Category:  query,
		FetchedAt: time.Now(),
		Width:     file.Width,
		Height:    file.Height,
		SourceID:  "pexels:" + strconv.Itoa(video.ID),
	}, nil
}

func (p *PexelsSource) search(ctx context.Context, query string) ([]pexelsVideo, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.SearchTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("query", query)
	params.Set("orientation", "portrait")
	params.Set("size", "medium")
	params.Set("per_page", strconv.Itoa(p.cfg.PerPage))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("pexels search: build request: %w", err)
	}
	req.Header.Set("Authorization", p.cfg.APIKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, provider.Classify(fmt.Errorf("pexels search: %w", err))
	}
	defer resp.Body.Close()

	if err := provider.CheckResponse(resp); err != nil {
		return nil, fmt.Errorf("pexels search: %w", err)
	}

	var result pexelsSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("pexels search: decode response: %w", err)
	}
	return result.Videos, nil
}

// bestFile prefers the tallest mp4 between 720 and 1080 pixels tall, then the tallest mp4
func bestFile(files []pexelsVideoFile) (pexelsVideoFile, bool) {
	var best pexelsVideoFile
	found := false
	for _, f := range files {
		if f.Link == "" || (f.FileType != "" && f.FileType != "video/mp4") {
			continue
		}
		if !found || fileRank(f) > fileRank(best) || (fileRank(f) == fileRank(best) && f.Height > best.Height) {
			best, found = f, true
		}
	}
	return best, found
}

func fileRank(f pexelsVideoFile) int {
	if f.Height >= 720 && f.Height <= 1080 {
		return 1
	}
	return 0
}

func (p *PexelsSource) download(ctx context.Context, link, dst string) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.DownloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return fmt.Errorf("pexels download: build request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return provider.Classify(fmt.Errorf("pexels download: %w", err))
	}
	defer resp.Body.Close()

	if err := provider.CheckResponse(resp); err != nil {
		return fmt.Errorf("pexels download: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("pexels download: create file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(dst)
		return provider.Classify(fmt.Errorf("pexels download: %w", err))
	}
	return out.Close()
}

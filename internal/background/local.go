package background

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/therealutkarshpriyadarshi/shortforge/internal/provider"
	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

var clipExtensions = map[string]bool{".mp4": true, ".mov": true, ".webm": true, ".mkv": true}

// LocalSource picks clips from a directory laid out as <dir>/<category>/*.mp4
type LocalSource struct {
	dir    string
	prober Prober
}

// NewLocalSource creates a source over a local clip library
func NewLocalSource(dir string, prober Prober) (*LocalSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("clip library %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("clip library %s is not a directory", dir)
	}
	return &LocalSource{dir: dir, prober: prober}, nil
}

type localClip struct {
	path     string
	duration float64
	width    int
	height   int
}

// Fetch copies the shortest clip covering minDuration, or the longest clip
// when none do, into dst
func (l *LocalSource) Fetch(ctx context.Context, query string, minDuration float64, dst string) (*models.BackgroundAsset, error) {
	paths, err := l.candidates(query)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, nil
	}

	var clips []localClip
	for _, p := range paths {
		info, err := l.prober.Inspect(ctx, p)
		if err != nil || !info.HasVideo || info.Duration <= 0 {
			continue
		}
		clips = append(clips, localClip{path: p, duration: info.Duration, width: info.Width, height: info.Height})
	}
	if len(clips) == 0 {
		return nil, nil
	}

	sort.Slice(clips, func(i, j int) bool { return clips[i].duration < clips[j].duration })
	chosen := clips[len(clips)-1]
	for _, c := range clips {
		if c.duration >= minDuration {
			chosen = c
			break
		}
	}

	if err := copyFile(chosen.path, dst); err != nil {
		return nil, err
	}

	return &models.BackgroundAsset{
		Path:      dst,
		Duration:  chosen.duration,
		Category:  query,
		FetchedAt: time.Now(),
		Width:     chosen.width,
		Height:    chosen.height,
		SourceID:  "local:" + filepath.Base(chosen.path),
	}, nil
}

// candidates lists clips in the category folder, falling back to the library root
func (l *LocalSource) candidates(query string) ([]string, error) {
	for _, dir := range []string{filepath.Join(l.dir, NormalizeCategory(query)), l.dir} {
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read clip library: %w", provider.ErrProviderUnavailable, err)
		}

		var paths []string
		for _, e := range entries {
			if e.IsDir() || !clipExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
				continue
			}
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
		if len(paths) > 0 {
			sort.Strings(paths)
			return paths, nil
		}
	}
	return nil, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open clip: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create clip copy: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copy clip: %w", err)
	}
	return out.Close()
}

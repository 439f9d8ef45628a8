package services

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/runeterra-roulette/backend/internal/metrics"
	"github.com/runeterra-roulette/backend/internal/models"
)

const (
	// DefaultSetDataURL hosts the latest set bundles.
	DefaultSetDataURL = "https://dd.b.pvp.net/latest"

	defaultDownloadTimeout = 5 * time.Minute
)

// SetArchiveName is the bundle name for a set, e.g. set1-lite-en_us.zip.
func SetArchiveName(setNum int, language string) string {
	return fmt.Sprintf("set%d-lite-%s.zip", setNum, language)
}

// SetMemberPath is the path of the set JSON inside its bundle, e.g.
// en_us/data/set1-en_us.json.
func SetMemberPath(setNum int, language string) string {
	return fmt.Sprintf("%s/data/set%d-%s.json", language, setNum, language)
}

type SetFetcherConfig struct {
	BaseURL  string
	WorkDir  string
	Language string
	Timeout  time.Duration
	// Attempts is the number of tries per download; 1 means no retry.
	Attempts int
	// Interval is the minimum gap between download attempts.
	Interval time.Duration
}

// SetFetcher downloads set bundles into a working directory and unpacks the
// set JSON from them.
type SetFetcher struct {
	client   *http.Client
	baseURL  string
	workDir  string
	language string
	attempts int
	limiter  *rate.Limiter
}

func NewSetFetcher(cfg SetFetcherConfig) *SetFetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultSetDataURL
	}
	if cfg.Language == "" {
		cfg.Language = models.DefaultLanguage
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = filepath.Join(os.TempDir(), "runeterra-sets")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultDownloadTimeout
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}

	limit := rate.Inf
	if cfg.Interval > 0 {
		limit = rate.Every(cfg.Interval)
	}

	return &SetFetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		workDir:  cfg.WorkDir,
		language: cfg.Language,
		attempts: cfg.Attempts,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

func (f *SetFetcher) WorkDir() string { return f.workDir }

// Prepare creates the working directory. An existing directory is fine.
func (f *SetFetcher) Prepare() error {
	if info, err := os.Stat(f.workDir); err == nil && info.IsDir() {
		log.Printf("Working directory %s already exists", f.workDir)
		return nil
	}
	if err := os.MkdirAll(f.workDir, 0755); err != nil {
		return fmt.Errorf("failed to create working directory: %w", err)
	}
	log.Printf("Working directory %s created", f.workDir)
	return nil
}

// Cleanup removes the working directory and everything in it.
func (f *SetFetcher) Cleanup() error {
	if err := os.RemoveAll(f.workDir); err != nil {
		return fmt.Errorf("failed to delete working directory: %w", err)
	}
	log.Printf("Working directory %s deleted", f.workDir)
	return nil
}

// Download streams the bundle for setNum into the working directory and
// returns its path. Failures wrap ErrDownload.
func (f *SetFetcher) Download(ctx context.Context, setNum int) (string, error) {
	name := SetArchiveName(setNum, f.language)
	dest := filepath.Join(f.workDir, name)
	url := f.baseURL + "/" + name

	var lastErr error
	for attempt := 1; attempt <= f.attempts; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			lastErr = err
			break
		}

		log.Printf("Requesting %s (attempt %d/%d)", url, attempt, f.attempts)
		start := time.Now()
		lastErr = f.download(ctx, url, dest)
		metrics.SetDownloadDuration.Observe(time.Since(start).Seconds())
		if lastErr == nil {
			metrics.SetDownloadsTotal.WithLabelValues("success").Inc()
			log.Printf("Completed download of %s", name)
			return dest, nil
		}
		log.Printf("Download of %s failed: %v", name, lastErr)
	}

	metrics.SetDownloadsTotal.WithLabelValues("failed").Inc()
	return "", fmt.Errorf("%w: %s: %v", ErrDownload, name, lastErr)
}

func (f *SetFetcher) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("failed to write archive file: %w", err)
	}
	return out.Close()
}

// Extract unpacks only the set JSON from a downloaded bundle, keeping its
// in-archive path under the working directory, and returns where it landed.
// Failures wrap ErrExtraction.
func (f *SetFetcher) Extract(setNum int) (string, error) {
	archivePath := filepath.Join(f.workDir, SetArchiveName(setNum, f.language))
	member := SetMemberPath(setNum, f.language)

	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrExtraction, archivePath, err)
	}
	defer r.Close()

	var file *zip.File
	for _, zf := range r.File {
		if zf.Name == member {
			file = zf
			break
		}
	}
	if file == nil {
		return "", fmt.Errorf("%w: %s not found in %s", ErrExtraction, member, archivePath)
	}

	dest := filepath.Join(f.workDir, filepath.FromSlash(member))
	if !strings.HasPrefix(dest, filepath.Clean(f.workDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: invalid file path: %s", ErrExtraction, dest)
	}

	log.Printf("Extracting %s from %s to %s", member, archivePath, dest)
	if err := extractZipFile(file, dest); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrExtraction, member, err)
	}
	return dest, nil
}

func extractZipFile(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), os.ModePerm); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

package stoplist

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cognicore/triage/pkg/triage/internalerr"
)

//go:embed lists/german lists/english
var bundled embed.FS

// DefaultLanguages are the word lists the ticket cleaner is built from.
var DefaultLanguages = []string{"german", "english"}

// Fetcher populates dir with one plain-text word list per language.
type Fetcher interface {
	Fetch(ctx context.Context, dir string, languages []string) error
}

// Resource describes where the stopword lists live on disk.
type Resource struct {
	Dir       string   // directory holding one file per language; empty means bundled lists
	Languages []string // defaults to DefaultLanguages
	Fetcher   Fetcher  // invoked once if a list is missing; nil disables fetching
	Extra     []string // additional project-specific stopwords
}

// Load builds the stopword set. A missing list triggers exactly one fetch
// followed by one retry; if either fails the error is a
// *internalerr.ResourceUnavailableError.
func Load(ctx context.Context, r Resource) (*Set, error) {
	langs := r.Languages
	if len(langs) == 0 {
		langs = DefaultLanguages
	}

	if r.Dir == "" {
		lists, err := readBundled(langs)
		if err != nil {
			return nil, &internalerr.ResourceUnavailableError{Resource: "bundled stopwords", Err: err}
		}
		return New(append(lists, r.Extra)...), nil
	}

	lists, err := readDir(r.Dir, langs)
	if err == nil {
		return New(append(lists, r.Extra)...), nil
	}
	if !errors.Is(err, os.ErrNotExist) || r.Fetcher == nil {
		return nil, &internalerr.ResourceUnavailableError{Resource: r.Dir, Err: err}
	}

	if ferr := r.Fetcher.Fetch(ctx, r.Dir, langs); ferr != nil {
		return nil, &internalerr.ResourceUnavailableError{Resource: r.Dir, Err: fmt.Errorf("fetch: %w", ferr)}
	}

	lists, err = readDir(r.Dir, langs)
	if err != nil {
		return nil, &internalerr.ResourceUnavailableError{Resource: r.Dir, Err: err}
	}
	return New(append(lists, r.Extra)...), nil
}

// Bundled returns the German+English set compiled into the binary.
func Bundled() (*Set, error) {
	return Load(context.Background(), Resource{})
}

func readBundled(langs []string) ([][]string, error) {
	lists := make([][]string, 0, len(langs))
	for _, lang := range langs {
		data, err := bundled.ReadFile("lists/" + lang)
		if err != nil {
			return nil, fmt.Errorf("bundled list %s: %w", lang, err)
		}
		lists = append(lists, splitLines(string(data)))
	}
	return lists, nil
}

func readDir(dir string, langs []string) ([][]string, error) {
	lists := make([][]string, 0, len(langs))
	for _, lang := range langs {
		data, err := os.ReadFile(filepath.Join(dir, lang))
		if err != nil {
			return nil, fmt.Errorf("read %s list: %w", lang, err)
		}
		lists = append(lists, splitLines(string(data)))
	}
	return lists, nil
}

// BundledFetcher writes the embedded lists into the cache directory.
type BundledFetcher struct{}

// Fetch implements Fetcher.
func (BundledFetcher) Fetch(_ context.Context, dir string, languages []string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, lang := range languages {
		data, err := bundled.ReadFile("lists/" + lang)
		if err != nil {
			return fmt.Errorf("no bundled list for %s: %w", lang, err)
		}
		if err := writeIfMissing(filepath.Join(dir, lang), data); err != nil {
			return err
		}
	}
	return nil
}

// HTTPFetcher downloads <BaseURL>/<language> for each missing list.
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
}

// Fetch implements Fetcher.
func (f HTTPFetcher) Fetch(ctx context.Context, dir string, languages []string) error {
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	base := strings.TrimRight(f.BaseURL, "/")
	for _, lang := range languages {
		path := filepath.Join(dir, lang)
		if _, err := os.Stat(path); err == nil {
			continue
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/"+lang, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("get %s: %w", lang, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("read %s: %w", lang, err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("get %s: unexpected status %d", lang, resp.StatusCode)
		}
		if err := writeIfMissing(path, body); err != nil {
			return err
		}
	}
	return nil
}

func writeIfMissing(path string, data []byte) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

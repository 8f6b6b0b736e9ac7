package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// PageSnapshot is what the page looked like at one moment.
type PageSnapshot struct {
	URL        string
	Title      string
	HTML       string
	Screenshot []byte
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Save writes <name>.html and, when present, <name>.png under dir and
// returns the written paths.
func (s *PageSnapshot) Save(dir, name string) ([]string, error) {
	if s == nil {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifacts dir: %w", err)
	}
	base := filepath.Join(dir, unsafeName.ReplaceAllString(name, "_"))

	var paths []string
	if s.HTML != "" {
		p := base + ".html"
		if err := os.WriteFile(p, []byte(s.HTML), 0o644); err != nil {
			return paths, fmt.Errorf("write html snapshot: %w", err)
		}
		paths = append(paths, p)
	}
	if len(s.Screenshot) > 0 {
		p := base + ".png"
		if err := os.WriteFile(p, s.Screenshot, 0o644); err != nil {
			return paths, fmt.Errorf("write screenshot: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

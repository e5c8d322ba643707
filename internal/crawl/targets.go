package crawl

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"ConsentCrawl/internal/models"
)

// ParseTargets turns the CLI target argument into a URL list. A path ending in
// .txt is read one URL per line (comments skipped, lower-cased, de-duplicated);
// anything else is a comma-separated list.
func ParseTargets(arg string) ([]string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil, fmt.Errorf("%w: no URL or .txt file with URLs given", models.ErrConfig)
	}

	if strings.HasSuffix(arg, ".txt") {
		return readTargetFile(arg)
	}

	var urls []string
	for _, part := range strings.Split(arg, ",") {
		if url := strings.TrimSpace(part); url != "" {
			urls = append(urls, url)
		}
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: no URLs in %q", models.ErrConfig, arg)
	}
	return urls, nil
}

func readTargetFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open target file: %v", models.ErrConfig, err)
	}
	defer f.Close()

	seen := make(map[string]struct{})
	var urls []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read target file: %w", err)
	}

	return urls, nil
}

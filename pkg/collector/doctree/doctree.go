// Package doctree collects scenarios from a documentation tree: one page
// per scenario, directories as grouping parents, an index page naming each
// directory. Only the title line of a page is read; markup is not parsed.
package doctree

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dkoosis/speccov/pkg/collector"
	"github.com/dkoosis/speccov/pkg/scenario"
)

// Option keys understood by this collector.
const (
	OptionDir      = "doctree_dir"
	OptionEndpoint = "spec_endpoint"
	OptionBranch   = "branch"
)

// pageExts are the file extensions treated as scenario pages.
var pageExts = map[string]bool{".md": true, ".rst": true, ".txt": true}

// indexStems name the page that titles a directory rather than a scenario.
const indexStem = "index"

// Collector walks a documentation directory and emits one scenario per
// page, with the directory chain as parents.
type Collector struct {
	settings *collector.Settings

	dir      string
	endpoint string
	branch   string
}

// Registration returns the registry entry for the doctree collector.
func Registration() collector.Registration {
	return collector.Registration{
		New: New,
		Options: []collector.Option{
			{Flag: "doctree-dir", Key: OptionDir, Usage: "Directory holding the scenario documentation tree (required)"},
			{Flag: "spec-endpoint", Key: OptionEndpoint, Usage: "Base URL where the scenario pages are hosted"},
			{Flag: "branch", Key: OptionBranch, Usage: "Source-control branch tag for scenario links"},
		},
	}
}

// New builds a doctree collector and validates its configuration.
func New(settings *collector.Settings) (collector.Collector, error) {
	c := &Collector{settings: settings}
	if err := c.SetupConfig(); err != nil {
		return nil, err
	}
	return c, nil
}

// SetupConfig resolves and validates the collector options.
func (c *Collector) SetupConfig() error {
	dir := c.settings.String(OptionDir)
	if dir == "" {
		return fmt.Errorf("option %q is required", OptionDir)
	}
	if !filepath.IsAbs(dir) && c.settings.Root != "" {
		dir = filepath.Join(c.settings.Root, dir)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("directory with scenario docs %q doesn't exist: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("scenario docs path %q is not a directory", dir)
	}

	c.dir = dir
	c.endpoint = c.settings.String(OptionEndpoint)
	c.branch = c.settings.String(OptionBranch)
	if c.branch == "" {
		c.branch = os.Getenv("BRANCH")
	}
	return nil
}

// Collect walks the documentation tree in lexical order and returns the
// catalog. Scenario IDs are page paths relative to the tree root, without
// extension.
func (c *Collector) Collect() (scenario.Catalog, error) {
	var catalog scenario.Catalog
	displayNames := make(map[string]string) // dotted parent path -> display name
	rootBase := filepath.Dir(c.dir)

	err := filepath.WalkDir(c.dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() {
			parentName := dottedName(rootBase, path)
			display := lastSegment(parentName)
			if title := c.dirTitle(path); title != "" {
				display = title
			}
			displayNames[parentName] = display
			return nil
		}

		ext := filepath.Ext(entry.Name())
		if !pageExts[ext] {
			return nil
		}
		name := strings.TrimSuffix(entry.Name(), ext)
		if name == indexStem {
			return nil
		}

		display := name
		if title, err := pageTitle(path); err == nil && title != "" {
			display = title
		}

		parentName := dottedName(rootBase, filepath.Dir(path))
		rel, err := filepath.Rel(c.dir, path)
		if err != nil {
			return err
		}
		id := strings.TrimSuffix(filepath.ToSlash(rel), ext)

		catalog = append(catalog, scenario.Scenario{
			ID:          id,
			Name:        name,
			DisplayName: display,
			Parents:     parentsChain(parentName, displayNames),
			Link:        c.link(name, parentName),
			Branch:      c.branch,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking scenario docs: %w", err)
	}
	return catalog, nil
}

// dirTitle reads the directory's index page title, if an index page exists.
func (c *Collector) dirTitle(dir string) string {
	for ext := range pageExts {
		title, err := pageTitle(filepath.Join(dir, indexStem+ext))
		if err == nil && title != "" {
			return title
		}
	}
	return ""
}

// link synthesizes the hosted page URL: endpoint[/branch]/<parents>/<name>.html.
func (c *Collector) link(name, parentName string) string {
	if c.endpoint == "" {
		return ""
	}
	url := c.endpoint
	if c.branch != "" {
		url += "/" + c.branch
	}
	url += "/" + strings.ReplaceAll(parentName, ".", "/")
	return url + "/" + name + ".html"
}

// pageTitle returns the first non-empty line of a page, stripped of heading
// markers. Template variables and markup beyond the title line are ignored.
func pageTitle(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		return strings.TrimSpace(strings.TrimLeft(line, "#")), nil
	}
	return "", scanner.Err()
}

// dottedName converts a directory path under base into a dotted name:
// base=/x, path=/x/specs/nested -> "specs.nested".
func dottedName(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == "." {
		return ""
	}
	return strings.ReplaceAll(filepath.ToSlash(rel), "/", ".")
}

func lastSegment(dotted string) string {
	if idx := strings.LastIndex(dotted, "."); idx >= 0 {
		return dotted[idx+1:]
	}
	return dotted
}

// parentsChain resolves the ordered Parent list for a dotted path, keeping
// only ancestors with a known display name.
func parentsChain(fullName string, displayNames map[string]string) []scenario.Parent {
	var parents []scenario.Parent
	current := ""
	for _, segment := range strings.Split(fullName, ".") {
		if current == "" {
			current = segment
		} else {
			current = current + "." + segment
		}
		if display, ok := displayNames[current]; ok && display != "" {
			parents = append(parents, scenario.Parent{Name: segment, DisplayName: display})
		}
	}
	return parents
}

package deck

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// TitleFile holds the deck title. Like every file starting with an
// underscore, it is not a slide.
const TitleFile = "_title.md"

const frontMatterDelim = "---"

// ErrFrontMatter is returned for a malformed front matter block.
var ErrFrontMatter = errors.New("invalid front matter")

// frontMatter is the optional YAML header of a slide file.
type frontMatter struct {
	ID         int    `yaml:"id"`
	Background string `yaml:"background"`
	Title      string `yaml:"title"`
}

// LoadDir loads a deck from the markdown files in dir.
func LoadDir(dir string) (*Deck, error) {
	return Load(os.DirFS(dir))
}

// Load reads every top-level *.md file of fsys, sorted by name, as one slide
// each. Files starting with "_" are skipped; _title.md provides the deck
// title.
func Load(fsys fs.FS) (*Deck, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read slides: %w", err)
	}

	var title string
	if content, err := fs.ReadFile(fsys, TitleFile); err == nil {
		title = strings.TrimSpace(string(content))
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", TitleFile, err)
	}

	// Collect markdown files (excluding files starting with underscore)
	var filenames []string
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".md" || strings.HasPrefix(e.Name(), "_") {
			continue
		}
		filenames = append(filenames, e.Name())
	}
	sort.Strings(filenames)

	slides := make([]Slide, 0, len(filenames))
	for i, name := range filenames {
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		s, err := parseSlide(content)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if s.ID == 0 {
			s.ID = i + 1
		}
		slides = append(slides, s)
	}
	return New(title, slides)
}

// parseSlide splits an optional front matter block from the markdown body.
func parseSlide(content []byte) (Slide, error) {
	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	var fm frontMatter
	body := text
	if rest, ok := strings.CutPrefix(text, frontMatterDelim+"\n"); ok {
		header, after, ok := cutDelim(rest)
		if !ok {
			return Slide{}, fmt.Errorf("%w: missing closing %s", ErrFrontMatter, frontMatterDelim)
		}
		if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
			return Slide{}, fmt.Errorf("%w: %w", ErrFrontMatter, err)
		}
		if fm.ID < 0 {
			return Slide{}, fmt.Errorf("%w: negative id %d", ErrFrontMatter, fm.ID)
		}
		body = after
	}
	s := Slide{
		ID:         fm.ID,
		Background: strings.TrimSpace(fm.Background),
		Title:      strings.TrimSpace(fm.Title),
		Body:       strings.TrimSpace(body) + "\n",
	}
	if s.Title == "" {
		s.Title = firstHeading(s.Body)
	}
	return s, nil
}

// cutDelim splits s around the first line consisting only of "---".
func cutDelim(s string) (header, after string, ok bool) {
	if s == frontMatterDelim {
		return "", "", true
	}
	if rest, found := strings.CutPrefix(s, frontMatterDelim+"\n"); found {
		return "", rest, true
	}
	if header, after, found := strings.Cut(s, "\n"+frontMatterDelim+"\n"); found {
		return header, after, true
	}
	if header, found := strings.CutSuffix(s, "\n"+frontMatterDelim); found {
		return header, "", true
	}
	return "", "", false
}

// firstHeading returns the text of the first ATX heading in md.
func firstHeading(md string) string {
	for line := range strings.Lines(md) {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "#") {
			continue
		}
		return strings.TrimSpace(strings.TrimLeft(line, "#"))
	}
	return ""
}

package devserver

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SeedNote is a note file loaded from the seed directory.
type SeedNote struct {
	Title    string
	Content  string
	FileType string
}

// LoadSeedNotes loads all .md and .txt files under dir, sorted by path. The
// title is the first Markdown heading, falling back to the file name.
func LoadSeedNotes(dir string) ([]SeedNote, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".md", ".txt":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	notes := make([]SeedNote, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		content := string(data)
		ext := filepath.Ext(path)
		title := strings.TrimSuffix(filepath.Base(path), ext)
		if heading := firstHeading(content); heading != "" {
			title = heading
		}
		notes = append(notes, SeedNote{
			Title:    title,
			Content:  content,
			FileType: strings.TrimPrefix(ext, "."),
		})
	}
	return notes, nil
}

func firstHeading(content string) string {
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "#") {
			continue
		}
		if heading := strings.TrimSpace(strings.TrimLeft(line, "#")); heading != "" {
			return heading
		}
	}
	return ""
}

// seedNotes stores notes as public notes owned by username.
func (s *Server) seedNotes(username string, notes []SeedNote) error {
	owner, err := s.storage.UserByName(username)
	if err != nil {
		return fmt.Errorf("seed owner %s: %w", username, err)
	}
	for _, n := range notes {
		s.storage.CreateNote(Note{
			Title:    n.Title,
			Content:  n.Content,
			FileType: n.FileType,
			IsPublic: true,
			UserID:   owner.ID,
		})
	}
	s.logger.Infof("seeded %d notes for %s", len(notes), username)
	return nil
}

package memory

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

// LoadSeed adds the sheets described by a YAML document of the form
//
//	spreadsheet-id:
//	  SheetTitle:
//	    - [last_modified, id, type]
//	    - [1700000000000, 1, d]
//
// Scalars are stored as their literal text. Existing sheets with the same
// title are replaced.
func (s *Store) LoadSeed(r io.Reader) error {
	var books map[string]map[string][][]string
	if err := yaml.NewDecoder(r).Decode(&books); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode seed: %w", err)
	}

	ids := make([]string, 0, len(books))
	for id := range books {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		titles := make([]string, 0, len(books[id]))
		for title := range books[id] {
			titles = append(titles, title)
		}
		sort.Strings(titles)
		for _, title := range titles {
			s.AddSheet(id, title, books[id][title])
		}
	}
	return nil
}

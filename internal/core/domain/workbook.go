package domain

import (
	"sort"
	"strings"
)

// Workbooks maps workbook aliases to concrete spreadsheet identifiers.
// It is immutable once built.
type Workbooks struct {
	ids map[string]string
}

// NewWorkbooks builds a registry from an alias map. Blank aliases or ids
// are configuration errors.
func NewWorkbooks(aliases map[string]string) (*Workbooks, error) {
	ids := make(map[string]string, len(aliases))
	for alias, id := range aliases {
		alias = strings.TrimSpace(alias)
		id = strings.TrimSpace(id)
		if alias == "" || id == "" {
			return nil, ErrInvalidConfig.WithDetailsf("workbook alias %q has empty id", alias)
		}
		ids[alias] = id
	}
	return &Workbooks{ids: ids}, nil
}

// Resolve returns the spreadsheet id configured for alias.
func (w *Workbooks) Resolve(alias string) (string, error) {
	if alias == "" {
		return "", ErrMissingArgument.WithDetails("workbook is required")
	}
	id, ok := w.ids[alias]
	if !ok {
		return "", ErrUnknownWorkbook.WithDetails(alias)
	}
	return id, nil
}

// Aliases returns the configured aliases in sorted order.
func (w *Workbooks) Aliases() []string {
	out := make([]string, 0, len(w.ids))
	for alias := range w.ids {
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of configured workbooks.
func (w *Workbooks) Len() int {
	return len(w.ids)
}

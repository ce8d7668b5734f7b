// Package collections loads user-defined emoji collections from a JSON file
// and caches the parse, revalidating against the file's modification time on
// every access.
package collections

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	pkgerrors "github.com/browniellc/emojitools/pkg/errors"
)

// File is the parsed form of a collections definition file:
//
//	{
//	  "collections": {
//	    "favorites": ["🚀", "❤️"],
//	    "office": ["📎", "📠"]
//	  }
//	}
//
// Members are emoji characters; they are resolved against the current
// dataset at search time, so a collection file survives dataset reloads
// unchanged.
type File struct {
	Collections map[string][]string `json:"collections"`
}

// Members returns the characters of a named collection.
func (f *File) Members(name string) ([]string, error) {
	members, ok := f.Collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", pkgerrors.ErrCollectionNotFound, name)
	}
	return members, nil
}

// Names returns the defined collection names, sorted.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Collections))
	for name := range f.Collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func parseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &pkgerrors.CollectionError{Path: path, Err: err}
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, &pkgerrors.CollectionError{Path: path, Err: fmt.Errorf("parsing: %w", err)}
	}
	if f.Collections == nil {
		f.Collections = make(map[string][]string)
	}
	return &f, nil
}

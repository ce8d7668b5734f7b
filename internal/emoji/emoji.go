// Package emoji defines the core record and snapshot types shared by the
// store, indices, and caches.
package emoji

// ID identifies a Record inside one Snapshot. IDs are positional and carry
// no meaning across snapshot versions; every cache key that stores IDs also
// carries the version they were resolved against.
type ID uint32

// Record is a single emoji entry. Records are immutable: a dataset reload
// replaces the whole set, never individual fields.
type Record struct {
	ID        ID       `json:"-"`
	Character string   `json:"character"`
	Name      string   `json:"name"`
	Category  string   `json:"category"`
	Keywords  []string `json:"keywords,omitempty"`
}

// Snapshot is one immutable generation of the dataset. Version increases
// monotonically with every reload.
type Snapshot struct {
	Version uint64
	Records []Record
}

// NewSnapshot builds a Snapshot and assigns positional IDs.
func NewSnapshot(version uint64, records []Record) *Snapshot {
	for i := range records {
		records[i].ID = ID(i)
	}
	return &Snapshot{Version: version, Records: records}
}

// Resolve maps IDs back to Records, dropping any ID that is out of range.
func (s *Snapshot) Resolve(ids []ID) []Record {
	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		if int(id) < len(s.Records) {
			out = append(out, s.Records[int(id)])
		}
	}
	return out
}

// Len returns the number of records in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.Records)
}

package metrics

import (
	"sort"

	"luthier-backend/internal/record"
)

// DefaultTopN is the ranking length used by the dashboard.
const DefaultTopN = 5

// Field selects the categorical value a ranking counts.
type Field func(record.ServiceRecord) string

// Fields are the rankable fields by name.
var Fields = map[string]Field{
	"instrumentType": func(r record.ServiceRecord) string { return r.InstrumentType },
	"client":         func(r record.ServiceRecord) string { return r.Client },
	"brand":          func(r record.ServiceRecord) string { return r.Brand },
	"model":          func(r record.ServiceRecord) string { return r.Model },
}

// RankEntry is one row of a ranking.
type RankEntry struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// TopN counts each literal value of field, empty included, and returns the
// n most frequent. Ties keep the order in which values were first seen.
// n <= 0 means DefaultTopN.
func TopN(records []record.ServiceRecord, field Field, n int) []RankEntry {
	if n <= 0 {
		n = DefaultTopN
	}
	index := make(map[string]int)
	entries := []RankEntry{}
	for _, r := range records {
		v := field(r)
		if i, ok := index[v]; ok {
			entries[i].Count++
			continue
		}
		index[v] = len(entries)
		entries = append(entries, RankEntry{Value: v, Count: 1})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

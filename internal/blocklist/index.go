package blocklist

import (
	"slices"

	"ConsentCrawl/internal/models"
	"ConsentCrawl/internal/parser"
)

// Index maps a normalized domain to the ordered ids of the sources that flagged it.
// An Index is never modified after construction.
type Index struct {
	entries       map[string][]string
	lastFetchTime int64
}

// newIndex builds an index over entries; the map is owned by the index afterwards
func newIndex(entries map[string][]string, lastFetchTime int64) *Index {
	if entries == nil {
		entries = make(map[string][]string)
	}
	return &Index{
		entries:       entries,
		lastFetchTime: lastFetchTime,
	}
}

// indexFromSnapshot restores an index from its persisted form
func indexFromSnapshot(snapshot *models.BlocklistSnapshot) *Index {
	entries := make(map[string][]string, len(snapshot.Entries))
	for domain, ids := range snapshot.Entries {
		entries[parser.NormalizeDomain(domain)] = append([]string(nil), ids...)
	}
	return newIndex(entries, snapshot.LastFetchTime)
}

// Lookup reports whether domain is flagged by any source
func (i *Index) Lookup(domain string) bool {
	if i == nil {
		return false
	}
	_, ok := i.entries[parser.NormalizeDomain(domain)]
	return ok
}

// SourcesFor returns the ids of the sources that flagged domain, in first-seen order
func (i *Index) SourcesFor(domain string) []string {
	if i == nil {
		return nil
	}
	ids := i.entries[parser.NormalizeDomain(domain)]
	if ids == nil {
		return nil
	}
	return append([]string(nil), ids...)
}

// Len returns the number of indexed domains
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.entries)
}

// LastFetchTime returns the Unix time of the rebuild that produced the index
func (i *Index) LastFetchTime() int64 {
	if i == nil {
		return 0
	}
	return i.lastFetchTime
}

// Snapshot returns a copy of the index in its persisted form
func (i *Index) Snapshot() *models.BlocklistSnapshot {
	entries := make(map[string][]string, i.Len())
	if i != nil {
		for domain, ids := range i.entries {
			entries[domain] = append([]string(nil), ids...)
		}
	}
	return &models.BlocklistSnapshot{
		Entries:       entries,
		LastFetchTime: i.LastFetchTime(),
	}
}

// merge folds per-source domain lists into an index.
// lists[n] belongs to sources[n]; a source id is recorded once per domain.
func merge(sources []models.BlocklistSource, lists [][]string, fetchTime int64) *Index {
	entries := make(map[string][]string)
	for n, domains := range lists {
		id := sources[n].SourceID()
		for _, domain := range domains {
			ids := entries[domain]
			if slices.Contains(ids, id) {
				continue
			}
			entries[domain] = append(ids, id)
		}
	}
	return newIndex(entries, fetchTime)
}

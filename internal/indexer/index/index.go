// Package index holds the inverted token index and the id lookup table
// derived from one catalog snapshot. Both are rebuilt whole and never
// patched.
package index

import (
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/restaurant"
)

// Index is safe for concurrent use. A zero Index is empty and at version 0.
type Index struct {
	mu      sync.RWMutex
	records []restaurant.Restaurant
	terms   map[string]PostingList
	byID    map[int]int
	version uint64
	built   bool
	size    int64
}

func New() *Index {
	return &Index{
		terms: make(map[string]PostingList),
		byID:  make(map[int]int),
	}
}

// Rebuild clears the index and repopulates it from records, tagging the
// result with the snapshot version it was built from.
func (ix *Index) Rebuild(records []restaurant.Restaurant, version uint64) {
	snapshot := make([]restaurant.Restaurant, len(records))
	copy(snapshot, records)

	terms := make(map[string]PostingList)
	byID := make(map[int]int, len(snapshot))
	var size int64

	for pos, r := range snapshot {
		byID[r.ID] = pos

		freq := make(map[string]int)
		order := make([]string, 0, 8)
		for _, tok := range tokenizer.Tokenize(r.SearchText()) {
			if freq[tok.Term] == 0 {
				order = append(order, tok.Term)
			}
			freq[tok.Term]++
		}
		for _, term := range order {
			terms[term] = append(terms[term], Posting{Position: pos, Frequency: freq[term]})
			size += int64(len(term) + 16)
		}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.records = snapshot
	ix.terms = terms
	ix.byID = byID
	ix.version = version
	ix.built = true
	ix.size = size
}

// LookupByID returns the record with the given id.
func (ix *Index) LookupByID(id int) (restaurant.Restaurant, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	pos, ok := ix.byID[id]
	if !ok {
		return restaurant.Restaurant{}, false
	}
	return ix.records[pos], true
}

// Candidates returns the ascending positions of records matching any token
// of term. A term with no token of at least two characters matches every
// record; a term whose tokens all miss matches none.
func (ix *Index) Candidates(term string) []int {
	tokens := tokenizer.Terms(term)
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.candidatesLocked(tokens)
}

// Search returns the candidate records for term in snapshot order. The
// positions and the records they point into come from the same rebuild.
func (ix *Index) Search(term string) []restaurant.Restaurant {
	tokens := tokenizer.Terms(term)
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	positions := ix.candidatesLocked(tokens)
	out := make([]restaurant.Restaurant, 0, len(positions))
	for _, pos := range positions {
		out = append(out, ix.records[pos])
	}
	return out
}

// candidatesLocked requires ix.mu held.
func (ix *Index) candidatesLocked(tokens []string) []int {
	if len(tokens) == 0 {
		all := make([]int, len(ix.records))
		for i := range all {
			all[i] = i
		}
		return all
	}
	lists := make([]PostingList, 0, len(tokens))
	for _, tok := range tokens {
		lists = append(lists, ix.terms[tok])
	}
	return union(lists...)
}

// Postings returns a copy of the posting list for a single term.
func (ix *Index) Postings(term string) PostingList {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	pl, ok := ix.terms[term]
	if !ok {
		return nil
	}
	out := make(PostingList, len(pl))
	copy(out, pl)
	return out
}

// Version is the snapshot version of the last rebuild. Built reports
// whether a rebuild has happened at all.
func (ix *Index) Version() (version uint64, built bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.version, ix.built
}

// Terms lists every indexed term with its postings, sorted by term.
func (ix *Index) Terms() []TermEntry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	entries := make([]TermEntry, 0, len(ix.terms))
	for term, pl := range ix.terms {
		postings := make(PostingList, len(pl))
		copy(postings, pl)
		entries = append(entries, TermEntry{Term: term, Postings: postings})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// Len is the number of records in the indexed snapshot.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.records)
}

// TermCount is the number of distinct terms.
func (ix *Index) TermCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.terms)
}

// Size is a rough estimate of the index footprint in bytes.
func (ix *Index) Size() int64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.size
}

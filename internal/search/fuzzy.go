// Package search finds network nodes by fuzzy matching on their names and ids.
package search

import (
	"sort"
	"strings"
	"unicode"

	"github.com/AbdouB/twindx/internal/dataset"
	"github.com/AbdouB/twindx/internal/network"
)

// DefaultThreshold drops matches that only hit the network name.
const DefaultThreshold = 0.35

// Item is one searchable node.
type Item struct {
	Network string
	ID      string
	Name    string
	Label   network.Label
}

// Result is a matched node with its score.
type Result struct {
	Item
	Score      float64
	Highlights []int // byte offsets of matched characters in the display text
}

// Text is the primary display text: the node name, or its id when unnamed.
func (it Item) Text() string {
	if it.Name != "" {
		return it.Name
	}
	return it.ID
}

// Items flattens every node of every network in set, in natural order. An empty
// label keeps all nodes; otherwise only nodes with that label are listed.
func Items(set *dataset.NetworkSet, label network.Label) []Item {
	var items []Item
	for _, name := range set.Names() {
		net, _ := set.Get(name)
		for _, node := range net.Nodes() {
			if label != "" && node.Label != label {
				continue
			}
			items = append(items, Item{Network: name, ID: node.ID, Name: node.Name, Label: node.Label})
		}
	}
	return items
}

// Fuzzy scores items against query and returns those at or above threshold,
// best first. Equal scores keep input order.
func Fuzzy(query string, items []Item, threshold float64) []Result {
	tokens := tokenize(strings.TrimSpace(query))
	if len(tokens) == 0 {
		return nil
	}

	var results []Result
	for _, it := range items {
		score, highlights := scoreItem(tokens, it)
		if score >= threshold && score > 0 {
			results = append(results, Result{Item: it, Score: score, Highlights: highlights})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// tokenize lower-cases s and splits it on anything that is not a letter or
// digit, so "chest_pain" and "Chest pain" tokenize alike.
func tokenize(s string) []string {
	var tokens []string
	var current strings.Builder

	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
		} else if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

func scoreItem(tokens []string, it Item) (float64, []int) {
	text := strings.ToLower(it.Text())
	id := strings.ToLower(it.ID)
	scope := strings.ToLower(it.Network)

	var total float64
	var highlights []int
	matched := 0

	for _, tok := range tokens {
		s, hl := scoreToken(tok, text, id, scope)
		if s > 0 {
			matched++
			total += s
			highlights = append(highlights, hl...)
		}
	}

	// Partial token matches are heavily penalised.
	if matched < len(tokens) {
		total *= float64(matched) / float64(len(tokens)) * 0.5
	}
	return total / float64(len(tokens)), highlights
}

// scoreToken rates one token: whole word in the display text 1.0, substring
// 0.7, in-order characters 0.4; the id and network name count for less.
func scoreToken(tok, text, id, scope string) (float64, []int) {
	var score float64
	var highlights []int

	switch {
	case containsWord(text, tok):
		score = 1.0
		highlights = span(text, tok)
	case strings.Contains(text, tok):
		score = 0.7
		highlights = span(text, tok)
	case fuzzyContains(text, tok):
		score = 0.4
	}

	if id != text {
		switch {
		case containsWord(id, tok):
			score = max(score, 0.6)
		case strings.Contains(id, tok):
			score = max(score, 0.4)
		case fuzzyContains(id, tok):
			score = max(score, 0.2)
		}
	}

	if strings.Contains(scope, tok) {
		score = max(score, 0.3)
	}
	return score, highlights
}

func span(text, tok string) []int {
	idx := strings.Index(text, tok)
	if idx < 0 {
		return nil
	}
	out := make([]int, 0, len(tok))
	for i := idx; i < idx+len(tok); i++ {
		out = append(out, i)
	}
	return out
}

// containsWord checks whether the first occurrence of word in text sits on word
// boundaries.
func containsWord(text, word string) bool {
	idx := strings.Index(text, word)
	if idx == -1 {
		return false
	}
	if idx > 0 && isWordByte(text[idx-1]) {
		return false
	}
	end := idx + len(word)
	if end < len(text) && isWordByte(text[end]) {
		return false
	}
	return true
}

func isWordByte(b byte) bool {
	r := rune(b)
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// fuzzyContains checks if text contains the characters of pattern in order,
// with gaps between matches no longer than the pattern itself.
func fuzzyContains(text, pattern string) bool {
	if len(pattern) == 0 {
		return true
	}

	p := 0
	gaps := 0
	for i := 0; i < len(text) && p < len(pattern); i++ {
		if text[i] == pattern[p] {
			p++
			gaps = 0
		} else if p > 0 {
			gaps++
			if gaps > len(pattern) {
				return false
			}
		}
	}
	return p == len(pattern)
}

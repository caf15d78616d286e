// Package fuzzy maps free-text item names onto an actor's items.
package fuzzy

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jwebster45206/table-assist/pkg/actor"
	"github.com/jwebster45206/table-assist/pkg/actorview"
	"github.com/jwebster45206/table-assist/pkg/cmderr"
	"golang.org/x/text/cases"
)

// Abbreviations expands common shorthand used at the table.
var Abbreviations = map[string]string{
	"clw":  "cure light wounds",
	"cmw":  "cure moderate wounds",
	"csw":  "cure serious wounds",
	"ccw":  "cure critical wounds",
	"boh":  "bag of holding",
	"mw":   "masterwork",
	"pot":  "potion",
	"pots": "potions",
	"ammo": "arrow",
}

var synonyms = []struct {
	trigger string
	terms   []string
}{
	{"arrow", []string{"arrow", "arrows"}},
	{"potion", []string{"potion", "potions", "cure", "healing"}},
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true, "your": true,
	"how": true, "many": true, "much": true, "what": true, "have": true, "does": true,
	"any": true, "left": true, "are": true, "there": true, "inventory": true, "carrying": true,
}

// fold lowercases for caseless comparison. A Caser is stateful, so one is
// created per call.
func fold(s string) string {
	return cases.Fold().String(s)
}

// Matcher resolves item names against an actor's live items.
type Matcher struct {
	recent *RecentItemContext
}

func NewMatcher(recent *RecentItemContext) *Matcher {
	return &Matcher{recent: recent}
}

// Normalize folds case, trims and expands abbreviations word by word.
func Normalize(term string) string {
	words := strings.Fields(fold(strings.TrimSpace(term)))
	for i, w := range words {
		if exp, ok := Abbreviations[w]; ok {
			words[i] = exp
		}
	}
	return strings.Join(words, " ")
}

// FindBestItemMatch returns the actor's item best matching term. Candidates
// are tried in order: recently queried items, exact name, substring, then
// keyword matches. A nil item with a nil error means nothing matched; an
// AmbiguousMatch error means several keyword matches could not be ranked.
func (m *Matcher) FindBestItemMatch(a *actor.Actor, term string) (*actor.Item, error) {
	if a == nil {
		return nil, nil
	}
	search := Normalize(term)
	if search == "" {
		return nil, nil
	}

	if m.recent != nil {
		for _, r := range m.recent.Items() {
			name := fold(r.Name)
			if strings.Contains(name, search) || strings.Contains(search, name) {
				if live := a.ItemByName(r.Name); live != nil {
					return live, nil
				}
			}
		}
	}

	for i := range a.Items {
		if fold(a.Items[i].Name) == search {
			return &a.Items[i], nil
		}
	}
	for i := range a.Items {
		if strings.Contains(fold(a.Items[i].Name), search) {
			return &a.Items[i], nil
		}
	}

	words := keywords(search)
	if len(words) == 0 {
		return nil, nil
	}
	var matches []*actor.Item
	for i := range a.Items {
		name := fold(a.Items[i].Name)
		for _, w := range words {
			if strings.Contains(name, w) {
				matches = append(matches, &a.Items[i])
				break
			}
		}
	}

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	}
	if strings.Contains(search, "cure") || strings.Contains(search, "heal") {
		for _, it := range matches {
			if strings.Contains(fold(it.Name), "potion") {
				return it, nil
			}
		}
	}
	names := make([]string, 0, len(matches))
	for _, it := range matches {
		names = append(names, it.Name)
	}
	return nil, cmderr.New(cmderr.AmbiguousMatch,
		fmt.Sprintf("Multiple items match %q: %s. Please be more specific.", strings.TrimSpace(term), strings.Join(names, ", ")))
}

// SearchItems returns every item matching term or its synonyms, with
// non-numeric quantities read as 0. When the whole phrase matches nothing,
// its keywords are tried instead.
func (m *Matcher) SearchItems(a *actor.Actor, term string) []actorview.ItemCount {
	if a == nil {
		return nil
	}
	search := fold(strings.TrimSpace(term))
	if search == "" {
		return nil
	}
	terms := []string{search}
	if exp := Normalize(search); exp != search {
		terms = append(terms, exp)
	}
	for _, s := range synonyms {
		if strings.Contains(search, s.trigger) {
			terms = append(terms, s.terms...)
			break
		}
	}

	out := collect(a, terms)
	if len(out) == 0 {
		out = collect(a, keywords(Normalize(search)))
	}
	return out
}

// Remember stores query results for follow-up commands.
func (m *Matcher) Remember(items []actorview.ItemCount) {
	if m.recent != nil {
		m.recent.Set(items)
	}
}

func collect(a *actor.Actor, terms []string) []actorview.ItemCount {
	if len(terms) == 0 {
		return nil
	}
	var out []actorview.ItemCount
	for i := range a.Items {
		name := fold(a.Items[i].Name)
		for _, t := range terms {
			if strings.Contains(name, t) {
				out = append(out, actorview.ItemCount{Name: a.Items[i].Name, Quantity: a.Items[i].Quantity()})
				break
			}
		}
	}
	return out
}

// keywords returns the words longer than two characters, with naive
// singular forms appended so "arrows" also tries "arrow".
func keywords(search string) []string {
	var out []string
	for _, w := range strings.Fields(search) {
		w = strings.Trim(w, ".,!?;:'\"")
		if utf8.RuneCountInString(w) <= 2 || stopWords[w] {
			continue
		}
		out = append(out, w)
		if strings.HasSuffix(w, "es") && len(w) > 4 {
			out = append(out, strings.TrimSuffix(w, "es"))
		}
		if strings.HasSuffix(w, "s") && len(w) > 3 {
			out = append(out, strings.TrimSuffix(w, "s"))
		}
	}
	return out
}

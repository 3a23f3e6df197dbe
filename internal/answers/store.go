// Package answers models the answer store that guard conditions are evaluated against.
//
// A store maps a section (page) id to either one answer object or an ordered
// list of them (a repeated section). Lookups never fail: missing data resolves to
// "absent".
package answers

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Answer is one recorded question value.
type Answer struct {
	Value any `json:"value" yaml:"value" mapstructure:"value"`
}

// Entry is one answer object: question id -> answer.
type Entry map[string]Answer

// Section is either a single entry or a repeated list of entries.
type Section struct {
	Entry   Entry   `json:"entry,omitempty" yaml:"entry,omitempty"`
	Entries []Entry `json:"entries,omitempty" yaml:"entries,omitempty"`
}

// Single wraps one entry as a section.
func Single(e Entry) Section {
	return Section{Entry: e}
}

// Repeated wraps entries as a repeated section.
func Repeated(entries ...Entry) Section {
	if entries == nil {
		entries = []Entry{}
	}
	return Section{Entries: entries}
}

// IsRepeated reports whether the section holds a sequence of entries.
func (s Section) IsRepeated() bool {
	return s.Entries != nil
}

// Count is the number of recorded entries: the list length for repeated
// sections, 1 for a non-empty single entry, 0 otherwise.
func (s Section) Count() int {
	if s.IsRepeated() {
		return len(s.Entries)
	}
	if len(s.Entry) > 0 {
		return 1
	}
	return 0
}

// Append returns a repeated copy of s with e added. A single entry becomes the first element.
func (s Section) Append(e Entry) Section {
	entries := make([]Entry, 0, len(s.Entries)+2)
	if !s.IsRepeated() && len(s.Entry) > 0 {
		entries = append(entries, s.Entry.Clone())
	}
	for _, existing := range s.Entries {
		entries = append(entries, existing.Clone())
	}
	return Section{Entries: append(entries, e.Clone())}
}

// Clone deep-copies the section's entry maps. Values are shared.
func (s Section) Clone() Section {
	out := Section{Entry: s.Entry.Clone()}
	if s.Entries != nil {
		out.Entries = make([]Entry, len(s.Entries))
		for i, e := range s.Entries {
			out.Entries[i] = e.Clone()
		}
	}
	return out
}

// Clone copies the entry.
func (e Entry) Clone() Entry {
	if e == nil {
		return nil
	}
	out := make(Entry, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Store maps section ids to sections.
type Store map[string]Section

// With returns a copy of the store with id set to s.
func (st Store) With(id string, s Section) Store {
	out := make(Store, len(st)+1)
	for k, v := range st {
		out[k] = v
	}
	out[id] = s
	return out
}

// Overlay is With for a single section that must win bare lookups: its
// question ids are removed from copies of every other single-answer section.
// Repeated sections are never consulted by Lookup and are left alone.
func (st Store) Overlay(id string, s Section) Store {
	out := st.With(id, s)
	if s.IsRepeated() || len(s.Entry) == 0 {
		return out
	}
	for other, sec := range out {
		if other == id || sec.IsRepeated() {
			continue
		}
		var trimmed Entry
		for q := range s.Entry {
			if _, ok := sec.Entry[q]; !ok {
				continue
			}
			if trimmed == nil {
				trimmed = sec.Entry.Clone()
			}
			delete(trimmed, q)
		}
		if trimmed != nil {
			out[other] = Single(trimmed)
		}
	}
	return out
}

// Merge returns a copy of st overlaid with other.
func (st Store) Merge(other Store) Store {
	out := make(Store, len(st)+len(other))
	for k, v := range st {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// SectionIDs returns the section ids in the stable scan order used by Lookup.
func (st Store) SectionIDs() []string {
	ids := make([]string, 0, len(st))
	for id := range st {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Lookup scans sections in SectionIDs order and returns the value of question from
// the first single-answer section containing it. Repeated sections are skipped.
func (st Store) Lookup(question string) (any, bool) {
	for _, id := range st.SectionIDs() {
		s := st[id]
		if s.IsRepeated() {
			continue
		}
		if a, ok := s.Entry[question]; ok {
			return a.Value, true
		}
	}
	return nil, false
}

// Resolve looks up a question reference:
//
//	"question"                bare id, same rules as Lookup
//	"section.question"        single-answer section
//	"section.N.question"      entry N (0-based) of a repeated section
//	"a.b.section.question"    leading segments are qualifiers; the last two are used
func (st Store) Resolve(ref string) (any, bool) {
	segs := strings.Split(ref, ".")
	if len(segs) == 1 {
		return st.Lookup(ref)
	}
	question := segs[len(segs)-1]

	if len(segs) >= 3 {
		if idx, err := strconv.Atoi(segs[len(segs)-2]); err == nil {
			s, ok := st[segs[len(segs)-3]]
			if !ok || !s.IsRepeated() || idx < 0 || idx >= len(s.Entries) {
				return nil, false
			}
			a, ok := s.Entries[idx][question]
			return a.Value, ok
		}
	}

	s, ok := st[segs[len(segs)-2]]
	if !ok || s.IsRepeated() {
		return nil, false
	}
	a, ok := s.Entry[question]
	return a.Value, ok
}

// Count returns the number of entries recorded for a section ref. The ref may be
// dotted; its last segment names the section.
func (st Store) Count(ref string) int {
	segs := strings.Split(ref, ".")
	return st[segs[len(segs)-1]].Count()
}

// FromPayload decodes an event payload into a section: an object of
// {question: {value: v}} is a single entry, a list of such objects is repeated.
// Bare values ({question: v}) are accepted and wrapped.
func FromPayload(payload any) (Section, error) {
	switch p := payload.(type) {
	case nil:
		return Section{}, fmt.Errorf("empty payload")
	case Section:
		return p.Clone(), nil
	case Entry:
		return Single(p.Clone()), nil
	case []any:
		entries := make([]Entry, 0, len(p))
		for i, item := range p {
			e, err := decodeEntry(item)
			if err != nil {
				return Section{}, fmt.Errorf("entry %d: %w", i, err)
			}
			entries = append(entries, e)
		}
		return Repeated(entries...), nil
	case []map[string]any:
		entries := make([]Entry, 0, len(p))
		for i, item := range p {
			e, err := decodeEntry(item)
			if err != nil {
				return Section{}, fmt.Errorf("entry %d: %w", i, err)
			}
			entries = append(entries, e)
		}
		return Repeated(entries...), nil
	default:
		e, err := decodeEntry(p)
		if err != nil {
			return Section{}, err
		}
		return Single(e), nil
	}
}

// EntryFromPayload decodes a payload that must be a single answer object.
func EntryFromPayload(payload any) (Entry, error) {
	if e, ok := payload.(Entry); ok {
		return e.Clone(), nil
	}
	return decodeEntry(payload)
}

func decodeEntry(raw any) (Entry, error) {
	var fields map[string]any
	if err := mapstructure.Decode(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode answer object: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("answer object must be a map, got %T", raw)
	}
	e := make(Entry, len(fields))
	for q, v := range fields {
		if obj, ok := asValueObject(v); ok {
			var a Answer
			if err := mapstructure.Decode(obj, &a); err != nil {
				return nil, fmt.Errorf("decode answer %q: %w", q, err)
			}
			e[q] = a
			continue
		}
		e[q] = Answer{Value: v}
	}
	return e, nil
}

// asValueObject reports whether v is a {value: ...} wrapper.
func asValueObject(v any) (map[string]any, bool) {
	var m map[string]any
	switch obj := v.(type) {
	case map[string]any:
		m = obj
	case map[any]any:
		m = make(map[string]any, len(obj))
		for k, val := range obj {
			m[fmt.Sprint(k)] = val
		}
	case Answer:
		return map[string]any{"value": obj.Value}, true
	default:
		return nil, false
	}
	if _, ok := m["value"]; !ok || len(m) != 1 {
		return nil, false
	}
	return m, true
}

package xl

import (
	"slices"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/maps"
)

// Unresolved is the style id of a format code that has not been assigned a
// cellXfs index yet.
const Unresolved = -1

// Number format codes with built-in meaning. Only FormatDateDefault is
// applied automatically (to plain time.Time values); the others are
// convenience keys for typed cells.
const (
	FormatDateDefault       = "yyyy-mm-dd hh:mm:ss"
	FormatDateYYYYMMDD      = "yyyymmdd"
	FormatDateYYYYMMDDSlash = "yyyy/mm/dd"
	FormatDateDDMMYYYY      = "dd/mm/yyyy"
	FormatPercentage0       = "0%"
	FormatPercentage00      = "0.00%"
	FormatNumber00          = "0.00"
)

// Formats tracks the number format codes referenced by a worksheet and the
// style ids they resolve to.
//
// Resolution is two-phase: cells only declare usage (MarkUsed), an external
// style collaborator later assigns ids (Resolve or SetUsed).
type Formats struct {
	ids map[string]int
	rev uint64 // bumped on every change
}

func NewFormats() *Formats {
	return &Formats{ids: map[string]int{}}
}

// MarkUsed records code as in use. An already known code keeps its id.
func (f *Formats) MarkUsed(code string) {
	if code == "" {
		return
	}
	if _, exists := f.ids[code]; exists {
		return
	}
	f.ids[code] = Unresolved
	f.rev++
}

// Resolve assigns a style id to code, marking it used if necessary.
func (f *Formats) Resolve(code string, id int) {
	if code == "" {
		return
	}
	if old, exists := f.ids[code]; exists && old == id {
		return
	}
	f.ids[code] = id
	f.rev++
}

// Lookup returns the style id of code, or Unresolved.
func (f *Formats) Lookup(code string) int {
	if code == "" {
		return Unresolved
	}
	if id, ok := f.ids[code]; ok {
		return id
	}
	return Unresolved
}

// Used returns a copy of the registry, suitable for persisting.
func (f *Formats) Used() map[string]int {
	m := make(map[string]int, len(f.ids))
	for k, v := range f.ids {
		m[k] = v
	}
	return m
}

// SetUsed replaces the registry content with m.
func (f *Formats) SetUsed(m map[string]int) {
	f.ids = make(map[string]int, len(m))
	for k, v := range m {
		if k != "" {
			f.ids[k] = v
		}
	}
	f.rev++
}

// Codes returns all registered codes in sorted order.
func (f *Formats) Codes() []string {
	keys := maps.Keys(f.ids)
	slices.Sort(keys)
	return keys
}

// Pending returns the sorted codes that are still unresolved.
func (f *Formats) Pending() []string {
	var codes []string
	Enumerate(f.ids, func(code string, id int) error {
		if id == Unresolved {
			codes = append(codes, code)
		}
		return nil
	})
	return codes
}

func (f *Formats) revision() uint64 {
	return f.rev
}

// Enumerate calls callback for each entry of m in ascending key order and
// stops at the first error.
func Enumerate[M ~map[K]V, K constraints.Ordered, V any](m M, callback func(k K, v V) error) error {
	keys := maps.Keys(m)
	slices.Sort(keys)
	for _, k := range keys {
		err := callback(k, m[k])
		if err != nil {
			return err
		}
	}
	return nil
}

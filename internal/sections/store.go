package sections

import (
	"log"
	"sync"

	"github.com/jonathan/resume-builder/internal/entries"
)

// ChangeFunc is called after a form field has been rewritten.
type ChangeFunc func(key string)

// Store keeps the decoded records of every section next to the flat form data.
// The flat fields are the only state that outlives the store; records are rebuilt
// from them on construction and each mutation re-encodes the affected section
// before returning.
type Store struct {
	mu        sync.Mutex
	formData  map[string]string
	sections  map[entries.Kind][]entries.Record
	listeners []ChangeFunc
	verbose   bool
}

// New builds a store from flat form data. The map is copied.
func New(formData map[string]string) *Store {
	s := &Store{
		formData: make(map[string]string, len(formData)),
		sections: make(map[entries.Kind][]entries.Record),
	}
	for k, v := range formData {
		s.formData[k] = v
	}
	for _, kind := range entries.Kinds() {
		s.sections[kind] = entries.Decode(kind, s.formData[kind.FormKey()])
	}
	return s
}

// SetVerbose enables mutation logging.
func (s *Store) SetVerbose(verbose bool) {
	s.mu.Lock()
	s.verbose = verbose
	s.mu.Unlock()
}

// OnChange registers a listener for field rewrites.
func (s *Store) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Add appends an empty record to the section.
func (s *Store) Add(kind entries.Kind) (int, error) {
	if !kind.Valid() {
		return 0, &entries.KindError{Name: string(kind)}
	}

	s.mu.Lock()
	s.sections[kind] = append(s.sections[kind], entries.NewRecord(kind))
	index := len(s.sections[kind]) - 1
	s.commit(kind, "add")
	s.mu.Unlock()

	s.notify(kind.FormKey())
	return index, nil
}

// Remove deletes the record at index.
func (s *Store) Remove(kind entries.Kind, index int) error {
	if !kind.Valid() {
		return &entries.KindError{Name: string(kind)}
	}

	s.mu.Lock()
	records := s.sections[kind]
	if index < 0 || index >= len(records) {
		s.mu.Unlock()
		return &IndexError{Kind: kind, Index: index, Len: len(records)}
	}
	s.sections[kind] = append(records[:index:index], records[index+1:]...)
	s.commit(kind, "remove")
	s.mu.Unlock()

	s.notify(kind.FormKey())
	return nil
}

// Update sets one field of the record at index. Index len(records) appends a new
// record; anything further out is an *IndexError.
func (s *Store) Update(kind entries.Kind, index int, field string, value any) error {
	if !kind.Valid() {
		return &entries.KindError{Name: string(kind)}
	}
	coerced, err := entries.Coerce(kind, field, value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	records := s.sections[kind]
	if index < 0 || index > len(records) {
		s.mu.Unlock()
		return &IndexError{Kind: kind, Index: index, Len: len(records)}
	}
	if index == len(records) {
		records = append(records, entries.NewRecord(kind))
	}
	updated := records[index].Clone()
	updated[field] = coerced
	records[index] = updated
	s.sections[kind] = records
	s.commit(kind, "update")
	s.mu.Unlock()

	s.notify(kind.FormKey())
	return nil
}

// Reorder moves the record at from to position to; the others keep their order.
func (s *Store) Reorder(kind entries.Kind, from, to int) error {
	if !kind.Valid() {
		return &entries.KindError{Name: string(kind)}
	}

	s.mu.Lock()
	records := s.sections[kind]
	if from < 0 || from >= len(records) {
		s.mu.Unlock()
		return &IndexError{Kind: kind, Index: from, Len: len(records)}
	}
	if to < 0 || to >= len(records) {
		s.mu.Unlock()
		return &IndexError{Kind: kind, Index: to, Len: len(records)}
	}
	if from != to {
		s.sections[kind] = move(records, from, to)
	}
	s.commit(kind, "reorder")
	s.mu.Unlock()

	s.notify(kind.FormKey())
	return nil
}

func move(records []entries.Record, from, to int) []entries.Record {
	moved := records[from]
	out := make([]entries.Record, 0, len(records))
	out = append(out, records[:from]...)
	out = append(out, records[from+1:]...)
	out = append(out[:to], append([]entries.Record{moved}, out[to:]...)...)
	return out
}

// commit re-encodes a section into its flat field. Caller holds mu.
func (s *Store) commit(kind entries.Kind, op string) {
	s.formData[kind.FormKey()] = entries.Encode(kind, s.sections[kind])
	if s.verbose {
		log.Printf("[STORE] %s %s: %d record(s)", op, kind, len(s.sections[kind]))
	}
}

func (s *Store) notify(key string) {
	s.mu.Lock()
	listeners := make([]ChangeFunc, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(key)
	}
}

// Records returns a copy of the section's records.
func (s *Store) Records(kind entries.Kind) []entries.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]entries.Record, len(s.sections[kind]))
	for i, r := range s.sections[kind] {
		out[i] = r.Clone()
	}
	return out
}

// Record returns a copy of the record at index, or false when there is none.
func (s *Store) Record(kind entries.Kind, index int) (entries.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.sections[kind]
	if index < 0 || index >= len(records) {
		return nil, false
	}
	return records[index].Clone(), true
}

// Len returns the number of records in the section.
func (s *Store) Len(kind entries.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sections[kind])
}

// Field returns a flat form field.
func (s *Store) Field(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.formData[key]
}

// SetField replaces a flat form field. Writing a section key re-decodes that section,
// which is how hand-typed text enters the structured model.
func (s *Store) SetField(key, value string) {
	s.mu.Lock()
	s.formData[key] = value
	if kind, err := entries.ParseKind(key); err == nil && kind.FormKey() == key {
		s.sections[kind] = entries.Decode(kind, value)
	}
	s.mu.Unlock()

	s.notify(key)
}

// FormData returns a copy of the flat form data.
func (s *Store) FormData() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.formData))
	for k, v := range s.formData {
		out[k] = v
	}
	return out
}

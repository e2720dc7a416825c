package resolvable

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// Memory is an in-process resolver over a Snapshot. Commands are applied on
// behalf of a single actor (ActorAppHigh unless changed with AsActor) and
// SetNeutral rolls a resolvable back to its state at load time.
type Memory struct {
	mu        sync.Mutex
	actor     Actor
	records   []Record
	baseline  []Record
	licenses  map[string]map[string]string
	required  map[string]bool
	confirmed map[string]bool
}

var (
	_ Resolver = (*Memory)(nil)
	_ Licenses = (*Memory)(nil)
)

// NewMemory returns a resolver seeded with s. s is copied.
func NewMemory(s *Snapshot) *Memory {
	m := &Memory{
		actor:     ActorAppHigh,
		licenses:  make(map[string]map[string]string),
		required:  make(map[string]bool),
		confirmed: make(map[string]bool),
	}
	if s == nil {
		return m
	}

	m.records = slices.Clone(s.Resolvables)
	m.baseline = slices.Clone(s.Resolvables)
	for name, texts := range s.Licenses {
		byLang := make(map[string]string, len(texts))
		for lang, text := range texts {
			byLang[lang] = text
		}
		m.licenses[name] = byLang
	}
	for _, name := range s.LicenseConfirmationRequired {
		m.required[name] = true
	}
	for _, name := range s.LicensesConfirmed {
		m.confirmed[name] = true
	}
	return m
}

// AsActor sets the actor recorded on the commands m applies.
func (m *Memory) AsActor(a Actor) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actor = a
	return m
}

// Snapshot returns the current state of m.
func (m *Memory) Snapshot() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &Snapshot{Resolvables: slices.Clone(m.records)}
	if len(m.licenses) > 0 {
		s.Licenses = make(map[string]map[string]string, len(m.licenses))
		for name, texts := range m.licenses {
			s.Licenses[name] = texts
		}
	}
	s.LicenseConfirmationRequired = sortedKeys(m.required)
	s.LicensesConfirmed = sortedKeys(m.confirmed)
	return s
}

func (m *Memory) QueryResolvables(ctx context.Context, name string, kind Kind) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Record
	for _, r := range m.records {
		if r.Kind == kind && (name == "" || r.Name == name) {
			out = append(out, r)
		}
	}
	return out, nil
}

// SelectResolvable marks the best matching record for installation. An
// installed record stays installed. A selection made by the user is
// left owned by the user.
func (m *Memory) SelectResolvable(ctx context.Context, name string, kind Kind) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.target(name, kind, StatusSelected, StatusInstalled, StatusAvailable, StatusNone, StatusRemoved)
	if i < 0 {
		return false, nil
	}

	r := &m.records[i]
	switch {
	case r.Status == StatusSelected && r.TransactBy == ActorUser:
		return true, nil
	case r.Status == StatusInstalled:
		if r.TransactBy != ActorUser {
			r.TransactBy = m.actor
		}
	case r.Status == StatusRemoved && m.baseline[i].Status == StatusInstalled:
		r.Status = StatusInstalled
		r.TransactBy = m.actor
	default:
		r.Status = StatusSelected
		r.TransactBy = m.actor
	}
	return true, nil
}

// RemoveResolvable deselects or schedules removal of the matching record.
// Removing something that is not present is accepted as a no-op.
func (m *Memory) RemoveResolvable(ctx context.Context, name string, kind Kind) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.known(name, kind) {
		return false, nil
	}
	i := m.target(name, kind, StatusSelected, StatusInstalled)
	if i < 0 {
		return true, nil
	}

	r := &m.records[i]
	if r.Status == StatusInstalled {
		r.Status = StatusRemoved
	} else {
		r.Status = StatusAvailable
	}
	r.TransactBy = m.actor
	return true, nil
}

// SetNeutral restores every record named name to its load-time state.
// keepPreviousSoft has no effect: the in-memory resolver keeps no soft locks.
func (m *Memory) SetNeutral(ctx context.Context, name string, kind Kind, keepPreviousSoft bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	found := false
	for i := range m.records {
		if m.records[i].Kind == kind && m.records[i].Name == name {
			m.records[i] = m.baseline[i]
			found = true
		}
	}
	return found, nil
}

// LicenseText looks up the license for lang, then for its language part
// ("de" for "de_DE"). A product without any text has no license.
func (m *Memory) LicenseText(name, lang string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.known(name, KindProduct) {
		return "", false
	}
	texts := m.licenses[name]
	if text, ok := texts[lang]; ok {
		return text, true
	}
	base, _, _ := strings.Cut(lang, "_")
	if text, ok := texts[base]; ok {
		return text, true
	}
	return "", true
}

func (m *Memory) ConfirmationRequired(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.required[name]
}

func (m *Memory) Confirm(name string, confirmed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if confirmed {
		m.confirmed[name] = true
	} else {
		delete(m.confirmed, name)
	}
}

func (m *Memory) Confirmed(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.confirmed[name]
}

// target returns the index of the first record named name whose status is
// the earliest in prefer, or -1.
func (m *Memory) target(name string, kind Kind, prefer ...Status) int {
	for _, want := range prefer {
		for i, r := range m.records {
			if r.Kind == kind && r.Name == name && r.Status == want {
				return i
			}
		}
	}
	return -1
}

func (m *Memory) known(name string, kind Kind) bool {
	for _, r := range m.records {
		if r.Kind == kind && r.Name == name {
			return true
		}
	}
	return false
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

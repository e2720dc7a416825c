package resolvable

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind is the resolvable type a query or command applies to.
type Kind int

const (
	KindProduct Kind = iota + 1
	KindPattern
	KindPackage
)

var kindNames = map[Kind]string{
	KindProduct: "product",
	KindPattern: "pattern",
	KindPackage: "package",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Kinds lists every known kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindProduct, KindPattern, KindPackage}
}

// ParseKind parses a kind name. A leading ':' is accepted so that
// resolver property dumps can be read unchanged.
func ParseKind(s string) (Kind, error) {
	s = normalizeToken(s)
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown resolvable kind %q", s)
}

func (k Kind) MarshalYAML() (any, error) { return k.String(), nil }

func (k *Kind) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseKind(node.Value)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Status is the transaction state of a resolvable.
type Status int

const (
	StatusNone Status = iota + 1
	StatusAvailable
	StatusSelected
	StatusRemoved
	StatusInstalled
)

var statusNames = map[Status]string{
	StatusNone:      "none",
	StatusAvailable: "available",
	StatusSelected:  "selected",
	StatusRemoved:   "removed",
	StatusInstalled: "installed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// GoingAway reports whether the status means the resolvable leaves the system.
func (s Status) GoingAway() bool { return s == StatusRemoved }

// Present reports whether the resolvable will be on the system after the
// transaction is committed.
func (s Status) Present() bool { return s == StatusSelected || s == StatusInstalled }

// ParseStatus parses a status token such as "selected" or ":installed".
func ParseStatus(s string) (Status, error) {
	s = normalizeToken(s)
	for st, name := range statusNames {
		if name == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown resolvable status %q", s)
}

func (s Status) MarshalYAML() (any, error) { return s.String(), nil }

// UnmarshalYAML keeps unknown tokens as the zero Status so a snapshot with a
// single bad record can still be loaded; consumers validate records.
func (s *Status) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseStatus(node.Value)
	if err != nil {
		*s = 0
		return nil
	}
	*s = parsed
	return nil
}

// Actor identifies who last changed the status of a resolvable.
type Actor int

const (
	ActorNone Actor = iota
	ActorSolver
	ActorAppLow
	ActorAppHigh
	ActorUser
)

var actorNames = map[Actor]string{
	ActorNone:    "none",
	ActorSolver:  "solver",
	ActorAppLow:  "app_low",
	ActorAppHigh: "app_high",
	ActorUser:    "user",
}

func (a Actor) String() string {
	if name, ok := actorNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Actor(%d)", int(a))
}

// Application reports whether the change was made by the application
// (either priority).
func (a Actor) Application() bool { return a == ActorAppHigh || a == ActorAppLow }

// ParseActor parses a transaction actor token. An empty token is ActorNone.
func ParseActor(s string) (Actor, error) {
	s = normalizeToken(s)
	if s == "" {
		return ActorNone, nil
	}
	for a, name := range actorNames {
		if name == s {
			return a, nil
		}
	}
	return ActorNone, fmt.Errorf("unknown transaction actor %q", s)
}

func (a Actor) MarshalYAML() (any, error) { return a.String(), nil }

// UnmarshalYAML decodes unknown actors as ActorNone, like Status does for
// unknown statuses.
func (a *Actor) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseActor(node.Value)
	if err != nil {
		*a = ActorNone
		return nil
	}
	*a = parsed
	return nil
}

func normalizeToken(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ":"))
}

// Record is a point-in-time read of one resolvable from the resolver.
type Record struct {
	Name        string `yaml:"name"`
	Kind        Kind   `yaml:"kind"`
	Version     string `yaml:"version,omitempty"`
	Arch        string `yaml:"arch,omitempty"`
	Vendor      string `yaml:"vendor,omitempty"`
	Category    string `yaml:"category,omitempty"`
	DisplayName string `yaml:"display_name,omitempty"`
	ShortName   string `yaml:"short_name,omitempty"`
	Source      int    `yaml:"source,omitempty"`
	Status      Status `yaml:"status"`
	TransactBy  Actor  `yaml:"transact_by,omitempty"`
}

// Label returns the preferred human readable name of the record.
func (r Record) Label() string {
	return Label(r.DisplayName, r.ShortName, r.Name)
}

// Label returns the first non-empty candidate, in order.
func Label(candidates ...string) string {
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return c
		}
	}
	return ""
}

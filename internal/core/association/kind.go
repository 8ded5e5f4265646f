package association

import "fmt"

// Kind is the strategy that proposed an association. The set is closed and
// ordered: lower values are more specific and win ties on the same columns.
type Kind int

const (
	KindExactKey Kind = iota
	KindPrefixedKey
	KindExtension
)

// tier groups strategies whose proposals compete for the same relationship.
// Exact and prefixed matches are both "column references a key" and are
// ambiguous with each other when they disagree on the columns.
type tier int

const (
	tierReference tier = iota
	tierExtension
)

var kindInfo = [...]struct {
	name  string
	score int
	tier  tier
}{
	KindExactKey:    {"exact-key", 100, tierReference},
	KindPrefixedKey: {"prefixed-key", 70, tierReference},
	KindExtension:   {"extension", 50, tierExtension},
}

// Kinds returns every strategy in priority order.
func Kinds() []Kind {
	return []Kind{KindExactKey, KindPrefixedKey, KindExtension}
}

func (k Kind) valid() bool {
	return k >= 0 && int(k) < len(kindInfo)
}

func (k Kind) String() string {
	if !k.valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindInfo[k].name
}

// Score is the base specificity score of the strategy.
func (k Kind) Score() int {
	if !k.valid() {
		return 0
	}
	return kindInfo[k].score
}

func (k Kind) tier() tier {
	return kindInfo[k].tier
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.valid() {
		return nil, fmt.Errorf("invalid association kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind maps a strategy name ("exact-key", "prefixed-key", "extension")
// back to its Kind.
func ParseKind(s string) (Kind, error) {
	for i, info := range kindInfo {
		if info.name == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown association kind %q (allowed: exact-key, prefixed-key, extension)", s)
}

// KeyKind classifies why a column was considered key-like. Its numeric value
// is the candidate's rank: lower is more authoritative.
type KeyKind int

const (
	KeyPrimary KeyKind = iota
	KeyAlternate
	KeyNaturalID
)

func (k KeyKind) String() string {
	switch k {
	case KeyPrimary:
		return "primary"
	case KeyAlternate:
		return "alternate"
	case KeyNaturalID:
		return "natural-id"
	default:
		return fmt.Sprintf("KeyKind(%d)", int(k))
	}
}

func (k KeyKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Rank is the candidate priority used when scoring proposals.
func (k KeyKind) Rank() int {
	return int(k)
}

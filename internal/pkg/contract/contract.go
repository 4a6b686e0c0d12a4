package contract

import (
	"strings"
)

// Kind distinguishes call and put contracts.
type Kind string

const (
	KindCall Kind = "CE"
	KindPut  Kind = "PE"
)

// Contract is a parsed option contract identifier.
type Contract struct {
	ID         string
	Underlying string
	Kind       Kind
}

// Parse resolves an NSE-style option identifier such as
// "RELIANCE25SEP2500CE" or "NIFTY30OCT24800PE". The identifier must end in
// CE or PE and carry a leading alphabetic underlying; everything else
// (equities, futures, garbage) fails to parse.
func Parse(id string) (Contract, bool) {
	s := strings.ToUpper(strings.TrimSpace(id))
	if len(s) < 4 {
		return Contract{}, false
	}

	var kind Kind
	switch {
	case strings.HasSuffix(s, string(KindCall)):
		kind = KindCall
	case strings.HasSuffix(s, string(KindPut)):
		kind = KindPut
	default:
		return Contract{}, false
	}

	body := s[:len(s)-2]
	underlying := leadingAlpha(body)
	if underlying == "" || underlying == body {
		// No expiry/strike segment after the underlying: not an option.
		return Contract{}, false
	}
	return Contract{ID: s, Underlying: underlying, Kind: kind}, true
}

// IsOption reports whether the identifier resolves to a call/put contract.
func IsOption(id string) bool {
	_, ok := Parse(id)
	return ok
}

func leadingAlpha(s string) string {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			continue
		}
		return s[:i]
	}
	return s
}

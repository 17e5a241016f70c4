package semtok

// TokenType represents the semantic meaning of a token
type TokenType uint32

const (
	// TokenDecorator is the attribute name (data-on-click)
	TokenDecorator TokenType = iota

	// TokenProperty is the key selector after ':'
	TokenProperty

	// TokenModifier is one "__name.arg" modifier
	TokenModifier
)

// TokenModifierSet is a bit set of LSP token modifiers
type TokenModifierSet uint32

const (
	ModifierNone TokenModifierSet = 0

	// ModifierDefaultLibrary marks names documented in the vocabulary
	ModifierDefaultLibrary TokenModifierSet = 1 << 0
)

var (
	tokenTypes     = []string{"decorator", "property", "modifier"}
	tokenModifiers = []string{"defaultLibrary"}
)

// Token is a semantic token on a single line
type Token struct {
	Type     TokenType
	Modifier TokenModifierSet
	Line     int
	Start    int
	Length   int
}

// String returns a human-readable representation of the token type
func (t TokenType) String() string {
	if int(t) < len(tokenTypes) {
		return tokenTypes[t]
	}
	return "unknown"
}

// Legend returns the token type and modifier names, indexed the way Encode
// emits them.
func Legend() (types []string, modifiers []string) {
	return append([]string(nil), tokenTypes...), append([]string(nil), tokenModifiers...)
}

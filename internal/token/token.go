package token

type Type string

type Token struct {
	Type    Type
	Literal string
	// Raw is the source lexeme; Literal may be normalized (unquoted strings).
	Raw  string
	Line int
	Col  int
	// Data is the decoded text between the parentheses of a typed literal.
	Data   string
	Quoted bool
}

const (
	// Special
	ILLEGAL Type = "ILLEGAL"
	EOF     Type = "EOF"

	NEWLINE Type = "NEWLINE"

	IDENT    Type = "IDENT"    // mnemonics, kinds, registers, library names
	INT      Type = "INT"      // bare integer operand
	STRING   Type = "STRING"   // quoted library name
	TYPED    Type = "TYPED"    // kind(data)
	LABEL    Type = "LABEL"    // name:
	LABELREF Type = "LABELREF" // @name
	OPERATOR Type = "OPERATOR" // ++ + <> ...
)

// Len is the source width used for diagnostics.
func (t Token) Len() int {
	if t.Raw != "" {
		return len(t.Raw)
	}
	if n := len(t.Literal); n > 0 {
		return n
	}
	return 1
}

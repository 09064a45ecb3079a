package parser

import (
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"

	"allot/internal/code"
	"allot/internal/diag"
	"allot/internal/lexer"
	"allot/internal/numlit"
	"allot/internal/ops"
	"allot/internal/token"
	"allot/internal/value"
)

// Diagnostic codes reported by the assembler.
const (
	CodeIllegal      = "AS0001"
	CodeMnemonic     = "AS0002"
	CodeOperand      = "AS0003"
	CodeLiteral      = "AS0004"
	CodeUndefined    = "AS0005"
	CodeDuplicate    = "AS0006"
	CodeOperandCount = "AS0007"
)

type Label struct {
	Name  string
	Index int
	Range diag.Range
}

// Ref is a use of a label.
type Ref struct {
	Name  string
	Index int
	Range diag.Range
}

// Call is a library call site.
type Call struct {
	Name  string
	Index int
	Range diag.Range
}

// Unit is an assembled source file along with the positions tooling needs.
type Unit struct {
	Program code.Program
	// Positions holds the mnemonic range of each instruction.
	Positions []diag.Range
	Labels    map[string]Label
	Refs      []Ref
	Calls     []Call
}

// LabelAt returns the labels attached to instruction index i.
func (u *Unit) LabelAt(i int) []string {
	var out []string
	for name, l := range u.Labels {
		if l.Index == i {
			out = append(out, name)
		}
	}
	return out
}

type fixup struct {
	ref    Ref
	offset bool // patch Offset instead of Val
}

type Parser struct {
	l     *lexer.Lexer
	diags []diag.Diagnostic

	curToken token.Token

	unit   *Unit
	fixups []fixup
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		l:     l,
		diags: []diag.Diagnostic{},
		unit: &Unit{
			Labels: map[string]Label{},
		},
	}
	p.nextToken()
	return p
}

func (p *Parser) Diagnostics() []diag.Diagnostic { return p.diags }

// Parse assembles src. The unit is returned even when diagnostics contain
// errors so editors can still use its labels and positions.
func Parse(src string) (*Unit, []diag.Diagnostic) {
	p := New(lexer.New(src))
	unit := p.ParseUnit()
	return unit, p.Diagnostics()
}

// Assemble turns assembly source into a program, failing on any error
// diagnostic.
func Assemble(src string) (code.Program, error) {
	unit, diags := Parse(src)
	if diag.HasErrors(diags) {
		return nil, &diag.Error{Diagnostics: diags}
	}
	return unit.Program, nil
}

func (p *Parser) ParseUnit() *Unit {
	for p.curToken.Type != token.EOF {
		line := p.readLine()
		if len(line) == 0 {
			continue
		}
		p.parseLine(line)
	}
	p.resolve()
	return p.unit
}

// readLine collects the tokens up to the next NEWLINE or EOF.
func (p *Parser) readLine() []token.Token {
	var line []token.Token
	for p.curToken.Type != token.NEWLINE && p.curToken.Type != token.EOF {
		line = append(line, p.curToken)
		p.nextToken()
	}
	if p.curToken.Type == token.NEWLINE {
		p.nextToken()
	}
	return line
}

func (p *Parser) parseLine(line []token.Token) {
	for _, tok := range line {
		if tok.Type == token.ILLEGAL {
			p.errorAt(tok, CodeIllegal, "illegal token: %s", tok.Literal)
			return
		}
	}

	for len(line) > 0 && line[0].Type == token.LABEL {
		p.defineLabel(line[0])
		line = line[1:]
	}
	if len(line) == 0 {
		return
	}

	head := line[0]
	if head.Type != token.IDENT {
		p.errorAt(head, CodeMnemonic, "expected mnemonic, got %s", head.Type)
		return
	}
	op, ok := code.LookupMnemonic(head.Literal)
	if !ok {
		p.errorAt(head, CodeMnemonic, "unknown mnemonic %q", head.Literal)
		return
	}
	def, _ := code.Lookup(op)

	ins, ok := p.parseOperands(op, def, head, line[1:])
	if !ok {
		return
	}
	p.unit.Program = append(p.unit.Program, ins)
	p.unit.Positions = append(p.unit.Positions, rangeOf(head))
}

func (p *Parser) defineLabel(tok token.Token) {
	if prev, ok := p.unit.Labels[tok.Literal]; ok {
		p.errorAt(tok, CodeDuplicate, "label %q already defined at line %d", tok.Literal, prev.Range.Line)
		return
	}
	p.unit.Labels[tok.Literal] = Label{
		Name:  tok.Literal,
		Index: len(p.unit.Program),
		Range: rangeOf(tok),
	}
}

func (p *Parser) parseOperands(op code.Opcode, def *code.Definition, head token.Token, args []token.Token) (code.Instruction, bool) {
	ins := code.Instruction{Op: op, A: value.RegNone, B: value.RegNone}
	index := len(p.unit.Program)

	want := len(def.Operands)
	// A unary op may omit its source register.
	if op == code.OpOp && len(args) == 2 {
		want = 2
	}
	if len(args) != want {
		p.errorAt(head, CodeOperandCount, "%s expects %d operands, got %d", def.Name, want, len(args))
		return ins, false
	}

	regs := 0
	setReg := func(r value.Register) {
		if regs == 0 {
			ins.A = r
		} else {
			ins.B = r
		}
		regs++
	}

	for i, tok := range args {
		switch def.Operands[i] {
		case code.OperandOp:
			oper, ok := ops.ParseOperation(tok.Literal)
			if tok.Type != token.OPERATOR || !ok {
				p.errorAt(tok, CodeOperand, "unknown operator %q", tok.Literal)
				return ins, false
			}
			if oper.IsBinary() && len(args) != 3 {
				p.errorAt(head, CodeOperandCount, "binary operator %s needs a source register", oper)
				return ins, false
			}
			if !oper.IsBinary() && len(args) == 3 && args[2].Literal != "_" {
				p.errorAt(head, CodeOperandCount, "unary operator %s takes one register", oper)
				return ins, false
			}
			ins.Oper = oper

		case code.OperandReg, code.OperandOptReg:
			r, ok := value.ParseRegister(tok.Literal)
			if tok.Type != token.IDENT || !ok {
				p.errorAt(tok, CodeOperand, "expected register, got %q", tok.Literal)
				return ins, false
			}
			if r == value.RegNone && def.Operands[i] == code.OperandReg {
				p.errorAt(tok, CodeOperand, "%s needs a register here, not _", def.Name)
				return ins, false
			}
			if r == value.RegNone && ins.Op == code.OpOp && ins.Oper.IsBinary() {
				p.errorAt(tok, CodeOperand, "binary operator %s needs a source register", ins.Oper)
				return ins, false
			}
			setReg(r)

		case code.OperandValue:
			switch tok.Type {
			case token.TYPED:
				v, ok := p.parseTyped(tok)
				if !ok {
					return ins, false
				}
				ins.Val = v
			case token.LABELREF:
				ins.Val = value.Address(0)
				p.addRef(tok, index, false)
			case token.IDENT:
				r, ok := value.ParseRegister(tok.Literal)
				if !ok || r == value.RegNone {
					p.errorAt(tok, CodeOperand, "expected value or register, got %q", tok.Literal)
					return ins, false
				}
				ins.Val = value.Reg(r)
			default:
				p.errorAt(tok, CodeOperand, "expected value, got %s", tok.Type)
				return ins, false
			}

		case code.OperandKind:
			k, ok := value.ParseKind(tok.Literal)
			if tok.Type != token.IDENT || !ok {
				p.errorAt(tok, CodeOperand, "unknown kind %q", tok.Literal)
				return ins, false
			}
			ins.Kind = k

		case code.OperandOffset:
			switch tok.Type {
			case token.LABELREF:
				p.addRef(tok, index, true)
			case token.INT:
				n, ok := p.parseUint(tok, tok.Literal, 64)
				if !ok {
					return ins, false
				}
				ins.Offset = n
			default:
				p.errorAt(tok, CodeOperand, "expected offset or label, got %s", tok.Type)
				return ins, false
			}

		case code.OperandName:
			if tok.Type != token.IDENT && tok.Type != token.STRING {
				p.errorAt(tok, CodeOperand, "expected function name, got %s", tok.Type)
				return ins, false
			}
			ins.Name = tok.Literal
			p.unit.Calls = append(p.unit.Calls, Call{Name: tok.Literal, Index: index, Range: rangeOf(tok)})

		case code.OperandFlag:
			switch {
			case tok.Type == token.IDENT && tok.Literal == "true":
				ins.Flag = true
			case tok.Type == token.IDENT && tok.Literal == "false":
				ins.Flag = false
			default:
				p.errorAt(tok, CodeOperand, "expected true or false, got %q", tok.Literal)
				return ins, false
			}

		case code.OperandBits:
			if tok.Type != token.INT {
				p.errorAt(tok, CodeOperand, "expected flag bits, got %s", tok.Type)
				return ins, false
			}
			n, ok := p.parseUint(tok, tok.Literal, 8)
			if !ok {
				return ins, false
			}
			ins.Bits = uint8(n)
		}
	}
	return ins, true
}

func (p *Parser) addRef(tok token.Token, index int, offset bool) {
	ref := Ref{Name: tok.Literal, Index: index, Range: rangeOf(tok)}
	p.unit.Refs = append(p.unit.Refs, ref)
	p.fixups = append(p.fixups, fixup{ref: ref, offset: offset})
}

// resolve patches label references once every label is known.
func (p *Parser) resolve() {
	for _, f := range p.fixups {
		label, ok := p.unit.Labels[f.ref.Name]
		if !ok {
			p.diags = append(p.diags, diag.Errorf(CodeUndefined, f.ref.Range, "undefined label %q", f.ref.Name))
			continue
		}
		if f.ref.Index >= len(p.unit.Program) {
			continue
		}
		ins := &p.unit.Program[f.ref.Index]
		if f.offset {
			ins.Offset = uint64(label.Index)
		} else {
			ins.Val = value.Address(label.Index)
		}
	}
}

func (p *Parser) parseTyped(tok token.Token) (value.Value, bool) {
	k, ok := value.ParseKind(tok.Literal)
	if !ok {
		p.errorAt(tok, CodeLiteral, "unknown kind %q", tok.Literal)
		return value.None(), false
	}
	data := tok.Data
	if tok.Quoted && k != value.KindString && k != value.KindChar {
		p.errorAt(tok, CodeLiteral, "%s literal cannot be quoted", k)
		return value.None(), false
	}

	switch {
	case k == value.KindNone:
		if data != "" {
			p.errorAt(tok, CodeLiteral, "none takes no data")
			return value.None(), false
		}
		return value.None(), true

	case k.IsInteger():
		n, err := numlit.ParseIntLiteral(data)
		if err != nil {
			p.errorAt(tok, CodeLiteral, "%s: %v", k, err)
			return value.None(), false
		}
		lo, hi := bounds(k)
		if n.Cmp(lo) < 0 || n.Cmp(hi) > 0 {
			p.errorAt(tok, CodeLiteral, "%s out of range for %s", data, k)
			return value.None(), false
		}
		return value.FromBig(k, n), true

	case k.IsFloat():
		f, err := numlit.ParseFloatLiteral(data)
		if err != nil {
			p.errorAt(tok, CodeLiteral, "%s: %v", k, err)
			return value.None(), false
		}
		if k == value.KindFloat32 {
			return value.Float32(float32(f)), true
		}
		return value.Float64(f), true
	}

	switch k {
	case value.KindChar:
		r, size := utf8.DecodeRuneInString(data)
		if data == "" || size != len(data) || (r == utf8.RuneError && size == 1) {
			p.errorAt(tok, CodeLiteral, "chr needs exactly one character, got %q", data)
			return value.None(), false
		}
		return value.Char(r), true
	case value.KindString:
		if !utf8.ValidString(data) {
			p.errorAt(tok, CodeLiteral, "str must be valid utf-8, got %q", data)
			return value.None(), false
		}
		return value.String(data), true
	case value.KindBool:
		switch data {
		case "true":
			return value.Bool(true), true
		case "false":
			return value.Bool(false), true
		}
		p.errorAt(tok, CodeLiteral, "bool must be true or false, got %q", data)
		return value.None(), false
	case value.KindAddress:
		n, ok := p.parseUint(tok, data, 63)
		if !ok {
			return value.None(), false
		}
		return value.Address(int(n)), true
	case value.KindPointer:
		n, ok := p.parseUint(tok, data, 64)
		if !ok {
			return value.None(), false
		}
		return value.Pointer(n), true
	case value.KindRegister:
		r, ok := value.ParseRegister(data)
		if !ok || r == value.RegNone {
			p.errorAt(tok, CodeLiteral, "invalid register %q", data)
			return value.None(), false
		}
		return value.Reg(r), true
	}
	p.errorAt(tok, CodeLiteral, "unsupported literal kind %s", k)
	return value.None(), false
}

func (p *Parser) parseUint(tok token.Token, lit string, bits uint) (uint64, bool) {
	n, err := numlit.ParseIntLiteral(lit)
	if err != nil {
		p.errorAt(tok, CodeLiteral, "%v", err)
		return 0, false
	}
	if n.Sign() < 0 || n.BitLen() > int(bits) {
		p.errorAt(tok, CodeLiteral, "%s out of range", lit)
		return 0, false
	}
	return n.Uint64(), true
}

func bounds(k value.Kind) (lo, hi *big.Int) {
	w := k.Width()
	if k.IsSigned() {
		hi = new(big.Int).Lsh(big.NewInt(1), w-1)
		lo = new(big.Int).Neg(hi)
		hi.Sub(hi, big.NewInt(1))
		return lo, hi
	}
	hi = new(big.Int).Lsh(big.NewInt(1), w)
	hi.Sub(hi, big.NewInt(1))
	return big.NewInt(0), hi
}

func (p *Parser) nextToken() {
	p.curToken = p.l.NextToken()
}

func (p *Parser) errorAt(tok token.Token, code string, format string, args ...any) {
	p.diags = append(p.diags, diag.Errorf(code, rangeOf(tok), format, args...))
}

func rangeOf(tok token.Token) diag.Range {
	return diag.Range{Line: tok.Line, Col: tok.Col, Length: tok.Len()}
}

// Format renders diagnostics one per line for path.
func Format(path string, diags []diag.Diagnostic) string {
	var b strings.Builder
	for _, d := range diags {
		fmt.Fprintln(&b, d.Format(path))
	}
	return b.String()
}

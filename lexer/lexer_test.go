package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenTypes(t *testing.T, src string) []TokenType {
	t.Helper()
	tokens, err := Tokenize(src, "test.jsonnet")
	require.NoError(t, err)
	types := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	return types
}

func TestTokenize_Simple(t *testing.T) {
	types := tokenTypes(t, `{a: 1}`)
	assert.Equal(t, []TokenType{TokLBrace, TokIdent, TokColon, TokNumber, TokRBrace, TokEOF}, types)
}

func TestTokenize_Keywords(t *testing.T) {
	types := tokenTypes(t, `local if then else function import importstr error assert in null true false self super tailstrict`)
	assert.Equal(t, []TokenType{
		TokLocal, TokIf, TokThen, TokElse, TokFunction, TokImport, TokImportStr,
		TokError, TokAssert, TokIn, TokNull, TokTrue, TokFalse, TokSelf, TokSuper,
		TokTailStrict, TokEOF,
	}, types)
}

func TestTokenize_KeywordPrefixIsIdent(t *testing.T) {
	tokens, err := Tokenize("localvar iffy", "test.jsonnet")
	require.NoError(t, err)
	require.Equal(t, TokIdent, tokens[0].Type)
	assert.Equal(t, "localvar", tokens[0].Value)
	require.Equal(t, TokIdent, tokens[1].Type)
	assert.Equal(t, "iffy", tokens[1].Value)
}

func TestTokenize_Numbers(t *testing.T) {
	tokens, err := Tokenize("42 3.14 1e3 2.5e-2", "test.jsonnet")
	require.NoError(t, err)
	require.Equal(t, 5, len(tokens))
	assert.Equal(t, 42.0, tokens[0].Num)
	assert.True(t, tokens[0].IsInt)
	assert.Equal(t, 3.14, tokens[1].Num)
	assert.False(t, tokens[1].IsInt)
	assert.Equal(t, 1000.0, tokens[2].Num)
	assert.False(t, tokens[2].IsInt)
	assert.Equal(t, 0.025, tokens[3].Num)
}

func TestTokenize_NumberMissingExponent(t *testing.T) {
	_, err := Tokenize("1e", "test.jsonnet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exponent")
}

func TestTokenize_StringEscapes(t *testing.T) {
	tokens, err := Tokenize(`"a\nb\t\"q\" A"`, "test.jsonnet")
	require.NoError(t, err)
	require.Equal(t, TokString, tokens[0].Type)
	assert.Equal(t, "a\nb\t\"q\" A", tokens[0].Value)
}

func TestTokenize_SingleQuotedString(t *testing.T) {
	tokens, err := Tokenize(`'it\'s'`, "test.jsonnet")
	require.NoError(t, err)
	assert.Equal(t, "it's", tokens[0].Value)
}

func TestTokenize_VerbatimString(t *testing.T) {
	tokens, err := Tokenize(`@"no \n escapes, ""quoted"""`, "test.jsonnet")
	require.NoError(t, err)
	require.Equal(t, TokString, tokens[0].Type)
	assert.Equal(t, `no \n escapes, "quoted"`, tokens[0].Value)
}

func TestTokenize_TextBlock(t *testing.T) {
	src := "|||\n  line one\n  line two\n|||"
	tokens, err := Tokenize(src, "test.jsonnet")
	require.NoError(t, err)
	require.Equal(t, TokString, tokens[0].Type)
	assert.Equal(t, "line one\nline two\n", tokens[0].Value)
}

func TestTokenize_TextBlockBlankLines(t *testing.T) {
	src := "|||\n  a\n\n  b\n|||"
	tokens, err := Tokenize(src, "test.jsonnet")
	require.NoError(t, err)
	assert.Equal(t, "a\n\nb\n", tokens[0].Value)
}

func TestTokenize_UnterminatedString(t *testing.T) {
	_, err := Tokenize(`"abc`, "test.jsonnet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unterminated")
}

func TestTokenize_Comments(t *testing.T) {
	src := "1 // line\n# hash\n/* block\nstill */ 2"
	tokens, err := Tokenize(src, "test.jsonnet")
	require.NoError(t, err)
	require.Equal(t, 3, len(tokens))
	assert.Equal(t, 1.0, tokens[0].Num)
	assert.Equal(t, 2.0, tokens[1].Num)
}

func TestTokenize_UnterminatedBlockComment(t *testing.T) {
	_, err := Tokenize("/* never closed", "test.jsonnet")
	require.Error(t, err)
}

func TestTokenize_OperatorsGreedy(t *testing.T) {
	tokens, err := Tokenize("a<=b == c<<2 >>1 != d", "test.jsonnet")
	require.NoError(t, err)
	var ops []string
	for _, tok := range tokens {
		if tok.Type == TokOp {
			ops = append(ops, tok.Value)
		}
	}
	assert.Equal(t, []string{"<=", "==", "<<", ">>", "!="}, ops)
}

func TestTokenize_ColonForms(t *testing.T) {
	types := tokenTypes(t, "a: b:: c:::")
	assert.Equal(t, []TokenType{
		TokIdent, TokColon, TokIdent, TokDoubleColon, TokIdent, TokTripleColon, TokEOF,
	}, types)
}

func TestTokenize_EqualsVersusEqEq(t *testing.T) {
	tokens, err := Tokenize("x = y == z", "test.jsonnet")
	require.NoError(t, err)
	assert.Equal(t, TokEquals, tokens[1].Type)
	require.Equal(t, TokOp, tokens[3].Type)
	assert.Equal(t, "==", tokens[3].Value)
}

func TestTokenize_Spans(t *testing.T) {
	tokens, err := Tokenize("ab\n cd", "test.jsonnet")
	require.NoError(t, err)
	assert.Equal(t, 1, tokens[0].Span.StartLine)
	assert.Equal(t, 1, tokens[0].Span.StartCol)
	assert.Equal(t, 2, tokens[1].Span.StartLine)
	assert.Equal(t, 2, tokens[1].Span.StartCol)
	assert.Equal(t, "test.jsonnet", tokens[1].Span.File)
}

func TestTokenize_UnexpectedCharacter(t *testing.T) {
	_, err := Tokenize("a ` b", "test.jsonnet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected character")
}

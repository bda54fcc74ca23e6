package lexer

import (
	"math/rand"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/require"
)

// FuzzTokenize checks the tokenizer never panics and always terminates
// with either an error or an EOF-ended token stream.
func FuzzTokenize(f *testing.F) {
	f.Add(`{a: 1, b:: "x"}`)
	f.Add("local x = [1, 2]; x[0]")
	f.Add("|||\n  text\n|||")
	f.Add(`@"verbatim"`)
	f.Add("1 == 2 <= 3 << 4")
	f.Fuzz(func(t *testing.T, src string) {
		tokens, err := Tokenize(src, "fuzz.jsonnet")
		if err != nil {
			return
		}
		require.NotEmpty(t, tokens)
		require.Equal(t, TokEOF, tokens[len(tokens)-1].Type)
	})
}

// TestTokenize_RandomStrings feeds generator-driven random inputs to the
// tokenizer; the only contract is no panic and EOF termination on
// success.
func TestTokenize_RandomStrings(t *testing.T) {
	randSource := rand.NewSource(1)
	fuzzer := fuzz.New().RandSource(randSource).Funcs(func(s *string, c fuzz.Continue) {
		pieces := []string{"{", "}", "[", "]", "(", ")", ":", "::", ",", ";", "=", "==",
			"local", "if", "then", "else", "x", "1", "2.5", `"str"`, "'s'", "+", "-",
			"|||", "\n", " ", "//c", "/*", "*/", "@", `"`, "\\"}
		n := c.Intn(40)
		out := ""
		for i := 0; i < n; i++ {
			out += pieces[c.Intn(len(pieces))]
		}
		*s = out
	})
	for i := 0; i < 500; i++ {
		var src string
		fuzzer.Fuzz(&src)
		tokens, err := Tokenize(src, "random.jsonnet")
		if err != nil {
			continue
		}
		require.NotEmpty(t, tokens)
		require.Equal(t, TokEOF, tokens[len(tokens)-1].Type)
	}
}

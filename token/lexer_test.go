package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func allTokens(src string) []Token {
	l := New(src)
	var toks []Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Kind == EOF || tok.Kind == ERROR {
			break
		}
	}
	return toks
}

func TestLexerKeywordsCaseInsensitive(t *testing.T) {
	toks := allTokens("MaTcH (n) where n.age > 10 RETURN n")
	require.Equal(t, MATCH, toks[0].Kind)
	kinds := make([]Kind, 0)
	for _, tk := range toks {
		kinds = append(kinds, tk.Kind)
	}
	require.Contains(t, kinds, WHERE)
	require.Contains(t, kinds, RETURN)
}

func TestLexerStringEscapes(t *testing.T) {
	toks := allTokens(`"a\nb\tA"`)
	require.Equal(t, STRING, toks[0].Kind)
	require.Equal(t, "a\nb\tA", toks[0].Text)
}

func TestLexerUnterminatedString(t *testing.T) {
	toks := allTokens(`"abc`)
	require.Equal(t, ERROR, toks[len(toks)-1].Kind)
}

func TestLexerComment(t *testing.T) {
	toks := allTokens("RETURN 1 // trailing comment\n")
	require.Equal(t, RETURN, toks[0].Kind)
	require.Equal(t, INT, toks[1].Kind)
	require.Equal(t, EOF, toks[2].Kind)
}

func TestLexerOperators(t *testing.T) {
	toks := allTokens("<- -> <-> <> <= >= =~")
	kinds := []Kind{ARROWL, ARROWR, BOTHARR, NEQ, LTE, GTE, REGEX, EOF}
	for i, tk := range toks {
		require.Equal(t, kinds[i], tk.Kind)
	}
}

func TestLexerFloatAndInt(t *testing.T) {
	toks := allTokens("3.14 42")
	require.Equal(t, FLOAT, toks[0].Kind)
	require.Equal(t, "3.14", toks[0].Text)
	require.Equal(t, INT, toks[1].Kind)
	require.Equal(t, "42", toks[1].Text)
}

// TestLexerRestart is Testable Property 1: tokens(S) is deterministic
// and every token's text slice reconstructs a contiguous region of S.
func TestLexerRestart(t *testing.T) {
	src := `MATCH (a:Person {name:"Alice"})-[:KNOWS*1..2]->(b) WHERE a.age<>30 RETURN a.name AS n`
	first := allTokens(src)
	second := allTokens(src)
	require.Equal(t, len(first), len(second))
	for i := range first {
		require.Equal(t, first[i], second[i])
	}
	for _, tk := range first {
		if tk.Kind == EOF || tk.Kind == STRING {
			continue
		}
		if tk.Text != "" {
			require.Contains(t, src, tk.Text)
		}
	}
}

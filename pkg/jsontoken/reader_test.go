package jsontoken

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/stackjson-go/pkg/util/merr"
)

type token struct {
	kind  Kind
	value string
}

func collect(t *testing.T, r *Reader) []token {
	t.Helper()
	var out []token
	for {
		ok, err := r.Read()
		require.NoError(t, err)
		if !ok {
			return out
		}
		tok := token{kind: r.Kind()}
		switch r.Kind() {
		case String, PropertyName:
			tok.value = string(r.AppendString(nil))
		default:
			tok.value = string(r.Value())
		}
		out = append(out, tok)
	}
}

// readSplit 先以非 final 模式读取 doc[:split]，再补齐剩余数据继续读取。
func readSplit(t *testing.T, doc string, split int) []token {
	t.Helper()
	head := []byte(doc[:split])
	r := NewReader(head, false, NewState(0))
	out := collect(t, r)
	pending := append(append([]byte{}, head[r.Consumed():]...), doc[split:]...)
	r = NewReader(pending, true, r.State())
	out = append(out, collect(t, r)...)
	assert.True(t, r.Done())
	return out
}

func TestReader_Tokens(t *testing.T) {
	doc := `{"id": 7, "name":"héllo\n", "tags":[true,false,null], "score":-1.5e+3, "nested":{"a":[]}}`
	r := NewReader([]byte(doc), true, NewState(0))
	tokens := collect(t, r)
	assert.True(t, r.Done())
	assert.Equal(t, len(doc), r.Consumed())
	assert.Equal(t, []token{
		{StartObject, ""},
		{PropertyName, "id"}, {Number, "7"},
		{PropertyName, "name"}, {String, "héllo\n"},
		{PropertyName, "tags"}, {StartArray, ""}, {True, "true"}, {False, "false"}, {Null, "null"}, {EndArray, ""},
		{PropertyName, "score"}, {Number, "-1.5e+3"},
		{PropertyName, "nested"}, {StartObject, ""}, {PropertyName, "a"}, {StartArray, ""}, {EndArray, ""}, {EndObject, ""},
		{EndObject, ""},
	}, tokens)
}

func TestReader_ResumeAtEveryOffset(t *testing.T) {
	docs := []string{
		`{"Id":1,"Name":"A","Tags":["x","y"]}`,
		`[[[1,2],[3]],[[4]]]`,
		`{"s":"\u00e9\ud83d\uDE00\"\\","n":12345.678e-9,"b":true,"z":null}`,
		`  "scalar root"  `,
		`-0.25`,
	}
	for _, doc := range docs {
		whole := collect(t, NewReader([]byte(doc), true, NewState(0)))
		for split := 0; split <= len(doc); split++ {
			assert.Equal(t, whole, readSplit(t, doc, split), "doc %q split %d", doc, split)
		}
	}
}

func TestReader_NotFinalWaitsForNumberEnd(t *testing.T) {
	r := NewReader([]byte(`[12`), false, NewState(0))
	ok, err := r.Read()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StartArray, r.Kind())

	ok, err = r.Read()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, r.Consumed())

	r = NewReader([]byte(`12]`), true, r.State())
	tokens := collect(t, r)
	assert.Equal(t, []token{{Number, "12"}, {EndArray, ""}}, tokens)
}

func TestReader_Malformed(t *testing.T) {
	cases := map[string]string{
		"trailing comma":    `[1,]`,
		"missing colon":     `{"a" 1}`,
		"bad literal":       `{"a":tru}`,
		"leading zero":      `[01]`,
		"bare word":         `[abc]`,
		"mismatched close":  `{"a":1]`,
		"unquoted name":     `{a:1}`,
		"control character": "[\"a\x01\"]",
		"bad escape":        `["\x"]`,
		"invalid utf8":      "[\"\xff\"]",
		"number suffix":     `[1x]`,
		"empty exponent":    `[1e]`,
		"byte order mark":   "\xef\xbb\xbf{}",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			r := NewReader([]byte(doc), true, NewState(0))
			var err error
			for err == nil {
				var ok bool
				ok, err = r.Read()
				if !ok && err == nil {
					break
				}
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, merr.ErrMalformedInput)
			assert.True(t, merr.IsInputError(err))
			assert.Contains(t, err.Error(), "offset=")
		})
	}
}

func TestReader_Incomplete(t *testing.T) {
	for _, doc := range []string{``, `   `, `{"a":`, `[1,2`, `"abc`, `{"a":1`, `tr`, `-`} {
		r := NewReader([]byte(doc), true, NewState(0))
		var err error
		for {
			var ok bool
			ok, err = r.Read()
			if !ok || err != nil {
				break
			}
		}
		assert.ErrorIs(t, err, merr.ErrIncompleteDocument, "doc %q", doc)
	}
}

func TestReader_MaxDepth(t *testing.T) {
	doc := strings.Repeat("[", 4) + strings.Repeat("]", 4)
	r := NewReader([]byte(doc), true, NewState(3))
	var err error
	for i := 0; i < 4; i++ {
		_, err = r.Read()
		if err != nil {
			break
		}
	}
	assert.ErrorIs(t, err, merr.ErrMaxDepthExceeded)

	r = NewReader([]byte(doc), true, NewState(4))
	collect(t, r)
	assert.True(t, r.Done())
}

func TestReader_StopsAfterRoot(t *testing.T) {
	r := NewReader([]byte(`{} {"b":1}`), true, NewState(0))
	tokens := collect(t, r)
	assert.Len(t, tokens, 2)
	assert.True(t, r.Done())
	assert.Equal(t, 2, r.Consumed())

	next := r.State().Next()
	assert.False(t, next.Started())
	assert.EqualValues(t, 2, next.Offset())
	r = NewReader([]byte(` {"b":1}`), true, next)
	assert.Len(t, collect(t, r), 4)
}

func TestReader_OffsetsAreAbsolute(t *testing.T) {
	r := NewReader([]byte(`[1,`), false, NewState(0))
	collect(t, r)
	r = NewReader([]byte(`,#]`), true, r.State())
	_, err := r.Read()
	require.ErrorIs(t, err, merr.ErrMalformedInput)
	assert.Contains(t, err.Error(), "offset=3")
}

func TestUnescape(t *testing.T) {
	cases := map[string]string{
		`plain`:        "plain",
		`a\"b\\c\/d`:   `a"b\c/d`,
		`\b\f\n\r\t`:   "\b\f\n\r\t",
		`\u00e9`:       "\u00e9",
		`\uD83D\ude00`: "\U0001F600",
		`\ud83d`:       "\ufffd",
		`\ude00x`:      "\ufffdx",
		`\ud83d\u0041`: "\ufffdA",
		`caf\u00e9 中文`: "café 中文",
	}
	for in, want := range cases {
		assert.Equal(t, want, string(Unescape(nil, []byte(in))), in)
	}
}

func TestIsWhitespace(t *testing.T) {
	assert.True(t, IsWhitespace([]byte(" \t\r\n")))
	assert.True(t, IsWhitespace(nil))
	assert.False(t, IsWhitespace([]byte(" x")))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "start-object", StartObject.String())
	assert.Equal(t, "unknown", Kind(99).String())
	assert.True(t, Number.IsScalar())
	assert.False(t, Null.IsScalar())
}

package transform

import (
	"bytes"
	"fmt"
	"io"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

type structureError struct {
	msg    string
	line   int
	column int
}

func (e *structureError) Error() string {
	return e.msg
}

type opener struct {
	char   byte
	line   int
	column int
}

var closers = map[byte]byte{'}': '{', ')': '(', ']': '['}

// checkStylesheet verifies that braces, parentheses and brackets are
// balanced outside of strings and comments, and that every string and
// comment is terminated.
func checkStylesheet(src []byte) error {
	var stack []opener
	line, column := 1, 0

	for i := 0; i < len(src); i++ {
		c := src[i]
		column++
		if c == '\n' {
			line++
			column = 0
			continue
		}

		switch c {
		case '\\':
			if i+1 < len(src) && src[i+1] != '\n' {
				i++
				column++
			}
		case '/':
			if i+1 < len(src) && src[i+1] == '*' {
				startLine, startColumn := line, column
				i += 2
				column += 2
				closed := false
				for ; i < len(src); i++ {
					if src[i] == '\n' {
						line++
						column = 0
						continue
					}
					column++
					if src[i] == '*' && i+1 < len(src) && src[i+1] == '/' {
						i++
						column++
						closed = true
						break
					}
				}
				if !closed {
					return &structureError{msg: "unterminated comment", line: startLine, column: startColumn}
				}
			}
		case '"', '\'':
			startLine, startColumn := line, column
			closed := false
			for i++; i < len(src); i++ {
				column++
				if src[i] == '\\' && i+1 < len(src) {
					i++
					column++
					if src[i] == '\n' {
						line++
						column = 0
					}
					continue
				}
				if src[i] == '\n' {
					break
				}
				if src[i] == c {
					closed = true
					break
				}
			}
			if !closed {
				return &structureError{msg: "unterminated string", line: startLine, column: startColumn}
			}
		case '{', '(', '[':
			stack = append(stack, opener{char: c, line: line, column: column})
		case '}', ')', ']':
			want := closers[c]
			if len(stack) == 0 {
				return &structureError{msg: fmt.Sprintf("unexpected %q", c), line: line, column: column}
			}
			top := stack[len(stack)-1]
			if top.char != want {
				return &structureError{
					msg:    fmt.Sprintf("unexpected %q, %q opened at %d:%d is still open", c, top.char, top.line, top.column),
					line:   line,
					column: column,
				}
			}
			stack = stack[:len(stack)-1]
		}
	}

	if len(stack) > 0 {
		top := stack[len(stack)-1]
		return &structureError{msg: fmt.Sprintf("unbalanced %q", top.char), line: top.line, column: top.column}
	}
	return nil
}

// lexStylesheet runs the CSS tokenizer over src and rejects bad-url and
// bad-string tokens, which the minifier would otherwise rewrite silently.
func lexStylesheet(src []byte) error {
	l := css.NewLexer(parse.NewInput(bytes.NewReader(src)))
	offset := 0
	for {
		tt, data := l.Next()
		switch tt {
		case css.ErrorToken:
			if err := l.Err(); err != nil && err != io.EOF {
				line, column, _ := parse.Position(bytes.NewReader(src), offset)
				return &structureError{msg: err.Error(), line: line, column: column}
			}
			return nil
		case css.BadURLToken, css.BadStringToken:
			line, column, _ := parse.Position(bytes.NewReader(src), offset)
			what := "malformed url()"
			if tt == css.BadStringToken {
				what = "malformed string"
			}
			return &structureError{msg: what, line: line, column: column}
		}
		offset += len(data)
	}
}

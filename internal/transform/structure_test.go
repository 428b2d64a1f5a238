package transform

import (
	"errors"
	"testing"
)

func TestCheckStylesheetAccepts(t *testing.T) {
	inputs := []string{
		"",
		"body{color:red}",
		`a::after{content:"}"}`,
		`a::after{content:'{'}`,
		"/* { */ a{b:c}",
		`a{content:"\""}`,
		`.icon\{x{color:red}`,
		"@media (min-width:1px){a{b:c}}",
		"a[href^='http']{color:blue}",
	}

	for _, in := range inputs {
		if err := checkStylesheet([]byte(in)); err != nil {
			t.Errorf("checkStylesheet(%q) error = %v", in, err)
		}
	}
}

func TestCheckStylesheetPosition(t *testing.T) {
	err := checkStylesheet([]byte("a{b:c}\n\n  .x{color:red;\n"))
	var se *structureError
	if !errors.As(err, &se) {
		t.Fatalf("checkStylesheet() error = %v, want structureError", err)
	}
	if se.line != 3 || se.column != 5 {
		t.Errorf("position = %d:%d, want 3:5", se.line, se.column)
	}
}

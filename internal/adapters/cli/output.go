package cli

import (
	"fmt"
	"io"
	"os"
)

type Output struct {
	enableColors bool
	out          io.Writer
	errOut       io.Writer
}

func NewOutput() *Output {
	return &Output{
		enableColors: isTerminal(),
		out:          os.Stdout,
		errOut:       os.Stderr,
	}
}

// NewWriterOutput sends both streams to w without colors.
func NewWriterOutput(w io.Writer) *Output {
	return &Output{out: w, errOut: w}
}

func (o *Output) DisableColors() {
	o.enableColors = false
}

func (o *Output) Writer() io.Writer {
	return o.out
}

func (o *Output) ErrWriter() io.Writer {
	return o.errOut
}

func (o *Output) Green(text string) string {
	if !o.enableColors {
		return text
	}
	return "\033[32m" + text + "\033[0m"
}

func (o *Output) Yellow(text string) string {
	if !o.enableColors {
		return text
	}
	return "\033[33m" + text + "\033[0m"
}

func (o *Output) Red(text string) string {
	if !o.enableColors {
		return text
	}
	return "\033[31m" + text + "\033[0m"
}

func (o *Output) Gray(text string) string {
	if !o.enableColors {
		return text
	}
	return "\033[90m" + text + "\033[0m"
}

func (o *Output) PrintHeader(msg string) {
	fmt.Fprintln(o.out, msg)
	fmt.Fprintln(o.out)
}

func (o *Output) PrintStep(msg string, args ...any) {
	fmt.Fprintf(o.out, "  "+msg+"\n", args...)
}

func (o *Output) PrintSuccess(msg string, args ...any) {
	formatted := fmt.Sprintf(msg, args...)
	fmt.Fprintf(o.out, "  "+o.Green("✓ ")+"%s\n", formatted)
}

func (o *Output) PrintWarning(msg string, args ...any) {
	formatted := fmt.Sprintf(msg, args...)
	fmt.Fprintf(o.out, "  "+o.Yellow("⚠ ")+"%s\n", formatted)
}

func (o *Output) PrintError(msg string, args ...any) {
	formatted := fmt.Sprintf(msg, args...)
	fmt.Fprintf(o.errOut, "  "+o.Red("✗ ")+"%s\n", formatted)
}

func (o *Output) PrintFile(path string) {
	fmt.Fprintf(o.out, "    %s\n", path)
}

func (o *Output) PrintDone(msg string) {
	fmt.Fprintln(o.out, msg)
}

func isTerminal() bool {
	stat, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == os.ModeCharDevice
}

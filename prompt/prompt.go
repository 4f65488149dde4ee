package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

var defaultExamples = []string{"EN", "AR", "FR"}

// Language asks for a language code on w and reads one line from r.
// The answer is trimmed and upper-cased; known codes are used as examples.
func Language(r io.Reader, w io.Writer, known []string) (string, error) {
	examples := known
	if len(examples) == 0 {
		examples = defaultExamples
	}
	fmt.Fprintf(w, "Enter the language sign (e.g., %s): ", strings.Join(examples, ", "))

	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", errors.Wrap(err, "read language")
	}
	return strings.ToUpper(strings.TrimSpace(line)), nil
}

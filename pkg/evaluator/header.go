package evaluator

import (
	"crypto/sha1"
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// NoAuthor is reported when a source names no author.
const NoAuthor = "(Not specified)"

var authorPattern = regexp.MustCompile(`(?i)@?auth?or\s*:\s*([^\n]+)\n`)

// FindAuthor extracts the author from an "author:" or
// "@author:" line of a source file.
func FindAuthor(src string) string {
	m := authorPattern.FindStringSubmatch(src)
	if m == nil {
		return NoAuthor
	}
	if a := strings.TrimSpace(m[1]); a != "" {
		return a
	}
	return NoAuthor
}

func sourceDigest(src []byte) string {
	sum := sha1.Sum(src)
	return hex.EncodeToString(sum[:])
}

// commandLine renders a run the way a user would type it.
func commandLine(program string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, program)
	for _, a := range args {
		if strings.Contains(a, " ") {
			a = `"` + a + `"`
		}
		parts = append(parts, a)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func compiledProgram(exe string) string {
	return "./" + filepath.Base(exe)
}

func interpretedProgram(interpreter, source string) string {
	return interpreter + " " + filepath.Base(source)
}

// formatScore prints a score without trailing zeros.
func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

package manifest

import (
	"regexp"
	"strings"
)

// Template is the content written by `skill-manager init`.
const Template = `# skill-manager plugins manifest

[marketplaces]
# Add marketplace sources here
# official = "anthropics/claude-plugins-official"

[plugins]
# Add plugins here
# superpowers = { marketplace = "official" }
`

var bareKey = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// SetPlugin inserts or replaces the declaration of name in the [plugins]
// table of src. Every other line, comments included, is kept as is.
func SetPlugin(src []byte, name string, entry PluginEntry) ([]byte, error) {
	lines := splitLines(string(src))
	lines = removeSubTable(lines, name)

	line := formatPluginLine(name, entry)
	start, end, ok := findSection(lines, "plugins")
	if !ok {
		if len(lines) > 0 && !strings.HasSuffix(lines[len(lines)-1], "\n") {
			lines[len(lines)-1] += "\n"
		}
		if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) != "" {
			lines = append(lines, "\n")
		}
		lines = append(lines, "[plugins]\n", line+"\n")
		return reparse(lines)
	}

	insertAt := start + 1
	for i := start + 1; i < end; i++ {
		if matchesKey(lines[i], name) {
			lines[i] = line + trailingComment(lines[i]) + lineEnding(lines[i])
			return reparse(lines)
		}
		if isKeyLine(lines[i]) {
			insertAt = i + 1
		}
	}
	if insertAt > 0 && !strings.HasSuffix(lines[insertAt-1], "\n") {
		lines[insertAt-1] += "\n"
	}
	lines = insertLine(lines, insertAt, line+"\n")
	return reparse(lines)
}

// RemovePlugin deletes the declaration of name. It reports false when the
// plugin was not declared.
func RemovePlugin(src []byte, name string) ([]byte, bool, error) {
	lines := splitLines(string(src))
	before := len(lines)
	lines = removeSubTable(lines, name)
	removed := len(lines) != before

	if start, end, ok := findSection(lines, "plugins"); ok {
		for i := start + 1; i < end; i++ {
			if matchesKey(lines[i], name) {
				lines = append(lines[:i], lines[i+1:]...)
				removed = true
				break
			}
		}
	}
	if !removed {
		return src, false, nil
	}
	out, err := reparse(lines)
	return out, true, err
}

func reparse(lines []string) ([]byte, error) {
	out := []byte(strings.Join(lines, ""))
	if _, err := Parse(out); err != nil {
		return nil, err
	}
	return out, nil
}

func formatPluginLine(name string, e PluginEntry) string {
	var b strings.Builder
	b.WriteString(formatKey(name))
	b.WriteString(" = { marketplace = ")
	b.WriteString(quote(e.Marketplace))
	if e.Tag != "" {
		b.WriteString(", tag = ")
		b.WriteString(quote(e.Tag))
	}
	if e.Commit != "" {
		b.WriteString(", commit = ")
		b.WriteString(quote(e.Commit))
	}
	b.WriteString(" }")
	return b.String()
}

func formatKey(k string) string {
	if bareKey.MatchString(k) {
		return k
	}
	return quote(k)
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`, "\r", `\r`)
	return `"` + r.Replace(s) + `"`
}

// splitLines splits s keeping line terminators.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.SplitAfter(s, "\n")
}

func lineEnding(line string) string {
	if strings.HasSuffix(line, "\r\n") {
		return "\r\n"
	}
	if strings.HasSuffix(line, "\n") {
		return "\n"
	}
	return ""
}

// headerName returns the table name of a [header] line.
func headerName(line string) (string, bool) {
	t := strings.TrimSpace(stripComment(line))
	if !strings.HasPrefix(t, "[") || !strings.HasSuffix(t, "]") {
		return "", false
	}
	t = strings.TrimPrefix(strings.TrimSuffix(t, "]"), "[")
	t = strings.TrimPrefix(strings.TrimSuffix(t, "]"), "[")
	parts := strings.Split(t, ".")
	for i := range parts {
		parts[i] = unquoteKey(strings.TrimSpace(parts[i]))
	}
	return strings.Join(parts, "."), true
}

// findSection returns the header index and the exclusive end of table name.
func findSection(lines []string, name string) (int, int, bool) {
	for i, line := range lines {
		if h, ok := headerName(line); ok && h == name {
			end := len(lines)
			for j := i + 1; j < len(lines); j++ {
				if _, ok := headerName(lines[j]); ok {
					end = j
					break
				}
			}
			return i, end, true
		}
	}
	return 0, 0, false
}

// removeSubTable drops a [plugins.<name>] block.
func removeSubTable(lines []string, name string) []string {
	start, end, ok := findSection(lines, "plugins."+name)
	if !ok {
		return lines
	}
	return append(lines[:start], lines[end:]...)
}

func insertLine(lines []string, at int, line string) []string {
	lines = append(lines, "")
	copy(lines[at+1:], lines[at:])
	lines[at] = line
	return lines
}

func lineKey(line string) (string, bool) {
	t := strings.TrimSpace(line)
	if t == "" || strings.HasPrefix(t, "#") || strings.HasPrefix(t, "[") {
		return "", false
	}
	k, _, ok := strings.Cut(t, "=")
	if !ok {
		return "", false
	}
	return unquoteKey(strings.TrimSpace(k)), true
}

func isKeyLine(line string) bool {
	_, ok := lineKey(line)
	return ok
}

func matchesKey(line, name string) bool {
	k, ok := lineKey(line)
	return ok && k == name
}

func unquoteKey(k string) string {
	if len(k) >= 2 && (k[0] == '"' && k[len(k)-1] == '"' || k[0] == '\'' && k[len(k)-1] == '\'') {
		return k[1 : len(k)-1]
	}
	return k
}

// commentIndex finds a # outside of string literals.
func commentIndex(line string) int {
	var inQuote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inQuote != 0:
			if c == '\\' && inQuote == '"' {
				i++
			} else if c == inQuote {
				inQuote = 0
			}
		case c == '"' || c == '\'':
			inQuote = c
		case c == '#':
			return i
		}
	}
	return -1
}

func stripComment(line string) string {
	if i := commentIndex(line); i >= 0 {
		return line[:i]
	}
	return line
}

func trailingComment(line string) string {
	body := strings.TrimRight(line, "\r\n")
	i := commentIndex(body)
	if i < 0 {
		return ""
	}
	return " " + body[i:]
}

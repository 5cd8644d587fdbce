package notes

import "strings"

const bulletPrefix = "• "

// NormalizeBullets rewrites model output into one bullet per line with a
// consistent "• " prefix. Existing bullets, dashes, asterisks, and numbered
// prefixes are unified; blank lines are dropped. The transform is idempotent.
func NormalizeBullets(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = stripBulletMarker(line)
		if line == "" {
			continue
		}
		out = append(out, bulletPrefix+line)
	}
	return strings.Join(out, "\n")
}

func stripBulletMarker(line string) string {
	for {
		trimmed := line
		for _, marker := range []string{"•", "-", "*", "·", "–"} {
			if strings.HasPrefix(trimmed, marker) {
				trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, marker))
			}
		}
		trimmed = strings.TrimSpace(trimNumberPrefix(trimmed))
		if trimmed == line {
			return line
		}
		line = trimmed
	}
}

// trimNumberPrefix removes "1." / "12)" style enumeration prefixes.
func trimNumberPrefix(line string) string {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i > 3 || i >= len(line) {
		return line
	}
	if line[i] == '.' || line[i] == ')' {
		return line[i+1:]
	}
	return line
}

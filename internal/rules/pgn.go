package rules

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Headers are the PGN tag pairs written in front of the movetext.
type Headers struct {
	Event       string
	Site        string
	Date        time.Time
	White       string
	Black       string
	TimeControl string
	Termination string
}

// ResultToken maps a status to the PGN result token.
func ResultToken(st Status) string {
	if !st.Over {
		return "*"
	}
	switch st.Winner {
	case White:
		return "1-0"
	case Black:
		return "0-1"
	default:
		return "1/2-1/2"
	}
}

// Serialize writes a PGN record for the given moves.
func Serialize(h Headers, records []MoveRecord, st Status) string {
	var b strings.Builder
	date := h.Date
	if date.IsZero() {
		date = time.Now()
	}
	result := ResultToken(st)

	b.WriteString(fmt.Sprintf("[Event \"%s\"]\n", sanitizeTag(orDefault(h.Event, "Casual game"))))
	b.WriteString(fmt.Sprintf("[Site \"%s\"]\n", sanitizeTag(orDefault(h.Site, "?"))))
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizeTag(orDefault(h.White, "White"))))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizeTag(orDefault(h.Black, "Black"))))
	if strings.TrimSpace(h.TimeControl) != "" {
		b.WriteString(fmt.Sprintf("[TimeControl \"%s\"]\n", sanitizeTag(h.TimeControl)))
	}
	if strings.TrimSpace(h.Termination) != "" {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizeTag(h.Termination)))
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", result))

	for i := 0; i < len(records); i += 2 {
		b.WriteString(fmt.Sprintf("%d. %s ", i/2+1, strings.TrimSpace(records[i].Notation)))
		if i+1 < len(records) {
			b.WriteString(strings.TrimSpace(records[i+1].Notation))
			b.WriteString(" ")
		}
	}
	b.WriteString(result)
	return b.String()
}

// Deserialize replays a PGN record from the initial position.
func Deserialize(pgn string) (*Game, []MoveRecord, error) {
	if strings.TrimSpace(pgn) == "" {
		return nil, nil, ErrEmptyRecord
	}
	game := NewGame()
	tokens := movetextTokens(pgn)
	records := make([]MoveRecord, 0, len(tokens))
	for _, tok := range tokens {
		rec, err := game.applySAN(tok)
		if err != nil {
			return nil, nil, fmt.Errorf("ply %d: %w", len(records), err)
		}
		records = append(records, rec)
	}
	return game, records, nil
}

var (
	moveNumberPrefix = regexp.MustCompile(`^\d+\.+`)
	annotationSuffix = regexp.MustCompile(`[!?]+$`)
)

// movetextTokens strips tag pairs, comments, variations, NAGs, move numbers and results.
// A ';' only starts a rest-of-line comment outside braces.
func movetextTokens(pgn string) []string {
	var body strings.Builder
	for _, line := range strings.Split(strings.ReplaceAll(pgn, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "%") {
			continue
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}

	var cleaned strings.Builder
	braces, parens := 0, 0
	lineComment := false
	for _, r := range body.String() {
		switch {
		case lineComment:
			if r == '\n' {
				lineComment = false
				cleaned.WriteByte(' ')
			}
		case r == '{':
			braces++
		case r == '}' && braces > 0:
			braces--
		case braces > 0:
		case r == ';':
			lineComment = true
		case r == '(':
			parens++
		case r == ')' && parens > 0:
			parens--
		case parens > 0:
		default:
			cleaned.WriteRune(r)
		}
	}

	var out []string
	for _, field := range strings.Fields(cleaned.String()) {
		tok := moveNumberPrefix.ReplaceAllString(field, "")
		tok = annotationSuffix.ReplaceAllString(tok, "")
		switch {
		case tok == "":
		case strings.HasPrefix(tok, "$"):
		case tok == "1-0", tok == "0-1", tok == "1/2-1/2", tok == "*":
		default:
			out = append(out, tok)
		}
	}
	return out
}

func sanitizeTag(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

package chapters

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mkvgo/mkvmux/muxerr"
)

// ParseSimple reads mkvmerge's classic OGM-style simple chapter format:
//
//	CHAPTER01=00:00:00.000
//	CHAPTER01NAME=Intro
//	CHAPTER02=00:05:12.340
//	CHAPTER02NAME=Chapter 2
//
// Every chapter becomes one Atom in a single, unordered Edition; NAME
// lines are folded into a single ChapterDisplay tagged with language
// (a chapter without a NAME line is named after its key). Line scanning
// follows the same bufio.Scanner-over-text-lines shape as this
// module's other plain-text input formats.
func (t *Tree) ParseSimple(r io.Reader, language string) error {
	type entry struct {
		startNS int64
		name    string
	}
	order := []string{}
	byNum := map[string]*entry{}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return &muxerr.FormatError{Op: "chapters.ParseSimple", Err: fmt.Errorf("malformed line %q", line)}
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch {
		case strings.HasSuffix(key, "NAME"):
			num := strings.TrimSuffix(key, "NAME")
			e, exists := byNum[num]
			if !exists {
				return &muxerr.FormatError{Op: "chapters.ParseSimple", Err: fmt.Errorf("%s before %s", key, num)}
			}
			e.name = value
		default:
			ns, err := parseSimpleTimestamp(value)
			if err != nil {
				return &muxerr.FormatError{Op: "chapters.ParseSimple", Err: err}
			}
			if _, exists := byNum[key]; !exists {
				order = append(order, key)
			}
			byNum[key] = &entry{startNS: ns}
		}
	}
	if err := sc.Err(); err != nil {
		return &muxerr.IOError{Op: "chapters.ParseSimple", Err: err}
	}

	ed := Edition{}
	for _, num := range order {
		e := byNum[num]
		if e.name == "" {
			e.name = num
		}
		ed.Atoms = append(ed.Atoms, Atom{
			StartNS: e.startNS,
			Enabled: true,
			Displays: []Display{{String: e.name, Language: language}},
		})
	}
	_, err := t.AddEdition(ed)
	return err
}

// parseSimpleTimestamp parses "HH:MM:SS.mmm" into nanoseconds.
func parseSimpleTimestamp(s string) (int64, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hours in %q: %w", s, err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minutes in %q: %w", s, err)
	}
	secParts := strings.SplitN(parts[2], ".", 2)
	seconds, err := strconv.Atoi(secParts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid seconds in %q: %w", s, err)
	}
	var millis int
	if len(secParts) == 2 {
		msStr := (secParts[1] + "000")[:3]
		millis, err = strconv.Atoi(msStr)
		if err != nil {
			return 0, fmt.Errorf("invalid milliseconds in %q: %w", s, err)
		}
	}
	total := int64(hours)*3600_000 + int64(minutes)*60_000 + int64(seconds)*1000 + int64(millis)
	return total * 1_000_000, nil
}

// Package hl7v2 parses the segment-structured HL7v2 messages the pharmacy
// integration receives and extracts the fields the portal consumes from
// them. The grammar is fixed: fields separated by |, components by ^,
// repetitions by ~, segments by carriage returns.
package hl7v2

import (
	"fmt"
	"strings"
	"time"
)

// Message is a parsed HL7v2 message.
type Message struct {
	Type         string    // MSH-9, e.g. "RDE^O11"
	ControlID    string    // MSH-10
	Version      string    // MSH-12
	Timestamp    time.Time // MSH-7
	SendingApp   string    // MSH-3
	SendingFac   string    // MSH-4
	ReceivingApp string    // MSH-5
	ReceivingFac string    // MSH-6
	segments     []segment
}

type segment struct {
	name   string
	fields []field
}

type field struct {
	value   string
	repeats [][]string
}

// Parse parses raw HL7v2 message text. Segment separators may be \r, \n, or
// \r\n; the first segment must be MSH.
func Parse(raw []byte) (*Message, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("hl7v2: message is empty")
	}

	text := strings.ReplaceAll(string(raw), "\r\n", "\r")
	text = strings.ReplaceAll(text, "\n", "\r")

	var lines []string
	for _, line := range strings.Split(text, "\r") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("hl7v2: no segments found")
	}
	if !strings.HasPrefix(lines[0], "MSH") {
		return nil, fmt.Errorf("hl7v2: first segment must be MSH")
	}

	msg := &Message{}
	for _, line := range lines {
		seg, err := parseSegment(line)
		if err != nil {
			return nil, fmt.Errorf("hl7v2: %w", err)
		}
		msg.segments = append(msg.segments, seg)
	}

	msg.readHeader()
	return msg, nil
}

func parseSegment(line string) (segment, error) {
	if len(line) < 3 {
		return segment{}, fmt.Errorf("segment too short: %q", line)
	}

	// MSH is special: MSH-1 is the field separator character itself, so the
	// split starts after "MSH|" and the separator is stored as the first
	// field to keep field numbering aligned.
	if strings.HasPrefix(line, "MSH") {
		seg := segment{name: "MSH"}
		if len(line) < 4 {
			return seg, nil
		}
		sep := string(line[3])
		seg.fields = append(seg.fields, parseField(sep))
		for _, part := range strings.Split(line[4:], sep) {
			seg.fields = append(seg.fields, parseField(part))
		}
		return seg, nil
	}

	parts := strings.SplitN(line, "|", 2)
	seg := segment{name: parts[0]}
	if len(parts) > 1 {
		for _, part := range strings.Split(parts[1], "|") {
			seg.fields = append(seg.fields, parseField(part))
		}
	}
	return seg, nil
}

func parseField(raw string) field {
	f := field{value: raw}
	for _, rep := range strings.Split(raw, "~") {
		f.repeats = append(f.repeats, strings.Split(rep, "^"))
	}
	return f
}

func (m *Message) readHeader() {
	msh := m.segment("MSH")
	m.SendingApp = msh.fieldValue(3)
	m.SendingFac = msh.fieldValue(4)
	m.ReceivingApp = msh.fieldValue(5)
	m.ReceivingFac = msh.fieldValue(6)
	m.Type = msh.fieldValue(9)
	m.ControlID = msh.fieldValue(10)
	m.Version = msh.fieldValue(12)

	if ts := msh.fieldValue(7); ts != "" {
		if t, err := parseTimestamp(ts); err == nil {
			m.Timestamp = t
		}
	}
}

// parseTimestamp parses HL7v2 timestamps (YYYYMMDD with optional time).
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	switch {
	case len(s) >= 14:
		return time.Parse("20060102150405", s[:14])
	case len(s) >= 12:
		return time.Parse("200601021504", s[:12])
	case len(s) >= 8:
		return time.Parse("20060102", s[:8])
	default:
		return time.Time{}, fmt.Errorf("hl7v2: unrecognized timestamp %q", s)
	}
}

func (m *Message) segment(name string) *segment {
	for i := range m.segments {
		if m.segments[i].name == name {
			return &m.segments[i]
		}
	}
	return nil
}

func (m *Message) segmentsNamed(name string) []*segment {
	var out []*segment
	for i := range m.segments {
		if m.segments[i].name == name {
			out = append(out, &m.segments[i])
		}
	}
	return out
}

// fieldValue returns a field's raw value by 1-based HL7 index. MSH and
// ordinary segments share the same indexing because MSH-1 is stored
// explicitly.
func (s *segment) fieldValue(index int) string {
	if s == nil {
		return ""
	}
	idx := index - 1
	if idx < 0 || idx >= len(s.fields) {
		return ""
	}
	return s.fields[idx].value
}

// component returns a component value by 1-based field and component index,
// from the first repetition.
func (s *segment) component(fieldIdx, compIdx int) string {
	if s == nil {
		return ""
	}
	idx := fieldIdx - 1
	if idx < 0 || idx >= len(s.fields) {
		return ""
	}
	reps := s.fields[idx].repeats
	if len(reps) == 0 {
		return ""
	}
	ci := compIdx - 1
	if ci < 0 || ci >= len(reps[0]) {
		return ""
	}
	return reps[0][ci]
}

// repetitions returns every repetition of a field by 1-based index.
func (s *segment) repetitions(fieldIdx int) [][]string {
	if s == nil {
		return nil
	}
	idx := fieldIdx - 1
	if idx < 0 || idx >= len(s.fields) {
		return nil
	}
	return s.fields[idx].repeats
}

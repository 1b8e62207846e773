package batchinput

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"polgen/internal/domain"
)

// ISO 2709 framing bytes.
const (
	marcFieldTerminator  = 0x1e
	marcRecordTerminator = 0x1d
	marcSubfieldDelim    = 0x1f
	marcLeaderLen        = 24
	marcDirEntryLen      = 12
)

var marcISBNRe = regexp.MustCompile(`[\dXx-]+`)

type marcSubfield struct {
	code  byte
	value string
}

type marcField struct {
	tag       string
	value     string
	subfields []marcSubfield
}

type marcRecord struct {
	fields []marcField
}

func (r marcRecord) control(tag string) string {
	for _, f := range r.fields {
		if f.tag == tag {
			return strings.TrimSpace(f.value)
		}
	}
	return ""
}

// subfield returns the first occurrence of tag$code.
func (r marcRecord) subfield(tag string, code byte) string {
	for _, f := range r.fields {
		if f.tag != tag {
			continue
		}
		for _, sf := range f.subfields {
			if sf.code == code {
				return strings.TrimSpace(sf.value)
			}
		}
	}
	return ""
}

// ReadMARC turns binary MARC 21 records into items, one per record:
// 020$a is the ISBN, 001 the vendor reference, 245$a$b the title, 100$a the
// author and 521$a a note. Records without an 020 are kept so they surface as
// failures.
func ReadMARC(r io.Reader) ([]domain.BatchItem, error) {
	br := bufio.NewReader(r)
	var items []domain.BatchItem
	for n := 1; ; n++ {
		rec, err := readMARCRecord(br)
		if errors.Is(err, io.EOF) {
			return items, nil
		}
		if err != nil {
			return nil, fmt.Errorf("batchinput.ReadMARC: record %d: %v: %w", n, err, domain.ErrInvalidInput)
		}
		items = append(items, itemFromMARC(rec))
	}
}

func itemFromMARC(rec marcRecord) domain.BatchItem {
	overrides := make(map[string]string)
	set := func(k, v string) {
		if v != "" {
			overrides[k] = v
		}
	}
	set(domain.FieldVendorReference, rec.control("001"))
	set(domain.FieldTitle, marcTitle(rec))
	set(domain.FieldAuthor, strings.TrimRight(rec.subfield("100", 'a'), " ,"))
	set(domain.FieldNote, rec.subfield("521", 'a'))

	item := domain.BatchItem{Overrides: overrides}
	if isbn := marcISBNRe.FindString(rec.subfield("020", 'a')); isbn != "" {
		item.Identifier = isbn
		item.IdentifierType = domain.IdentifierTypeISBN
	}
	return item
}

func marcTitle(rec marcRecord) string {
	title := rec.subfield("245", 'a')
	if sub := rec.subfield("245", 'b'); sub != "" {
		title = strings.TrimRight(title, " :") + ": " + sub
	}
	return strings.TrimRight(title, " /:;,.")
}

// readMARCRecord decodes one ISO 2709 record. It returns io.EOF when r holds
// nothing but trailing whitespace.
func readMARCRecord(br *bufio.Reader) (marcRecord, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return marcRecord{}, err
		}
		if b != '\n' && b != '\r' && b != ' ' {
			if err := br.UnreadByte(); err != nil {
				return marcRecord{}, err
			}
			break
		}
	}

	leader := make([]byte, marcLeaderLen)
	if _, err := io.ReadFull(br, leader); err != nil {
		return marcRecord{}, fmt.Errorf("short leader: %w", io.ErrUnexpectedEOF)
	}
	length, err := strconv.Atoi(string(leader[0:5]))
	if err != nil {
		return marcRecord{}, fmt.Errorf("bad record length %q", leader[0:5])
	}
	base, err := strconv.Atoi(string(leader[12:17]))
	if err != nil {
		return marcRecord{}, fmt.Errorf("bad base address %q", leader[12:17])
	}
	if base <= marcLeaderLen || length <= base {
		return marcRecord{}, fmt.Errorf("base address %d outside record of %d bytes", base, length)
	}

	raw := make([]byte, length)
	copy(raw, leader)
	if _, err := io.ReadFull(br, raw[marcLeaderLen:]); err != nil {
		return marcRecord{}, fmt.Errorf("truncated record: %w", io.ErrUnexpectedEOF)
	}
	if raw[length-1] != marcRecordTerminator {
		return marcRecord{}, errors.New("missing record terminator")
	}

	dir := raw[marcLeaderLen : base-1]
	if len(dir)%marcDirEntryLen != 0 {
		return marcRecord{}, fmt.Errorf("directory length %d is not a multiple of %d", len(dir), marcDirEntryLen)
	}

	var rec marcRecord
	for i := 0; i < len(dir); i += marcDirEntryLen {
		entry := dir[i : i+marcDirEntryLen]
		tag := string(entry[0:3])
		flen, err1 := strconv.Atoi(string(entry[3:7]))
		start, err2 := strconv.Atoi(string(entry[7:12]))
		if err1 != nil || err2 != nil {
			return marcRecord{}, fmt.Errorf("bad directory entry for %s", tag)
		}
		from, to := base+start, base+start+flen
		if flen == 0 || to > length-1 {
			return marcRecord{}, fmt.Errorf("field %s overruns record", tag)
		}
		data := strings.ToValidUTF8(strings.TrimSuffix(string(raw[from:to]), string(rune(marcFieldTerminator))), "")
		rec.fields = append(rec.fields, parseMARCField(tag, data))
	}
	return rec, nil
}

func parseMARCField(tag, data string) marcField {
	f := marcField{tag: tag}
	if strings.HasPrefix(tag, "00") {
		f.value = data
		return f
	}
	// Two indicator bytes precede the first subfield.
	if i := strings.IndexByte(data, marcSubfieldDelim); i >= 0 {
		data = data[i+1:]
	} else {
		return f
	}
	for _, part := range strings.Split(data, string(rune(marcSubfieldDelim))) {
		if part == "" {
			continue
		}
		f.subfields = append(f.subfields, marcSubfield{code: part[0], value: part[1:]})
	}
	return f
}

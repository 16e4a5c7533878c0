package fileio

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readCSV reads CSV with headerRow (1-based), detecting the encoding and
// converting to UTF-8. Spreadsheet exports from AR retailers are usually
// UTF-8 or Windows-1252; ';' separated files are detected from the header.
func readCSV(r io.Reader, headerRow int) ([]map[string]string, error) {
	br := bufio.NewReader(r)

	peek, _ := br.Peek(4096)
	if bytes.HasPrefix(peek, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
		peek = peek[len(utf8BOM):]
	}

	var dec io.Reader = br
	if enc := detectCharmap(peek); enc != nil {
		dec = transform.NewReader(br, enc.NewDecoder())
	}

	cr := csv.NewReader(dec)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.Comma = sniffDelimiter(peek, headerRow)

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	h := pickHeader(rows, headerRow)
	return rowsToMaps(rows, h, headerRow), nil
}

// detectCharmap returns nil for UTF-8 (or anything it does not know).
func detectCharmap(sample []byte) encoding.Encoding {
	if len(sample) == 0 || looksUTF8(sample) {
		return nil
	}
	det, err := chardet.NewTextDetector().DetectBest(sample)
	if err != nil || det == nil {
		return nil
	}
	switch strings.ToLower(det.Charset) {
	case "windows-1252", "cp1252":
		return charmap.Windows1252
	case "iso-8859-1", "latin1":
		return charmap.ISO8859_1
	case "iso-8859-15":
		return charmap.ISO8859_15
	case "windows-1251", "cp1251":
		return charmap.Windows1251
	default:
		return nil
	}
}

// sniffDelimiter counts ';' against ',' on the header line, falling back to
// the first line when headerRow lies past the sample.
func sniffDelimiter(sample []byte, headerRow int) rune {
	lines := bytes.Split(sample, []byte("\n"))
	line := lines[0]
	if idx := headerRow - 1; idx > 0 && idx < len(lines) {
		line = lines[idx]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

// looksUTF8 tolerates a rune cut in half at the end of the sample.
func looksUTF8(sample []byte) bool {
	for i := 0; i < utf8.UTFMax && len(sample) > 0; i++ {
		if utf8.Valid(sample) {
			return true
		}
		sample = sample[:len(sample)-1]
	}
	return utf8.Valid(sample)
}

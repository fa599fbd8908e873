package services

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode/utf16"
)

const maxDocumentXMLSize = 20 << 20

var (
	contentPagePattern = regexp.MustCompile(`(?i)page_?(\d+)`)
	disablePdfConfig   sync.Once
)

// pdfText extracts the page content streams with pdfcpu and keeps the shown text.
func pdfText(data []byte) (string, error) {
	disablePdfConfig.Do(api.DisableConfigDir)

	dir, err := os.MkdirTemp("", "jobscout-resume-")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	inFile := filepath.Join(dir, "resume.pdf")
	if err := os.WriteFile(inFile, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write temp PDF file: %w", err)
	}
	outDir := filepath.Join(dir, "content")
	if err := os.Mkdir(outDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create content dir: %w", err)
	}

	if err := api.ExtractContentFile(inFile, outDir, nil, model.NewDefaultConfiguration()); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedResume, err)
	}

	files, err := os.ReadDir(outDir)
	if err != nil {
		return "", fmt.Errorf("failed to read extracted content: %w", err)
	}

	type page struct {
		number int
		text   string
	}
	var pages []page
	for _, file := range files {
		match := contentPagePattern.FindStringSubmatch(file.Name())
		if file.IsDir() || match == nil {
			continue
		}
		number, _ := strconv.Atoi(match[1])
		content, err := os.ReadFile(filepath.Join(outDir, file.Name()))
		if err != nil {
			return "", fmt.Errorf("failed to read page %d content: %w", number, err)
		}
		if text := contentStreamText(string(content)); text != "" {
			pages = append(pages, page{number: number, text: text})
		}
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].number < pages[j].number })

	texts := make([]string, 0, len(pages))
	for _, p := range pages {
		texts = append(texts, p.text)
	}
	return strings.Join(texts, "\n\n"), nil
}

// contentStreamText collects the strings shown by the text operators of a page content stream.
// Each text object and line move starts a new line.
func contentStreamText(stream string) string {
	var b strings.Builder
	var operands []string
	newLine := func() {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
	}

	for i := 0; i < len(stream); {
		c := stream[i]
		switch {
		case c == '%':
			for i < len(stream) && stream[i] != '\n' && stream[i] != '\r' {
				i++
			}
		case c == '(':
			s, next := readLiteralString(stream, i)
			operands = append(operands, s)
			i = next
		case c == '<' && i+1 < len(stream) && stream[i+1] == '<', c == '>' && i+1 < len(stream) && stream[i+1] == '>':
			i += 2
		case c == '<':
			s, next := readHexString(stream, i)
			operands = append(operands, s)
			i = next
		case c == '/':
			i++
			for i < len(stream) && !isPdfDelimiter(stream[i]) {
				i++
			}
		case isPdfDelimiter(c):
			i++
		default:
			start := i
			for i < len(stream) && !isPdfDelimiter(stream[i]) {
				i++
			}
			token := stream[start:i]
			if isPdfNumber(token) {
				continue
			}
			switch token {
			case "Tj", "TJ":
				for _, s := range operands {
					b.WriteString(s)
				}
			case "'", "\"":
				newLine()
				for _, s := range operands {
					b.WriteString(s)
				}
			case "T*", "Td", "TD", "ET":
				newLine()
			case "ID":
				// inline image data runs until EI
				if end := strings.Index(stream[i:], "EI"); end >= 0 {
					i += end + 2
				} else {
					i = len(stream)
				}
			}
			operands = operands[:0]
		}
	}
	return cleanLines(b.String())
}

func readLiteralString(stream string, start int) (string, int) {
	var b strings.Builder
	depth := 0
	i := start
	for ; i < len(stream); i++ {
		c := stream[i]
		switch {
		case c == '\\' && i+1 < len(stream):
			i++
			switch e := stream[i]; e {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'b', 'f':
			case '\r', '\n':
				// line continuation
			default:
				if e >= '0' && e <= '7' {
					n := 0
					j := i
					for ; j < len(stream) && j < i+3 && stream[j] >= '0' && stream[j] <= '7'; j++ {
						n = n*8 + int(stream[j]-'0')
					}
					b.WriteByte(byte(n))
					i = j - 1
				} else {
					b.WriteByte(e)
				}
			}
		case c == '(':
			depth++
			if depth > 1 {
				b.WriteByte(c)
			}
		case c == ')':
			depth--
			if depth == 0 {
				return decodePdfString([]byte(b.String())), i + 1
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return decodePdfString([]byte(b.String())), i
}

func readHexString(stream string, start int) (string, int) {
	end := strings.IndexByte(stream[start:], '>')
	if end < 0 {
		return "", len(stream)
	}
	digits := make([]byte, 0, end)
	for _, c := range []byte(stream[start+1 : start+end]) {
		if isHexDigit(c) {
			digits = append(digits, c)
		}
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	raw := make([]byte, len(digits)/2)
	for i := range raw {
		v, _ := strconv.ParseUint(string(digits[2*i:2*i+2]), 16, 8)
		raw[i] = byte(v)
	}
	return decodePdfString(raw), start + end + 1
}

// decodePdfString handles UTF-16BE strings with a byte order mark, anything else is read as Latin-1.
func decodePdfString(raw []byte) string {
	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		units := make([]uint16, 0, len(raw)/2)
		for i := 2; i+1 < len(raw); i += 2 {
			units = append(units, uint16(raw[i])<<8|uint16(raw[i+1]))
		}
		return string(utf16.Decode(units))
	}
	runes := make([]rune, len(raw))
	for i, c := range raw {
		runes[i] = rune(c)
	}
	return string(runes)
}

func isPdfDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0, '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isPdfNumber(token string) bool {
	_, err := strconv.ParseFloat(token, 64)
	return err == nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// docxText reads the paragraphs of word/document.xml.
func docxText(data []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedResume, err)
	}

	for _, file := range archive.File {
		if file.Name != "word/document.xml" {
			continue
		}
		document, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnsupportedResume, err)
		}
		defer document.Close()
		return wordDocumentText(io.LimitReader(document, maxDocumentXMLSize))
	}
	return "", fmt.Errorf("%w: word/document.xml not found", ErrUnsupportedResume)
}

func wordDocumentText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var b strings.Builder
	inText := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnsupportedResume, err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return cleanLines(b.String()), nil
}

func cleanLines(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

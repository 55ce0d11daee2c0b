package csv

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/OFFIS-RIT/kgchat/internal/util"
	"github.com/OFFIS-RIT/kgchat/pkg/common"
	"github.com/OFFIS-RIT/kgchat/pkg/loader"
	"github.com/OFFIS-RIT/kgchat/pkg/logger"
)

// ErrFileRead is returned when a CSV source cannot be read or decoded as a
// whole. Single malformed rows never produce it.
var ErrFileRead = errors.New("failed to read csv file")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var (
	sourceHeaders   = []string{"source"}
	targetHeaders   = []string{"target"}
	relationHeaders = []string{"relation", "relationship", "label", "edge"}
)

// ParseResult holds the triples of a CSV file together with what was dropped.
type ParseResult struct {
	Triples   []common.Triple
	Skipped   int
	HasHeader bool
}

// CSVGraphLoader reads triple CSV files through a base loader.
type CSVGraphLoader struct {
	loader loader.GraphFileLoader
}

// NewCSVGraphLoader creates a new CSVGraphLoader with the given base loader.
func NewCSVGraphLoader(loader loader.GraphFileLoader) *CSVGraphLoader {
	return &CSVGraphLoader{
		loader: loader,
	}
}

// GetTriples loads file and parses it into triples.
func (l *CSVGraphLoader) GetTriples(ctx context.Context, file loader.GraphFile) (ParseResult, error) {
	content, err := l.loader.GetFileText(ctx, file)
	if err != nil {
		return ParseResult{}, fmt.Errorf("%w %s: %w", ErrFileRead, file.ID, err)
	}
	return ParseTriplesWithStats(bytes.NewReader(content))
}

// ParseTriples reads (source, target, relation) rows from r.
//
// Rows with fewer than three non-empty fields are skipped, columns after the
// third are ignored and a leading header row is detected and dropped. Only
// an unreadable stream or content that is not UTF-8 fails the call.
func ParseTriples(r io.Reader) ([]common.Triple, error) {
	res, err := ParseTriplesWithStats(r)
	if err != nil {
		return nil, err
	}
	return res.Triples, nil
}

// ParseTriplesWithStats is ParseTriples with counts of skipped rows.
func ParseTriplesWithStats(r io.Reader) (ParseResult, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return ParseResult{}, fmt.Errorf("%w: %w", ErrFileRead, err)
	}
	content = bytes.TrimPrefix(content, utf8BOM)
	if !utf8.Valid(content) {
		return ParseResult{}, fmt.Errorf("%w: content is not valid UTF-8", ErrFileRead)
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	res := ParseResult{Triples: []common.Triple{}}
	first := true

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				logger.Debug("Skipping unparsable csv row", "line", parseErr.Line, "err", parseErr.Err)
				res.Skipped++
				first = false
				continue
			}
			return ParseResult{}, fmt.Errorf("%w: %w", ErrFileRead, err)
		}

		if isBlank(record) {
			continue
		}

		if first {
			first = false
			if isHeader(record) {
				res.HasHeader = true
				continue
			}
		}

		triple, ok := toTriple(record)
		if !ok {
			line, _ := reader.FieldPos(0)
			logger.Debug("Skipping malformed csv row", "line", line, "fields", len(record))
			res.Skipped++
			continue
		}
		res.Triples = append(res.Triples, triple)
	}

	return res, nil
}

func toTriple(record []string) (common.Triple, bool) {
	if len(record) < 3 {
		return common.Triple{}, false
	}
	t := common.Triple{
		Source:   util.CleanLabel(record[0]),
		Target:   util.CleanLabel(record[1]),
		Relation: util.CleanLabel(record[2]),
	}
	if t.Source == "" || t.Target == "" || t.Relation == "" {
		return common.Triple{}, false
	}
	return t, true
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func isHeader(record []string) bool {
	if len(record) < 3 {
		return false
	}
	return oneOf(record[0], sourceHeaders) &&
		oneOf(record[1], targetHeaders) &&
		oneOf(record[2], relationHeaders)
}

func oneOf(field string, names []string) bool {
	field = strings.ToLower(util.CleanLabel(field))
	for _, n := range names {
		if field == n {
			return true
		}
	}
	return false
}

// WriteTriples writes triples as CSV with a Source,Target,Relation header.
func WriteTriples(w io.Writer, triples []common.Triple) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Source", "Target", "Relation"}); err != nil {
		return err
	}
	for _, t := range triples {
		if err := writer.Write([]string{t.Source, t.Target, t.Relation}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

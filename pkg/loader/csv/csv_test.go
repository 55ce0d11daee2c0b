package csv

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/kgchat/pkg/common"
	"github.com/OFFIS-RIT/kgchat/pkg/loader"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTriples(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		want        []common.Triple
		wantSkipped int
		wantHeader  bool
	}{
		{
			name:  "single row",
			input: "Newton,Gravity,proposed\n",
			want:  []common.Triple{{Source: "Newton", Target: "Gravity", Relation: "proposed"}},
		},
		{
			name:       "header row dropped",
			input:      "Source,Target,Relation\nNewton,Gravity,proposed\n",
			want:       []common.Triple{{Source: "Newton", Target: "Gravity", Relation: "proposed"}},
			wantHeader: true,
		},
		{
			name:       "quoted header with bom",
			input:      "\xEF\xBB\xBF\"Source\", \"Target\", \"Relation\"\n\"Newton\", \"Gravity\", \"proposed\"\n",
			want:       []common.Triple{{Source: "Newton", Target: "Gravity", Relation: "proposed"}},
			wantHeader: true,
		},
		{
			name:       "label header",
			input:      "source,TARGET,Label\nNewton,Gravity,proposed\n",
			want:       []common.Triple{{Source: "Newton", Target: "Gravity", Relation: "proposed"}},
			wantHeader: true,
		},
		{
			name:  "first row from,to,type is data",
			input: "from,to,type\nNewton,Gravity,proposed\n",
			want: []common.Triple{
				{Source: "from", Target: "to", Relation: "type"},
				{Source: "Newton", Target: "Gravity", Relation: "proposed"},
			},
		},
		{
			name:  "first row subject,object,predicate is data",
			input: "subject,object,predicate\n",
			want:  []common.Triple{{Source: "subject", Target: "object", Relation: "predicate"}},
		},
		{
			name:  "header-like row later is data",
			input: "a,b,c\nsource,target,relation\n",
			want: []common.Triple{
				{Source: "a", Target: "b", Relation: "c"},
				{Source: "source", Target: "target", Relation: "relation"},
			},
		},
		{
			name:        "malformed rows skipped",
			input:       "Newton,Gravity\nEinstein,,proposed\nNewton,Gravity,proposed\n,,\n",
			want:        []common.Triple{{Source: "Newton", Target: "Gravity", Relation: "proposed"}},
			wantSkipped: 2,
		},
		{
			name:  "extra columns ignored",
			input: "Newton,Gravity,proposed,1687,book\n",
			want:  []common.Triple{{Source: "Newton", Target: "Gravity", Relation: "proposed"}},
		},
		{
			name:  "duplicates kept",
			input: "a,b,r\na,b,r\n",
			want: []common.Triple{
				{Source: "a", Target: "b", Relation: "r"},
				{Source: "a", Target: "b", Relation: "r"},
			},
		},
		{
			name:  "quoted comma and newline",
			input: "\"Newton, Isaac\",\"law of\nmotion\",formulated\n",
			want:  []common.Triple{{Source: "Newton, Isaac", Target: "law of motion", Relation: "formulated"}},
		},
		{
			name:  "cjk",
			input: "牛顿,万有引力,提出\n",
			want:  []common.Triple{{Source: "牛顿", Target: "万有引力", Relation: "提出"}},
		},
		{
			name:  "empty file",
			input: "",
			want:  []common.Triple{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ParseTriplesWithStats(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Triples)
			assert.Equal(t, tt.wantSkipped, res.Skipped)
			assert.Equal(t, tt.wantHeader, res.HasHeader)
		})
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestParseTriplesFileErrors(t *testing.T) {
	_, err := ParseTriples(failingReader{})
	assert.ErrorIs(t, err, ErrFileRead)

	_, err = ParseTriples(bytes.NewReader([]byte{'a', ',', 0xff, ',', 'c', '\n'}))
	assert.ErrorIs(t, err, ErrFileRead)
}

type staticLoader struct {
	content []byte
	err     error
}

func (s staticLoader) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
	return s.content, s.err
}

func TestCSVGraphLoader(t *testing.T) {
	ctx := context.Background()
	file := loader.GraphFile{ID: "kg.csv", FilePath: "kg.csv"}

	res, err := NewCSVGraphLoader(staticLoader{content: []byte("a,b,r\n")}).GetTriples(ctx, file)
	require.NoError(t, err)
	assert.Len(t, res.Triples, 1)

	_, err = NewCSVGraphLoader(staticLoader{err: loader.ErrFileNotFound}).GetTriples(ctx, file)
	assert.ErrorIs(t, err, ErrFileRead)
	assert.ErrorIs(t, err, loader.ErrFileNotFound)
}

func TestWriteTriplesRoundTrip(t *testing.T) {
	triples := []common.Triple{
		{Source: "Newton, Isaac", Target: "Gravity", Relation: "proposed"},
		{Source: "量子计算", Target: "量子力学", Relation: "利用"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTriples(&buf, triples))
	assert.True(t, strings.HasPrefix(buf.String(), "Source,Target,Relation\n"))

	res, err := ParseTriplesWithStats(&buf)
	require.NoError(t, err)
	assert.True(t, res.HasHeader)
	assert.Equal(t, triples, res.Triples)
}

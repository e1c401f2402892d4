package extractor

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

// buildPDF assembles a minimal well-formed PDF with one page per entry; an
// empty entry becomes a page with no content stream.
func buildPDF(pages []string) []byte {
	var buf bytes.Buffer
	offsets := map[int]int{}
	obj := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	type pageObj struct {
		num, contentNum int
		text            string
	}
	next := 4
	var pageObjs []pageObj
	for _, text := range pages {
		p := pageObj{num: next, text: text}
		next++
		if text != "" {
			p.contentNum = next
			next++
		}
		pageObjs = append(pageObjs, p)
	}

	buf.WriteString("%PDF-1.4\n")
	kids := make([]string, len(pageObjs))
	for i, p := range pageObjs {
		kids[i] = fmt.Sprintf("%d 0 R", p.num)
	}
	obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	obj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pageObjs)))
	obj(3, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	for _, p := range pageObjs {
		if p.contentNum == 0 {
			obj(p.num, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
			continue
		}
		obj(p.num, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			p.contentNum))
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", p.text)
		obj(p.contentNum, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", next)
	for num := 1; num < next; num++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[num])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", next, xref)
	return buf.Bytes()
}

func TestExtract_PlainText(t *testing.T) {
	e := NewAuto()
	text, err := e.Extract([]byte("  Flow sensor EC-575\nRange: 0-100 l/min\n"), "ec575.txt")
	require.NoError(t, err)
	assert.Equal(t, "Flow sensor EC-575\nRange: 0-100 l/min", text)
}

func TestExtract_EmptyInput(t *testing.T) {
	e := NewAuto()
	text, err := e.Extract(nil, "empty.txt")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtract_PDFSkipsEmptyPagesAndJoins(t *testing.T) {
	data := buildPDF([]string{"flow sensor range 0-100", "", "supply voltage 24 VDC"})
	e := NewAuto()
	text, err := e.Extract(data, "ec575.pdf")
	require.NoError(t, err)
	assert.Equal(t, "flow sensor range 0-100\nsupply voltage 24 VDC", text)
}

func TestExtract_PDFAllPagesEmpty(t *testing.T) {
	data := buildPDF([]string{"", ""})
	text, err := NewAuto().Extract(data, "blank.pdf")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtract_TruncatedPDF(t *testing.T) {
	data := buildPDF([]string{"flow sensor range 0-100"})
	_, err := NewAuto().Extract(data[:len(data)/2], "cut.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExtract)
}

func TestExtract_MalformedPDF(t *testing.T) {
	e := NewAuto()
	_, err := e.Extract([]byte("%PDF-1.4 garbage that is not a pdf body"), "bad.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExtract)
}

func TestExtract_BinaryNonPDF(t *testing.T) {
	e := NewAuto()
	_, err := e.Extract([]byte{0xff, 0xfe, 0x00, 0x01}, "blob.bin")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExtract)
}

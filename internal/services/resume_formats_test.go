package services

import (
	"archive/zip"
	"bytes"
	"context"
	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func pdfResume(t *testing.T, pages ...[]string) []byte {
	t.Helper()
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 12)
	for _, lines := range pages {
		pdf.AddPage()
		for _, line := range lines {
			pdf.Cell(0, 10, line)
			pdf.Ln(12)
		}
	}

	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}

const wordDocument = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Jane</w:t></w:r><w:r><w:t xml:space="preserve"> Doe</w:t></w:r></w:p>
    <w:p><w:r><w:t>Backend</w:t><w:tab/><w:t>Go &amp; Postgres</w:t></w:r></w:p>
    <w:p/>
    <w:p><w:r><w:t>Washington, D.C.</w:t><w:br/><w:t>Remote</w:t></w:r></w:p>
  </w:body>
</w:document>`

func docxResume(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	archive := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := archive.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, archive.Close())
	return buf.Bytes()
}

func Test_ExtractResumeText_WhenPdf_ShouldReturnTextInPageOrder(t *testing.T) {
	data := pdfResume(t,
		[]string{"Jane Doe", "Skills (Go, SQL)"},
		[]string{"Experience: 5 years"},
	)

	text, err := ExtractResumeText("resume.PDF", data)

	require.NoError(t, err)
	assert.Contains(t, text, "Jane Doe")
	assert.Contains(t, text, "Skills (Go, SQL)")
	assert.Contains(t, text, "Experience: 5 years")
	assert.Less(t, bytes.Index([]byte(text), []byte("Jane Doe")), bytes.Index([]byte(text), []byte("Experience")))
}

func Test_ExtractResumeText_WhenPdfHasNoExtension_ShouldSniffIt(t *testing.T) {
	text, err := ExtractResumeText("resume", pdfResume(t, []string{"Jane Doe"}))

	require.NoError(t, err)
	assert.Contains(t, text, "Jane Doe")
}

func Test_ExtractResumeText_WhenDocx_ShouldReturnParagraphs(t *testing.T) {
	data := docxResume(t, map[string]string{
		"[Content_Types].xml": `<?xml version="1.0"?><Types/>`,
		"word/document.xml":   wordDocument,
	})

	text, err := ExtractResumeText("resume.docx", data)

	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nBackend Go & Postgres\nWashington, D.C.\nRemote", text)
}

func Test_ExtractResumeText_WhenDocxHasNoDocument_ShouldBeUnsupported(t *testing.T) {
	data := docxResume(t, map[string]string{"word/styles.xml": "<w:styles/>"})

	_, err := ExtractResumeText("resume.docx", data)

	assert.ErrorIs(t, err, ErrUnsupportedResume)

	_, err = ExtractResumeText("resume.docx", []byte("not a zip"))
	assert.ErrorIs(t, err, ErrUnsupportedResume)
}

func Test_ContentStreamText_ShouldReadShownStrings(t *testing.T) {
	stream := "BT /F1 12 Tf 72 720 Td (Jane \\(JD\\) Doe) Tj ET\n" +
		"BT 72 700 Td [(Go) -250 ( developer)] TJ T* <4261636B656E64> Tj ET\n" +
		"% comment (ignored) Tj\n" +
		"BT (caf\\351) Tj ET"

	assert.Equal(t, "Jane (JD) Doe\nGo developer\nBackend\ncafé", contentStreamText(stream))
}

func Test_ResumeService_WhenPdfUploaded_ShouldStoreExtractedText(t *testing.T) {
	repos := newTestRepositories(t)
	service := NewResumeService(repos.profiles)
	ctx := context.Background()

	require.NoError(t, service.Upload(ctx, "user", "cv.pdf", pdfResume(t, []string{"Jane Doe"})))
	length, err := service.ExtractText(ctx, "user")

	require.NoError(t, err)
	assert.Equal(t, 8, length)
	profile, err := repos.profiles.Get(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", profile.ResumeText)
}

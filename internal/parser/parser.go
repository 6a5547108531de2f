package parser

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"resume-matcher/internal/models"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyDocument     = errors.New("document has no text")
)

var xmlTagRe = regexp.MustCompile(`<[^>]+>`)

// TextExtractor turns a file into raw text
type TextExtractor interface {
	ExtractText(filePath string) (string, error)
}

// FileExtractor dispatches on the file extension
type FileExtractor struct{}

func (FileExtractor) ExtractText(filePath string) (string, error) {
	return ExtractText(filePath)
}

// SupportedExtension reports whether ExtractText can read files with ext
func SupportedExtension(ext string) bool {
	switch strings.ToLower(ext) {
	case ".pdf", ".docx", ".pptx", ".xlsx", ".md", ".markdown", ".txt":
		return true
	}
	return false
}

// ExtractText returns the concatenated text of the document, one page per line block
func ExtractText(filePath string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".pdf":
		return parsePDF(filePath)
	case ".docx":
		return parseDOCX(filePath)
	case ".pptx":
		return parsePPTX(filePath)
	case ".xlsx":
		return parseXLSX(filePath)
	case ".md", ".markdown":
		return parseMarkdown(filePath)
	case ".txt":
		return parseText(filePath)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// CleanText removes NUL bytes and collapses every whitespace run to a single space
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.Join(strings.Fields(s), " ")
}

// LoadFolder extracts every supported file in dir. Files that cannot be read or
// that hold no text are skipped. A missing folder is an error.
func LoadFolder(dir string, kind models.Kind) ([]models.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read folder %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !SupportedExtension(filepath.Ext(e.Name())) {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	log.Info().Str("dir", dir).Int("files", len(files)).Msg("Found documents")

	var docs []models.Document
	for i, name := range files {
		raw, err := ExtractText(filepath.Join(dir, name))
		if err != nil {
			log.Warn().Err(err).Str("file", name).Msg("Skipping unreadable document")
			continue
		}
		if CleanText(raw) == "" {
			log.Warn().Str("file", name).Msg("Skipping empty document")
			continue
		}
		docs = append(docs, models.Document{
			ID:       DocumentID(kind, i, name),
			Filename: name,
			RawText:  raw,
		})
		log.Debug().Msgf("[%d/%d] Extracted %s", i+1, len(files), name)
	}
	return docs, nil
}

// DocumentID names resumes by position and jobs by file name
func DocumentID(kind models.Kind, i int, filename string) string {
	if kind == models.KindJob {
		return strings.TrimSuffix(filename, filepath.Ext(filename))
	}
	return fmt.Sprintf("RES_%d", i)
}

func parsePDF(filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var sb strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			log.Warn().Err(err).Int("page", i).Str("file", filePath).Msg("Failed to read pdf page")
			continue
		}
		if pageText != "" {
			sb.WriteString(pageText)
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

func parseDOCX(filePath string) (string, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return "", err
	}
	defer r.Close()

	// content is the raw document.xml
	content := r.Editable().GetContent()
	content = strings.ReplaceAll(content, "</w:p>", "\n")
	content = strings.ReplaceAll(content, "<w:tab/>", "\t")
	content = xmlTagRe.ReplaceAllString(content, "")
	return unescapeXML(content), nil
}

func parsePPTX(filePath string) (string, error) {
	f, err := zip.OpenReader(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var slides []*zip.File
	for _, file := range f.File {
		if strings.HasPrefix(file.Name, "ppt/slides/slide") && strings.HasSuffix(file.Name, ".xml") {
			slides = append(slides, file)
		}
	}
	sort.Slice(slides, func(i, j int) bool { return slideNumber(slides[i].Name) < slideNumber(slides[j].Name) })

	var sb strings.Builder
	for _, file := range slides {
		rc, err := file.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		if slideText := extractTextFromXML(string(data)); strings.TrimSpace(slideText) != "" {
			sb.WriteString(slideText)
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

func slideNumber(name string) int {
	var n int
	fmt.Sscanf(strings.TrimPrefix(name, "ppt/slides/slide"), "%d", &n)
	return n
}

func parseXLSX(filePath string) (string, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, sheet := range f.Sheets {
		for _, row := range sheet.Rows {
			var cells []string
			for _, cell := range row.Cells {
				if v := strings.TrimSpace(cell.String()); v != "" {
					cells = append(cells, v)
				}
			}
			if len(cells) > 0 {
				sb.WriteString(strings.Join(cells, "\t"))
				sb.WriteString("\n")
			}
		}
	}
	return sb.String(), nil
}

func parseMarkdown(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	return markdownText(data), nil
}

// markdownText walks the markdown AST and keeps only the text, one block per line
func markdownText(src []byte) string {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(src))

	var sb strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument {
				sb.WriteString("\n")
			}
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			sb.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				sb.WriteString("\n")
			}
		case *ast.String:
			sb.Write(node.Value)
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				sb.Write(seg.Value(src))
			}
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

func parseText(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), ""), nil
}

func extractTextFromXML(xmlContent string) string {
	var sb strings.Builder
	parts := strings.Split(xmlContent, "<a:t>")
	for i, part := range parts {
		if i == 0 {
			continue
		}
		endIdx := strings.Index(part, "</a:t>")
		if endIdx >= 0 {
			sb.WriteString(unescapeXML(part[:endIdx]) + " ")
		}
	}
	return sb.String()
}

var xmlEntities = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'")

func unescapeXML(s string) string {
	return xmlEntities.Replace(s)
}

// ReadUpload writes data to a temporary file with the given name's extension and
// extracts its text
func ReadUpload(filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !SupportedExtension(ext) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	tmp, err := os.CreateTemp("", "upload-*"+ext)
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	raw, err := ExtractText(tmp.Name())
	if err != nil {
		return "", err
	}
	if CleanText(raw) == "" {
		return "", ErrEmptyDocument
	}
	return raw, nil
}

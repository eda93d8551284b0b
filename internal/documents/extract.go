package documents

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extract returns the plain text of a document. The format is chosen from
// the filename extension: .pdf page texts and .docx paragraphs are joined
// with newlines; anything else is decoded as UTF-8 with invalid sequences
// dropped. The result is trimmed.
func Extract(filename string, data []byte) (string, error) {
	var (
		text string
		err  error
	)

	switch strings.ToLower(path.Ext(filename)) {
	case ".pdf":
		text, err = extractPDF(data)
	case ".docx":
		text, err = extractDOCX(data)
	default:
		text = strings.ToValidUTF8(string(data), "")
	}

	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrExtractFailed, filename, err)
	}
	return strings.TrimSpace(text), nil
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, text)
	}

	return strings.Join(pages, "\n"), nil
}

func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		return docxParagraphs(rc)
	}

	return "", fmt.Errorf("word/document.xml not found")
}

// docxParagraphs walks WordprocessingML and joins the text runs of each
// w:p element, one paragraph per line.
func docxParagraphs(r io.Reader) (string, error) {
	const ns = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

	dec := xml.NewDecoder(r)
	var (
		paragraphs []string
		current    strings.Builder
		inPara     bool
		inText     bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != ns {
				continue
			}
			switch t.Name.Local {
			case "p":
				inPara = true
				current.Reset()
			case "t":
				inText = true
			case "tab":
				if inPara {
					current.WriteByte('\t')
				}
			case "br":
				if inPara {
					current.WriteByte('\n')
				}
			}
		case xml.EndElement:
			if t.Name.Space != ns {
				continue
			}
			switch t.Name.Local {
			case "p":
				paragraphs = append(paragraphs, current.String())
				inPara = false
			case "t":
				inText = false
			}
		case xml.CharData:
			if inPara && inText {
				current.Write(t)
			}
		}
	}

	return strings.Join(paragraphs, "\n"), nil
}

package service

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

const docxBodyPart = "word/document.xml"

// oleMagic starts every OLE compound file; Office stores encrypted OOXML
// packages in one
var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

func isOLEContainer(data []byte) bool {
	return bytes.HasPrefix(data, oleMagic)
}

// extractDOCX returns the raw text of the main document part in document
// order. Formatting is dropped. The part may decompress to at most
// maxXML bytes.
func extractDOCX(data []byte, maxXML int64) (string, error) {
	if isOLEContainer(data) {
		return "", ErrPasswordProtected
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &DecodeError{Detail: "not a valid DOCX package", Err: err}
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == docxBodyPart {
			body = f
			break
		}
	}
	if body == nil {
		return "", &DecodeError{Detail: "DOCX package has no " + docxBodyPart}
	}
	if body.UncompressedSize64 > uint64(maxXML) {
		return "", &DecodeError{Detail: errTooLargeExpanded.Error(), Err: errTooLargeExpanded}
	}

	rc, err := body.Open()
	if err != nil {
		return "", &DecodeError{Detail: "failed to open " + docxBodyPart, Err: err}
	}
	defer rc.Close()

	// the size in the zip header is not trusted
	return docxText(&cappedReader{r: rc, remaining: maxXML})
}

// cappedReader fails with errTooLargeExpanded once more than remaining
// bytes have been read
type cappedReader struct {
	r         io.Reader
	remaining int64
}

func (c *cappedReader) Read(p []byte) (int, error) {
	if c.remaining < 0 {
		return 0, errTooLargeExpanded
	}
	if int64(len(p)) > c.remaining+1 {
		p = p[:c.remaining+1]
	}
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	if c.remaining < 0 {
		return n, errTooLargeExpanded
	}
	return n, err
}

// docxText walks WordprocessingML and keeps only text runs, tabs, breaks
// and paragraph boundaries
func docxText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var b strings.Builder
	inText := false
	runDepth := 0 // tab stops in paragraph properties are also named "tab"
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if errors.Is(err, errTooLargeExpanded) {
			return "", &DecodeError{Detail: err.Error(), Err: err}
		}
		if err != nil {
			return "", &DecodeError{Detail: "malformed " + docxBodyPart, Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "r":
				runDepth++
			case "t":
				inText = true
			case "tab":
				if runDepth > 0 {
					b.WriteByte('\t')
				}
			case "br", "cr":
				if runDepth > 0 {
					b.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "r":
				runDepth--
			case "t":
				inText = false
			case "p":
				b.WriteString("\n\n")
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}

	return b.String(), nil
}

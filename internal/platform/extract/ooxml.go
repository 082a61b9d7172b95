package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
)

// DOCXProvider extracts paragraph text from a Word document.
type DOCXProvider struct{}

// Extract implements Provider.
func (DOCXProvider) Extract(_ context.Context, data []byte) (string, error) {
	archive, err := openZip(data)
	if err != nil {
		return "", err
	}

	part := findPart(archive, "word/document.xml")
	if part == nil {
		return "", errors.New("invalid docx: missing word/document.xml")
	}

	var sb strings.Builder
	if err := readParagraphs(part, &sb); err != nil {
		return "", fmt.Errorf("invalid docx: %w", err)
	}
	return sb.String(), nil
}

// PPTXProvider extracts slide text from a PowerPoint deck, slide by slide.
type PPTXProvider struct{}

// Extract implements Provider.
func (PPTXProvider) Extract(_ context.Context, data []byte) (string, error) {
	archive, err := openZip(data)
	if err != nil {
		return "", err
	}

	type slide struct {
		num  int
		file *zip.File
	}
	var slides []slide
	for _, f := range archive.File {
		dir, name := path.Split(f.Name)
		if dir != "ppt/slides/" || !strings.HasPrefix(name, "slide") || !strings.HasSuffix(name, ".xml") {
			continue
		}
		num, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "slide"), ".xml"))
		if err != nil {
			continue
		}
		slides = append(slides, slide{num: num, file: f})
	}
	if len(slides) == 0 {
		return "", errors.New("invalid pptx: no slides")
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var sb strings.Builder
	for i, s := range slides {
		if i > 0 {
			sb.WriteString("\n")
		}
		if err := readParagraphs(s.file, &sb); err != nil {
			return "", fmt.Errorf("invalid pptx slide %d: %w", s.num, err)
		}
	}
	return sb.String(), nil
}

func openZip(data []byte) (*zip.Reader, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("not an office document: %w", err)
	}
	return archive, nil
}

func findPart(archive *zip.Reader, name string) *zip.File {
	for _, f := range archive.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// readParagraphs walks an OOXML part and writes the contents of its text
// runs, one line per paragraph. WordprocessingML and DrawingML share the
// element local names used here.
func readParagraphs(f *zip.File, sb *strings.Builder) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	decoder := xml.NewDecoder(rc)
	inRun, inText := false, false
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "r":
				inRun = true
			case "t":
				inText = true
			case "tab":
				// tab stops in paragraph properties share the name
				if inRun {
					sb.WriteString("\t")
				}
			case "br", "cr":
				sb.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "r":
				inRun = false
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
}

package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/aidalabs/drive-connector/internal/domain"
)

var slidePartName = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// ExtractSlides decodes a PPTX presentation into its ordered slides. Each
// slide's shape texts are joined in document order; the first non-empty
// shape text doubles as the slide title.
func ExtractSlides(data []byte) ([]domain.Slide, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pptx container: %w", err)
	}

	type slidePart struct {
		number int
		file   *zip.File
	}
	var parts []slidePart
	for _, f := range zr.File {
		m := slidePartName.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		parts = append(parts, slidePart{number: n, file: f})
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].number < parts[j].number })

	slides := make([]domain.Slide, 0, len(parts))
	for _, part := range parts {
		rc, err := part.file.Open()
		if err != nil {
			return nil, fmt.Errorf("open slide %d: %w", part.number, err)
		}
		texts, err := parseSlideXML(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("parse slide %d: %w", part.number, err)
		}

		title := fmt.Sprintf("Slide %d", part.number)
		if len(texts) > 0 {
			title = texts[0]
		}
		content := Sanitize(strings.Join(texts, " "))
		slides = append(slides, domain.Slide{
			Number:  part.number,
			Title:   title,
			Content: content,
		})
	}
	return slides, nil
}

// parseSlideXML collects the <a:t> text runs of one slide, one string per
// paragraph (<a:p>) so shape texts keep their reading order.
func parseSlideXML(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var texts []string
	var current strings.Builder
	inText := false

	flush := func() {
		if t := strings.TrimSpace(current.String()); t != "" {
			texts = append(texts, t)
		}
		current.Reset()
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				flush()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	flush()

	return texts, nil
}

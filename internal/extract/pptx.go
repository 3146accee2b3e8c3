package extract

import (
	"html"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	slidePathRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
	atTag       = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)
)

// extractPPTX returns one line per slide in slide order, text runs joined by spaces.
func extractPPTX(content []byte) (string, error) {
	zr, err := openZip(content, "PPTX")
	if err != nil {
		return "", err
	}
	type slide struct {
		n    int
		name string
	}
	var slides []slide
	for _, f := range zr.File {
		if m := slidePathRe.FindStringSubmatch(f.Name); m != nil {
			n, _ := strconv.Atoi(m[1])
			slides = append(slides, slide{n: n, name: f.Name})
		}
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })

	var lines []string
	for _, s := range slides {
		data, err := readEntry(zr, s.name)
		if err != nil {
			return "", err
		}
		var words []string
		for _, m := range atTag.FindAllSubmatch(data, -1) {
			if w := strings.TrimSpace(html.UnescapeString(string(m[1]))); w != "" {
				words = append(words, w)
			}
		}
		if len(words) > 0 {
			lines = append(lines, strings.Join(words, " "))
		}
	}
	return strings.Join(lines, "\n"), nil
}

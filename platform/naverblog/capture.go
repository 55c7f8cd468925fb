package naverblog

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/domain"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/platform"
)

// captureTemplate renders the inspected results as a standalone page,
// matched posts highlighted. It stands in for a browser screenshot and
// is what clients attach to the report.
var captureTemplate = template.Must(template.New("capture").Parse(`<!DOCTYPE html>
<html lang="ko">
<head>
<meta charset="utf-8">
<title>{{.Keyword}}</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
h1 { font-size: 1.2rem; }
ol { line-height: 1.9; }
li.hit { background: #fff3b0; font-weight: bold; }
footer { margin-top: 2rem; color: #888; font-size: .8rem; }
</style>
</head>
<body>
<h1>&ldquo;{{.Keyword}}&rdquo; 블로그 검색 결과 (상위 {{len .Rows}}건)</h1>
<ol>
{{- range .Rows}}
<li{{if .Hit}} class="hit"{{end}}><a href="{{.URL}}">{{.Title}}</a></li>
{{- end}}
</ol>
<footer>{{.CapturedAt}}</footer>
</body>
</html>
`))

type captureRow struct {
	Title string
	URL   string
	Hit   bool
}

// writeCapture renders the annotated result list to
// <OutputDir>/<index>_<keyword>.html and returns the path.
func writeCapture(in platform.Input, posts []domain.Post, matched map[int]bool) (string, error) {
	if err := os.MkdirAll(in.OutputDir, 0o755); err != nil {
		return "", err
	}

	rows := make([]captureRow, 0, len(posts))
	for i, p := range posts {
		rows = append(rows, captureRow{Title: p.Title, URL: p.URL, Hit: matched[i]})
	}

	name := fmt.Sprintf("%02d_%s.html", in.Index+1, sanitizeFilename(in.Keyword.Text))
	path := filepath.Join(in.OutputDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	data := struct {
		Keyword    string
		Rows       []captureRow
		CapturedAt string
	}{
		Keyword:    in.Keyword.Text,
		Rows:       rows,
		CapturedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := captureTemplate.Execute(f, data); err != nil {
		return "", err
	}
	return path, nil
}

// sanitizeFilename keeps keyword text usable as a file name.
func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		case ' ':
			return '_'
		}
		return r
	}, s)
}

package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"
	"strings"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var reportTemplate = template.Must(template.New("report.html.tmpl").
	Funcs(template.FuncMap{"sparkline": sparklineSVG}).
	ParseFS(templateFS, "templates/report.html.tmpl"))

// RenderHTML renders the report as a standalone HTML document.
func RenderHTML(r *Report) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("render: nil report")
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, r); err != nil {
		return nil, fmt.Errorf("render %s: %w", r.ID, err)
	}
	return buf.Bytes(), nil
}

const (
	sparkWidth  = 360
	sparkHeight = 56
	sparkPad    = 4
)

// sparklineSVG draws the series as an inline polyline. NaN points break the
// line, which makes imputation gaps visible in the rendered chart.
func sparklineSVG(values []float64) template.HTML {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if len(values) < 2 || lo > hi {
		return template.HTML("<svg width=\"0\" height=\"0\"></svg>")
	}
	if hi == lo {
		hi = lo + 1
	}

	span := float64(sparkWidth - 2*sparkPad)
	step := span / float64(len(values)-1)
	scale := float64(sparkHeight-2*sparkPad) / (hi - lo)

	var b strings.Builder
	fmt.Fprintf(&b, "<svg width=\"%d\" height=\"%d\" viewBox=\"0 0 %d %d\">",
		sparkWidth, sparkHeight, sparkWidth, sparkHeight)

	var points []string
	flush := func() {
		if len(points) > 1 {
			fmt.Fprintf(&b, "<polyline points=\"%s\"/>", strings.Join(points, " "))
		}
		points = points[:0]
	}
	for i, v := range values {
		if math.IsNaN(v) {
			flush()
			continue
		}
		x := float64(sparkPad) + float64(i)*step
		y := float64(sparkHeight-sparkPad) - (v-lo)*scale
		points = append(points, fmt.Sprintf("%.1f,%.1f", x, y))
	}
	flush()

	b.WriteString("</svg>")
	return template.HTML(b.String())
}

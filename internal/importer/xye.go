package importer

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	"diffractcore/pkg/domain"
)

// ReadXYE reads whitespace-separated x, y[, e] columns. Lines starting with
// '#' or '!' are comments. A missing e becomes sqrt(y), or 1 when y <= 0.
// Ordering and finiteness are left to the experiment.
func ReadXYE(r io.Reader) ([]domain.MeasuredPoint, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	var out []domain.MeasuredPoint
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || text[0] == '#' || text[0] == '!' {
			continue
		}
		fields := strings.Fields(strings.ReplaceAll(text, ",", " "))
		if len(fields) < 2 || len(fields) > 3 {
			return nil, domain.Newf(domain.CodeImportError, "xye", "line %d: expected 2 or 3 columns, got %d", line, len(fields))
		}
		var vals [3]float64
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, domain.Newf(domain.CodeImportError, "xye", "line %d: %q is not a number", line, f)
			}
			vals[i] = v
		}
		p := domain.MeasuredPoint{X: vals[0], Y: vals[1], Sigma: vals[2]}
		if len(fields) == 2 {
			p.Sigma = defaultSigma(p.Y)
		}
		out = append(out, p)
	}
	if err := sc.Err(); err != nil {
		return nil, domain.Wrap(domain.CodeImportError, "xye", err)
	}
	if len(out) == 0 {
		return nil, domain.Newf(domain.CodeImportError, "xye", "no data rows")
	}
	return out, nil
}

func defaultSigma(y float64) float64 {
	if y > 0 {
		return math.Sqrt(y)
	}
	return 1
}

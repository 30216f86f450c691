package report

import (
	"bytes"
	"context"
	_ "embed"
	"sync"
	"text/template"

	"github.com/go-logr/logr"
	"github.com/samber/do"
)

//go:embed assets/report.tmpl
var reportTmpl string

type Params struct {
	Prompt      string
	Provider    string
	Model       string
	AspectRatio string
	ImageSize   string
	Path        string
	Size        int
	MediaType   string
	Text        string
}

type Templator struct {
	tmpl *template.Template
	once sync.Once
}

func NewTemplator(*do.Injector) (*Templator, error) {
	return &Templator{}, nil
}

func (g *Templator) Template(ctx context.Context, params Params) ([]byte, error) {
	g.once.Do(func() {
		g.tmpl = template.Must(template.New("report").Parse(reportTmpl))
	})

	log := logr.FromContextOrDiscard(ctx).WithName("templator")
	log.V(1).Info("rendering report", "path", params.Path)

	var data bytes.Buffer
	if err := g.tmpl.Execute(&data, params); err != nil {
		return nil, err
	}
	return data.Bytes(), nil
}

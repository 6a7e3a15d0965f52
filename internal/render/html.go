package render

import (
	"bytes"
	"html/template"
)

var fragmentTmpl = template.Must(template.New("paragraph").Parse(`<section class="paragraph">
{{- if .Title}}<h3 class="paragraph-title">{{.Title}}</h3>{{end}}
{{- with .Media}}
{{- if eq .Kind.String "image"}}<figure class="paragraph-media"><img src="{{.Src}}" alt="{{.Alt}}" style="width:100%;max-height:500px;object-fit:contain"></figure>
{{- else if eq .Kind.String "embed"}}<div class="paragraph-media embed" style="position:relative;padding-top:56.25%"><iframe src="{{.Src}}" style="position:absolute;top:0;left:0;width:100%;height:100%" allowfullscreen></iframe></div>
{{- else if eq .Kind.String "video"}}<div class="paragraph-media"><video controls width="100%"{{if .Poster}} poster="{{.Poster}}"{{end}}><source src="{{.Src}}" type="video/mp4">Votre navigateur ne prend pas en charge la lecture de vidéos.</video></div>
{{- end}}
{{- end}}
{{- if .Blocks}}<div class="paragraph-content">
{{- range .Blocks}}
{{- if .IsBullet}}<div class="bullet"><span class="bullet-dot"></span><span>{{.Text}}</span></div>
{{- else}}<p>{{.Text}}</p>
{{- end}}
{{- end}}</div>{{end}}
</section>`))

// HTML renders f as an HTML section. Text is escaped.
func HTML(f Fragment) (template.HTML, error) {
	var buf bytes.Buffer
	if err := fragmentTmpl.Execute(&buf, f); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

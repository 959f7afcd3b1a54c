package render

import (
	"bytes"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"
	"gitlab.com/ranfdev/kupolls/internal/models"
)

type Templates struct {
	templates *template.Template
	envConfig *models.EnvConfig
	fsys      fs.FS
	logger    zerolog.Logger
}

func (tmpls *Templates) RenderHTML(w http.ResponseWriter, tmplName string, data interface{}) {
	tmpls.RenderHTMLStatus(w, http.StatusOK, tmplName, data)
}

func (tmpls *Templates) RenderHTMLStatus(w http.ResponseWriter, status int, tmplName string, data interface{}) {
	// Reload templates every time when developing locally.
	if tmpls.envConfig.Debug {
		if err := tmpls.load(); err != nil {
			tmpls.logger.Error().Err(err).Msg("Reloading templates")
		}
	}
	buff := bytes.NewBuffer([]byte{})
	err := tmpls.templates.ExecuteTemplate(buff, tmplName, data)
	if err != nil && tmplName != "404" {
		tmpls.logger.Error().Err(err).Str("template", tmplName).Msg("Rendering template")
		tmpls.RenderHTMLStatus(w, http.StatusNotFound, "404", nil)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buff.Bytes())
}
func markdown(args ...interface{}) template.HTML {
	var b bytes.Buffer
	s, _ := args[0].(string)
	goldmark.Convert([]byte(s), &b)
	return template.HTML(b.String())
}
func formatTime(t time.Time) string {
	return t.Local().Format("Jan 2, 2006 15:04")
}
func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return part * 100 / total
}
func (tmpls *Templates) load() error {
	fsys := tmpls.fsys
	if tmpls.envConfig.Debug {
		if _, err := os.Stat("web/templates"); err == nil {
			fsys = os.DirFS("web")
		}
	}
	t, err := template.New("").Funcs(template.FuncMap{
		"markdown":   markdown,
		"formatTime": formatTime,
		"percent":    percent,
	}).ParseFS(fsys, "templates/*.html")
	if err != nil {
		return err
	}
	tmpls.templates = t
	return nil
}

// GetTemplates parses every template under templates/ in fsys.
func GetTemplates(envConfig *models.EnvConfig, fsys fs.FS, logger zerolog.Logger) (Templates, error) {
	tmpls := Templates{envConfig: envConfig, fsys: fsys, logger: logger}
	err := tmpls.load()
	return tmpls, err
}

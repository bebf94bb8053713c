// Package site renders the accumulated paper summaries into a static,
// date-organized website: one page per day plus month/year indexes and a
// main index of the most recent papers.
package site

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"arxivdigest/internal/arxiv"
	"arxivdigest/internal/config"
	"arxivdigest/internal/record"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

type crumb struct {
	Href   string
	Label  string
	Active bool
}

type paperView struct {
	Title         string
	FormattedDate string
	ArxivID       string
	AbsURL        string
	Summary       string
}

type archiveLink struct {
	Href  string
	Label string
	Count int
}

type archiveYear struct {
	Href   string
	Label  string
	Count  int
	Months []archiveLink
}

type pageData struct {
	Title       string
	LastUpdated string
	Lead        string
	Crumbs      []crumb
	Papers      []paperView
	Links       []archiveLink
	Archive     []archiveYear
}

// Generator renders record sets into static pages.
type Generator struct {
	cfg   config.Site
	log   *zap.Logger
	pages map[string]*template.Template

	// now is swappable for deterministic rendering in tests.
	now func() time.Time
}

// NewGenerator creates a site generator.
func NewGenerator(cfg config.Site, log *zap.Logger) (*Generator, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	pageNames := []string{"index.html", "daily.html", "month.html", "year.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	return &Generator{cfg: cfg, log: log, pages: pages, now: time.Now}, nil
}

// Generate writes the full site for the given records into outDir.
func (g *Generator) Generate(records []record.Record, outDir string) error {
	if err := g.writeAssets(outDir); err != nil {
		return err
	}

	buckets := g.bucketByDate(records)
	dates := sortedKeysDesc(buckets)
	g.log.Info("rendering site", zap.Int("records", len(records)), zap.Int("dates", len(dates)))

	stamp := g.now().Format("2006年01月02日 15:04")

	for _, date := range dates {
		if err := g.writeDailyPage(date, buckets[date], stamp, outDir); err != nil {
			return err
		}
	}
	for _, ym := range yearMonths(dates) {
		if err := g.writeMonthPage(ym, dates, buckets, stamp, outDir); err != nil {
			return err
		}
	}
	for _, year := range years(dates) {
		if err := g.writeYearPage(year, dates, buckets, stamp, outDir); err != nil {
			return err
		}
	}
	return g.writeMainIndex(dates, buckets, stamp, outDir)
}

// bucketByDate groups records by the date portion of their timestamps,
// applying the configured keyword filter.
func (g *Generator) bucketByDate(records []record.Record) map[string][]record.Record {
	buckets := make(map[string][]record.Record)
	for _, r := range records {
		date := r.Date()
		if date == "" {
			continue
		}
		if !matchesFilter(r, g.cfg.FilterKeywords) {
			continue
		}
		buckets[date] = append(buckets[date], r)
	}
	return buckets
}

// matchesFilter reports whether the record matches any filter keyword via
// case-insensitive substring match on title, summary, or keywords. An empty
// filter matches everything.
func matchesFilter(r record.Record, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	title := strings.ToLower(r.Title)
	summary := strings.ToLower(r.Summary)
	tags := strings.ToLower(r.Keywords)
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if strings.Contains(title, kw) || strings.Contains(summary, kw) || strings.Contains(tags, kw) {
			return true
		}
	}
	return false
}

func (g *Generator) writeDailyPage(date string, records []record.Record, stamp, outDir string) error {
	year, month, day := splitDate(date)
	data := pageData{
		Title:       fmt.Sprintf("%s年%s月%s日の論文要約", year, month, day),
		LastUpdated: stamp,
		Lead:        "最新の論文要約をお届けします！",
		Crumbs: []crumb{
			{Href: "index.html", Label: "ホーム"},
			{Href: year + ".html", Label: year + "年"},
			{Href: year + "-" + month + ".html", Label: fmt.Sprintf("%s年%s月", year, month)},
			{Label: fmt.Sprintf("%s年%s月%s日", year, month, day), Active: true},
		},
		Papers: toViews(records),
	}
	return g.render("daily.html", data, filepath.Join(outDir, date+".html"))
}

func (g *Generator) writeMonthPage(ym string, dates []string, buckets map[string][]record.Record, stamp, outDir string) error {
	year, month, _ := splitDate(ym + "-01")
	var links []archiveLink
	for _, date := range dates {
		if !strings.HasPrefix(date, ym+"-") {
			continue
		}
		y, m, d := splitDate(date)
		links = append(links, archiveLink{
			Href:  date + ".html",
			Label: fmt.Sprintf("%s年%s月%s日", y, m, d),
			Count: len(buckets[date]),
		})
	}

	data := pageData{
		Title:       fmt.Sprintf("%s年%s月の論文要約", year, month),
		LastUpdated: stamp,
		Lead:        fmt.Sprintf("%s年%s月の論文要約一覧だよ！", year, month),
		Crumbs: []crumb{
			{Href: "index.html", Label: "ホーム"},
			{Href: year + ".html", Label: year + "年"},
			{Label: fmt.Sprintf("%s年%s月", year, month), Active: true},
		},
		Links: links,
	}
	return g.render("month.html", data, filepath.Join(outDir, ym+".html"))
}

func (g *Generator) writeYearPage(year string, dates []string, buckets map[string][]record.Record, stamp, outDir string) error {
	var links []archiveLink
	for _, ym := range yearMonths(dates) {
		if !strings.HasPrefix(ym, year+"-") {
			continue
		}
		_, month, _ := splitDate(ym + "-01")
		links = append(links, archiveLink{
			Href:  ym + ".html",
			Label: fmt.Sprintf("%s年%s月", year, month),
			Count: countWithPrefix(dates, buckets, ym+"-"),
		})
	}

	data := pageData{
		Title:       year + "年の論文要約",
		LastUpdated: stamp,
		Lead:        fmt.Sprintf("%s年の論文要約一覧だよ！", year),
		Crumbs: []crumb{
			{Href: "index.html", Label: "ホーム"},
			{Label: year + "年", Active: true},
		},
		Links: links,
	}
	return g.render("year.html", data, filepath.Join(outDir, year+".html"))
}

func (g *Generator) writeMainIndex(dates []string, buckets map[string][]record.Record, stamp, outDir string) error {
	recentDays := g.cfg.RecentDays
	if recentDays <= 0 {
		recentDays = 5
	}
	recentPapers := g.cfg.RecentPapers
	if recentPapers <= 0 {
		recentPapers = 10
	}

	var latest []record.Record
	for i, date := range dates {
		if i >= recentDays {
			break
		}
		latest = append(latest, buckets[date]...)
	}
	sort.Slice(latest, func(i, j int) bool { return latest[i].Timestamp > latest[j].Timestamp })
	if len(latest) > recentPapers {
		latest = latest[:recentPapers]
	}

	var archive []archiveYear
	allYears := years(dates)
	for i, year := range allYears {
		y := archiveYear{
			Href:  year + ".html",
			Label: year + "年",
			Count: countWithPrefix(dates, buckets, year+"-"),
		}
		// Month links are shown for the most recent year only.
		if i == 0 {
			for _, ym := range yearMonths(dates) {
				if !strings.HasPrefix(ym, year+"-") {
					continue
				}
				_, month, _ := splitDate(ym + "-01")
				y.Months = append(y.Months, archiveLink{
					Href:  ym + ".html",
					Label: fmt.Sprintf("%s年%s月", year, month),
					Count: countWithPrefix(dates, buckets, ym+"-"),
				})
			}
		}
		archive = append(archive, y)
	}

	data := pageData{
		Title:       "arXiv論文要約",
		LastUpdated: stamp,
		Lead:        "最新の論文要約をお届けします！",
		Papers:      toViews(latest),
		Archive:     archive,
	}
	return g.render("index.html", data, filepath.Join(outDir, "index.html"))
}

func (g *Generator) render(name string, data pageData, path string) error {
	tmpl, ok := g.pages[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		return fmt.Errorf("rendering %s: %w", name, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func (g *Generator) writeAssets(outDir string) error {
	targets := map[string]string{
		"static/custom.css": filepath.Join(outDir, "css", "custom.css"),
		"static/custom.js":  filepath.Join(outDir, "js", "custom.js"),
	}
	for src, dst := range targets {
		data, err := staticFS.ReadFile(src)
		if err != nil {
			return fmt.Errorf("reading embedded asset %s: %w", src, err)
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("creating asset dir: %w", err)
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return fmt.Errorf("writing asset %s: %w", dst, err)
		}
	}
	return nil
}

func toViews(records []record.Record) []paperView {
	views := make([]paperView, 0, len(records))
	for _, r := range records {
		v := paperView{
			Title:   r.Title,
			ArxivID: r.ArxivID,
			Summary: r.Summary,
		}
		if r.ArxivID != "" {
			v.AbsURL = arxiv.AbsURL(r.ArxivID)
		}
		if ts, err := time.Parse(record.TimestampFormat, r.Timestamp); err == nil {
			v.FormattedDate = ts.Format("2006年01月02日 15:04")
		}
		views = append(views, v)
	}
	return views
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String())
}

func splitDate(date string) (year, month, day string) {
	parts := strings.SplitN(date, "-", 3)
	if len(parts) != 3 {
		return "", "", ""
	}
	return parts[0], parts[1], parts[2]
}

func sortedKeysDesc(buckets map[string][]record.Record) []string {
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys
}

// yearMonths returns the distinct YYYY-MM prefixes of the dates, newest
// first. dates must already be sorted descending.
func yearMonths(dates []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, d := range dates {
		if len(d) < 7 {
			continue
		}
		ym := d[:7]
		if !seen[ym] {
			seen[ym] = true
			out = append(out, ym)
		}
	}
	return out
}

func years(dates []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, d := range dates {
		if len(d) < 4 {
			continue
		}
		y := d[:4]
		if !seen[y] {
			seen[y] = true
			out = append(out, y)
		}
	}
	return out
}

func countWithPrefix(dates []string, buckets map[string][]record.Record, prefix string) int {
	n := 0
	for _, d := range dates {
		if strings.HasPrefix(d, prefix) {
			n += len(buckets[d])
		}
	}
	return n
}

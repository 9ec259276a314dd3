package httpapi

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sort"

	"github.com/gorilla/mux"
	toml "github.com/pelletier/go-toml/v2"
)

const indexTemplate = `<!DOCTYPE html>
<html>
<head><title>repochecker</title></head>
<body>
<h1>repochecker</h1>
<p>Last refreshed: {{.LastRefresh}}</p>
<table>
<tr><th>Release</th><th>Broken items</th></tr>
{{range .Releases}}<tr><td><a href="/data/{{.Key}}">{{.Key}}</a></td><td>{{.Count}}</td></tr>
{{end}}
</table>
</body>
</html>
`

var parsedIndexTemplate = template.Must(template.New("index").Parse(indexTemplate))

type indexRelease struct {
	Key   string
	Count int
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	keys := s.snap.Keys()
	sort.Strings(keys)

	releases := make([]indexRelease, 0, len(keys))
	for _, k := range keys {
		items, _ := s.snap.Get(k)
		releases = append(releases, indexRelease{Key: k, Count: len(items)})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct {
		LastRefresh string
		Releases    []indexRelease
	}{
		LastRefresh: s.snap.LastRefresh().Format("2006-01-02T15:04:05Z07:00"),
		Releases:    releases,
	}
	if err := parsedIndexTemplate.Execute(w, data); err != nil {
		http.Error(w, "failed to render index", http.StatusInternalServerError)
	}
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	release := mux.Vars(r)["release"]

	items, ok := s.snap.Get(release)
	if !ok {
		http.Error(w, fmt.Sprintf("no published data for release %q", release), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(items)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.snap.Config()
	if cfg == nil {
		http.Error(w, "configuration not loaded", http.StatusServiceUnavailable)
		return
	}

	out, err := toml.Marshal(cfg)
	if err != nil {
		http.Error(w, "failed to render configuration", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/toml")
	_, _ = w.Write(out)
}

func (s *Server) handleOverrides(w http.ResponseWriter, r *http.Request) {
	tree := s.snap.Overrides()
	if tree == nil {
		http.Error(w, "overrides not loaded", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(tree)
}

type statEntry struct {
	Path  string `json:"path"`
	Count int64  `json:"count"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.snap.OverrideStats()

	entries := make([]statEntry, 0, len(stats))
	for path, count := range stats {
		entries = append(entries, statEntry{Path: path, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Path < entries[j].Path
	})

	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(entries)
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprintf(w, "not found: %s\navailable routes: /, /data/<release>, /config, /overrides, /stats\n", r.URL.Path)
}

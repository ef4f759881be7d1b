package report

import (
	"encoding/json"
	"fmt"
	html "html/template"
	"io"
	"text/template"
	"time"

	"github.com/FranksOps/uzhunt/internal/storage"
)

// Summary contains aggregated figures about a verification run.
type Summary struct {
	Total      int                                `json:"total"`
	Available  int                                `json:"available"`
	Registered int                                `json:"registered"`
	Unknown    int                                `json:"unknown"`
	Errors     int                                `json:"errors"`
	BySource   map[string]map[storage.Status]int `json:"by_source"`
	ErrorKinds map[string]int                     `json:"error_kinds"`
	// AvailableDomains lists the free domains in record order.
	AvailableDomains []string      `json:"available_domains"`
	StartTime        time.Time     `json:"start_time"`
	EndTime          time.Time     `json:"end_time"`
	Duration         time.Duration `json:"duration"`
}

// GenerateSummary aggregates verification records.
func GenerateSummary(records []*storage.VerificationRecord) Summary {
	s := Summary{
		BySource:         make(map[string]map[storage.Status]int),
		ErrorKinds:       make(map[string]int),
		AvailableDomains: []string{},
	}

	first := true
	for _, r := range records {
		if r == nil {
			continue
		}
		s.Total++

		switch r.Status {
		case storage.StatusAvailable:
			s.Available++
			s.AvailableDomains = append(s.AvailableDomains, r.Domain)
		case storage.StatusRegistered:
			s.Registered++
		case storage.StatusUnknown:
			s.Unknown++
		case storage.StatusError:
			s.Errors++
			kind := r.ErrorKind
			if kind == "" {
				kind = "other"
			}
			s.ErrorKinds[kind]++
		}

		src := r.Source
		if src == "" {
			src = "unknown"
		}
		if s.BySource[src] == nil {
			s.BySource[src] = make(map[storage.Status]int)
		}
		s.BySource[src][r.Status]++

		end := r.CheckedAt.Add(r.Duration)
		if first {
			s.StartTime, s.EndTime = r.CheckedAt, end
			first = false
			continue
		}
		if r.CheckedAt.Before(s.StartTime) {
			s.StartTime = r.CheckedAt
		}
		if end.After(s.EndTime) {
			s.EndTime = end
		}
	}

	s.Duration = s.EndTime.Sub(s.StartTime)
	return s
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("context: %w", err)
	}
	return nil
}

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `uzhunt Summary
--------------
Time:          {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Duration:      {{.Duration}}
Checked:       {{.Total}} domains
Available:     {{.Available}}
Registered:    {{.Registered}}
Unknown:       {{.Unknown}}
Errors:        {{.Errors}}
{{- range $kind, $count := .ErrorKinds}}
  {{$kind}}: {{$count}}
{{- end}}

By Source:
{{- range $src, $statuses := .BySource}}
  {{$src}}:{{range $status, $count := $statuses}} {{$status}}={{$count}}{{end}}
{{- else}}
  None
{{- end}}

Available Domains:
{{- range .AvailableDomains}}
  {{.}}
{{- else}}
  None
{{- end}}
`

	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("context: %w", err)
	}

	return nil
}

// WriteHTML writes a basic HTML report to the provided writer.
func WriteHTML(w io.Writer, summary Summary) error {
	const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>uzhunt Report</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #366092; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  .available { color: #006100; }
  .registered { color: #9c0006; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #366092; color: #fff; }
</style>
</head>
<body>
  <h1>uzhunt Report</h1>
  <p><strong>Time:</strong> {{.StartTime.Format "2006-01-02 15:04:05"}} to {{.EndTime.Format "2006-01-02 15:04:05"}} ({{.Duration}})</p>

  <div class="stat-card">
    <div>Checked</div>
    <div class="stat-val">{{.Total}}</div>
  </div>
  <div class="stat-card">
    <div>Available</div>
    <div class="stat-val available">{{.Available}}</div>
  </div>
  <div class="stat-card">
    <div>Registered</div>
    <div class="stat-val registered">{{.Registered}}</div>
  </div>
  <div class="stat-card">
    <div>Unknown</div>
    <div class="stat-val">{{.Unknown}}</div>
  </div>
  <div class="stat-card">
    <div>Errors</div>
    <div class="stat-val" style="color: {{if gt .Errors 0}}red{{else}}green{{end}};">{{.Errors}}</div>
  </div>

  <h3>By Source</h3>
  <table>
    <tr><th>Source</th><th>Status</th><th>Count</th></tr>
    {{- range $src, $statuses := .BySource}}
    {{- range $status, $count := $statuses}}
    <tr><td>{{$src}}</td><td>{{$status}}</td><td>{{$count}}</td></tr>
    {{- end}}
    {{- else}}
    <tr><td colspan="3">None</td></tr>
    {{- end}}
  </table>

  <h3>Error Kinds</h3>
  <table>
    <tr><th>Kind</th><th>Count</th></tr>
    {{- range $kind, $count := .ErrorKinds}}
    <tr><td>{{$kind}}</td><td>{{$count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>

  <h3>Available Domains</h3>
  <ul>
    {{- range .AvailableDomains}}
    <li class="available">{{.}}</li>
    {{- else}}
    <li>None</li>
    {{- end}}
  </ul>
</body>
</html>
`
	t, err := html.New("htmlReport").Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("context: %w", err)
	}

	return nil
}

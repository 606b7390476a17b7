package fsm

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"text/template"

	"bottlecangowhere/pkg/finder"
	"bottlecangowhere/pkg/registry"
)

const (
	emojiWorking    = "🟢"
	emojiNotWorking = "🔴"
)

type machineView struct {
	Emoji       string
	Name        string
	Meters      int64
	Address     string
	Description string
	Hours       string
	Status      string
	Nearby      string
	Directions  string
}

type listPayload struct {
	Header   string
	Machines []machineView
}

// User and file supplied fields go through html; the layout itself is Telegram HTML.
var machineListTpl = template.Must(template.New("machines").Parse(`{{.Header}}
{{range .Machines}}
{{.Emoji}} <b><u>{{html .Name}}</u></b> ({{.Meters}} meters)
{{html .Address}}
{{html .Description}}
<b>Hours:</b> {{html .Hours}}
<b>Status:</b> {{html .Status}}
{{if .Nearby}}<b>[Test Feature] Nearby Bins:</b> {{html .Nearby}}
{{end}}<b>Get Directions</b>: {{html .Directions}}
{{end}}`))

var reportThanksTpl = template.Must(template.New("report").Parse(
	`Thank you for letting us know! The RVM at <u><b>{{html .Name}}</b></u> is currently <u><b>{{html .Status}}</b></u>.`))

var selectedTpl = template.Must(template.New("selected").Parse(
	`You've selected the RVM at {{html .}}. What's the current status?`))

var reminderDoneTpl = template.Must(template.New("reminder").Parse(
	`Perfect! Your reminder is all set. Every month on day {{.Day}} at {{.Time}}, you'll receive this message:
"{{.Message}}"`))

func statusEmoji(s registry.Status) string {
	if s.IsWorking() {
		return emojiWorking
	}
	return emojiNotWorking
}

func directionsURL(base string, m registry.Machine) string {
	return base + strconv.FormatFloat(m.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(m.Longitude, 'f', -1, 64)
}

func buildMachineViews(results []finder.Result, directionsBase string) []machineView {
	views := make([]machineView, 0, len(results))
	for _, r := range results {
		m := r.Machine
		v := machineView{
			Emoji:       statusEmoji(m.Status),
			Name:        m.Name,
			Meters:      int64(math.Round(r.Distance)),
			Address:     m.Address,
			Description: m.Description,
			Hours:       m.Hours,
			Status:      string(m.Status),
			Directions:  directionsURL(directionsBase, m),
		}
		if m.HasNearby() {
			v.Nearby = m.Nearby
		}
		views = append(views, v)
	}
	return views
}

func execute(tpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", tpl.Name(), err)
	}
	return buf.String(), nil
}

// renderNearest formats the find result list.
func renderNearest(results []finder.Result, directionsBase string) (string, error) {
	return execute(machineListTpl, listPayload{
		Header:   fmt.Sprintf("Here are the %d nearest RVMs:", len(results)),
		Machines: buildMachineViews(results, directionsBase),
	})
}

// renderReportResult formats the report confirmation, followed by alternatives when any are given.
func renderReportResult(name string, status registry.Status, alternatives []finder.Result, directionsBase string) (string, error) {
	text, err := execute(reportThanksTpl, struct {
		Name   string
		Status string
	}{name, string(status)})
	if err != nil {
		return "", err
	}
	if len(alternatives) == 0 {
		return text, nil
	}
	list, err := execute(machineListTpl, listPayload{
		Header:   fmt.Sprintf("Here are the statuses of the alternative %d nearest RVMs:", len(alternatives)),
		Machines: buildMachineViews(alternatives, directionsBase),
	})
	if err != nil {
		return "", err
	}
	return text + "\n\n" + list, nil
}

func renderSelected(name string) (string, error) {
	return execute(selectedTpl, name)
}

func renderReminderDone(day int, hhmm string) (string, error) {
	return execute(reminderDoneTpl, struct {
		Day     int
		Time    string
		Message string
	}{day, hhmm, ReminderMessage})
}

func renderCandidatesPrompt(count int) string {
	return fmt.Sprintf("Thanks! Based on your location, here are the %d nearest RVMs.\n\nWhich RVM would you like to report on?", count)
}

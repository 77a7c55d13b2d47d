package formatter

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/fatih/color"

	tt "github.com/gnolang/revxslt/internal/types"
	"github.com/gnolang/revxslt/match"
)

const indentWidth = 2

var (
	errorStyle    = color.New(color.FgRed, color.Bold)
	warningStyle  = color.New(color.FgHiYellow, color.Bold)
	matchedStyle  = color.New(color.FgGreen, color.Bold)
	fileStyle     = color.New(color.FgCyan, color.Bold)
	lineStyle     = color.New(color.FgHiBlue, color.Bold)
	nameStyle     = color.New(color.FgYellow)
	messageStyle  = color.New(color.FgRed)
	noStyle       = color.New(color.FgWhite)
	durationStyle = color.New(color.Faint)
)

// recordFormatter supplies the text template rendering one kind of record.
type recordFormatter interface {
	RecordTemplate() string
}

func getRecordFormatter(status tt.Status) recordFormatter {
	switch status {
	case tt.StatusMatched:
		return &MatchedFormatter{}
	case tt.StatusNoMatch:
		return &NoMatchFormatter{}
	default:
		return &FailedFormatter{}
	}
}

// GenerateFormattedRecords renders records for a terminal.
func GenerateFormattedRecords(records []tt.Record) string {
	var builder strings.Builder
	for _, record := range records {
		builder.WriteString(buildRecord(record, getRecordFormatter(record.Status)))
	}
	return builder.String()
}

type RecordData struct {
	Source   string
	Template string
	Status   string
	Error    string
	Duration time.Duration
	Bindings match.Bindings
	Padding  string
}

var funcMap = template.FuncMap{
	"header":   header,
	"bindings": bindingLines,
	"message":  message,
}

func buildRecord(record tt.Record, formatter recordFormatter) string {
	data := RecordData{
		Source:   record.Source,
		Template: record.Template,
		Status:   string(record.Status),
		Error:    record.Error,
		Duration: record.Duration,
		Bindings: record.Bindings,
		Padding:  strings.Repeat(" ", indentWidth),
	}

	tmpl := template.Must(template.New("record").Funcs(funcMap).Parse(formatter.RecordTemplate()))

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Sprintf("Error formatting record: %v", err)
	}
	return buf.String()
}

// utils functions used in the text templates

func header(status, source, templatePath string, duration time.Duration) string {
	var endString string
	switch tt.Status(status) {
	case tt.StatusMatched:
		endString = matchedStyle.Sprint("matched: ")
	case tt.StatusNoMatch:
		endString = warningStyle.Sprint("no match: ")
	default:
		endString = errorStyle.Sprint("error: ")
	}

	endString += fileStyle.Sprint(source)
	if templatePath != "" {
		endString += lineStyle.Sprint(" <- ") + noStyle.Sprint(templatePath)
	}
	endString += durationStyle.Sprintf(" (%s)", duration.Round(time.Microsecond))

	return endString
}

func message(msg string, padding string) string {
	return lineStyle.Sprintf("%s= ", padding) + messageStyle.Sprint(msg)
}

func bindingLines(bs match.Bindings, padding string) string {
	if len(bs) == 0 {
		return lineStyle.Sprintf("%s|", padding) + noStyle.Sprint(" (nothing bound)")
	}
	var lines []string
	writeBindings(&lines, bs, padding)
	return strings.Join(lines, "\n")
}

func writeBindings(lines *[]string, bs match.Bindings, padding string) {
	for _, name := range bs.Names() {
		b := bs[name]
		prefix := lineStyle.Sprintf("%s| ", padding)
		switch b.Kind {
		case match.BindingList:
			*lines = append(*lines, prefix+nameStyle.Sprint(name)+noStyle.Sprintf(" [%d]", len(b.List)))
			inner := padding + strings.Repeat(" ", indentWidth)
			for i, item := range b.List {
				*lines = append(*lines, lineStyle.Sprintf("%s| ", inner)+noStyle.Sprintf("#%d", i+1))
				writeBindings(lines, item, inner+strings.Repeat(" ", indentWidth))
			}
		case match.BindingCondition:
			*lines = append(*lines, prefix+nameStyle.Sprint(name)+noStyle.Sprintf(" ?= %q", b.Value))
		default:
			*lines = append(*lines, prefix+nameStyle.Sprint(name)+noStyle.Sprintf(" = %q", b.Value))
		}
	}
}

// GenerateSummary counts records per status.
func GenerateSummary(records []tt.Record) string {
	var matched, noMatch, failed int
	for _, r := range records {
		switch r.Status {
		case tt.StatusMatched:
			matched++
		case tt.StatusNoMatch:
			noMatch++
		default:
			failed++
		}
	}
	return fmt.Sprintf("%s, %s, %s",
		matchedStyle.Sprintf("%d matched", matched),
		warningStyle.Sprintf("%d not matched", noMatch),
		errorStyle.Sprintf("%d failed", failed),
	)
}

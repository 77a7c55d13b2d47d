package formatter

type FailedFormatter struct{}

func (f *FailedFormatter) RecordTemplate() string {
	return `{{header .Status .Source .Template .Duration}}
{{- if .Error }}
{{message .Error .Padding}}
{{- end }}

`
}

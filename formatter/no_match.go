package formatter

type NoMatchFormatter struct{}

func (f *NoMatchFormatter) RecordTemplate() string {
	return `{{header .Status .Source .Template .Duration}}
{{message "document was not produced by this template" .Padding}}

`
}

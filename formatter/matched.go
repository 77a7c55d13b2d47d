package formatter

type MatchedFormatter struct{}

func (f *MatchedFormatter) RecordTemplate() string {
	return `{{header .Status .Source .Template .Duration}}
{{bindings .Bindings .Padding}}

`
}

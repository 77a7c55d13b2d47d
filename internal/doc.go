// Package internal runs a parsed template over instance documents.
//
// Engine ties together the pieces around a single match: it reads files or
// fetches URLs, decodes them with their declared or sniffed charset, parses
// them into tokens, matches them against the template and turns the outcome
// into a Record. Around that core it offers a per-file result cache that is
// invalidated when the document, the template or the configuration changes,
// a directory watcher, and a URL poller.
//
// Usage:
//
//	tmpl, err := parser.ParseString(stylesheet)
//	if err != nil {
//	    // handle error
//	}
//
//	engine, err := internal.NewEngine("notice.xsl", tmpl,
//	    internal.WithFetcher(fetch.New()),
//	    internal.WithLogger(logger),
//	)
//	if err != nil {
//	    // handle error
//	}
//
//	record, err := engine.Run(ctx, "notices/2024-001.html")
//	if err != nil {
//	    // the document could not be read or fetched
//	}
//	if record.Matched() {
//	    fmt.Println(record.Bindings)
//	}
//
// This package is intended for internal use and should not be imported by
// external packages.
package internal

// Package fetch is the process adapter around the external yt-dlp tool.
//
// [Runner] owns subprocess invocation: captured output for listing and
// metadata calls, streamed line-oriented output for downloads. Each supported
// platform implements [Fetcher], translating raw newline-delimited JSON into
// normalized [Item] records; implementations register in a [Registry] so the
// orchestrators dispatch by platform tag instead of branching.
//
// Rows missing an id or title are dropped silently; the tool emits partial
// rows for unavailable entries and those are not actionable.
package fetch

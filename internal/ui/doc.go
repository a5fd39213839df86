// package ui renders a live terminal monitor over the background managers'
// event stream: in-flight downloads with progress, sync results, and
// metadata activity.
package ui

// Package ui is the operator terminal: the ticket panel, rules, status
// lines, the credentials panel, tables and the blocking y/n step prompt.
// Output goes to the given writer; it is not logging.
package ui

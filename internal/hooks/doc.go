// Package hooks shows the information notes packages drop into the hooks
// directory.
//
// Each file is a small "Key: value" stanza with a Name, a multi-line
// Description and an optional Command. A note stays unread until the user
// marks it read; editing the file makes it unread again. Seen state lives in
// the state database so notes are not repeated across sessions.
package hooks

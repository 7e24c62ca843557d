// Package presence publishes a Rich Presence activity and rotates through
// the configured phrases on a fixed interval.
//
// A Publisher is a session object: it owns one transport handle and one
// rotation task. Re-applying a presence replaces the rotation and reuses
// the handle when it is already logged in for the same client id.
package presence

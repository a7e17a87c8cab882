// Package process manages renderer subprocess groups: starting them
// isolated and killing the whole tree on timeout or cancellation.
package process

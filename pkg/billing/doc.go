// Package billing holds the plan catalog and the subscription-facing pieces
// of a view: the Tracker that keeps the current tier in sync with the
// session, the Redirector that turns a plan choice into a hosted checkout
// URL, and the Probe and Portal contracts of the remote billing functions.
//
// Probe failures are non-blocking. The Tracker logs them, exposes
// NoticeProbeFailed and keeps the last known tier.
package billing

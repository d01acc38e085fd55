// Package app assembles the seopilot service from its configuration: the
// auth provider, the billing gateway, the functions handler, metrics and
// the web server.
package app

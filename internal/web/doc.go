// Package web serves the dashboard, the pricing page and the billing
// functions.
//
// Every browser tab is a view: one authstate.Machine, one billing.Tracker
// and one billing.Redirector over its own authstate.Store, found again on
// later requests through a signed view cookie. Forms post and redirect with
// 303; the dashboard document keeps a datastar SSE stream open and the
// server re-renders the auth container whenever the view's state changes.
package web

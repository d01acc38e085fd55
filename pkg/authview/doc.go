// Package authview decides which dashboard view a session state maps to
// and renders it as templ components.
//
// Select is a pure function of authstate.State; Page wraps the chosen view
// in a container with a stable id so live updates can replace it in place.
package authview

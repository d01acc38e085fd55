// Package authstate mirrors an external authentication provider's session
// into locally observable state for a single view.
//
// A Machine starts uninitialized. Initialize registers the provider's change
// listener and fetches the current session concurrently; pushes are
// last-write-wins and a fetch result only applies when no push arrived after
// it was issued. Actions (SubmitCredentials, StartOAuth, SignOut) never set
// the session themselves: a successful sign-in or sign-out is observed
// through the listener. Teardown must be called when the view goes away;
// anything that resolves afterwards is dropped.
//
//	m := authstate.New(store, authstate.WithRedirectTarget(baseURL+"/dashboard"))
//	defer m.Teardown()
//	if err := m.Initialize(ctx); err != nil {
//		return err
//	}
//	sub := m.Subscribe(ctx)
//	for msg := range sub.Receive(ctx) {
//		render(msg.Data)
//	}
package authstate

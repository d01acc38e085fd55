// Package supabase talks to a Supabase project over REST.
//
// A Project holds the shared HTTP client and keys. It invokes edge functions
// and implements billing.Probe and billing.Portal on top of the
// check-subscription and customer-portal functions.
//
// Each browser view gets its own Client from Project.NewClient. A Client
// implements authstate.Store against the GoTrue endpoints, keeps its own
// session and PKCE verifier, and pushes every session change to listeners
// registered with OnSessionChange.
//
//	project, err := supabase.NewFromConfig(cfg, supabase.WithLogger(log))
//	client := project.NewClient()
//	defer client.Close()
//
//	machine := authstate.New(client)
//	_ = machine.Initialize(ctx)
package supabase

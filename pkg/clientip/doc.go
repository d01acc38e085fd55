// Package clientip resolves the address of the client behind the proxies in
// front of the service. The resolved IP keys the sign-in and billing
// function rate limits and is attached to request logs.
package clientip

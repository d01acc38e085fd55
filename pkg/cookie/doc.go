// Package cookie writes and verifies HMAC-SHA256 signed cookies with
// secret rotation support.
//
//	m, err := cookie.New([]string{newSecret, oldSecret}, cookie.WithSecure(true))
//	m.SetSigned(w, "view", id)
//	id, err := m.GetSigned(r, "view") // ErrInvalidSignature on tampering
package cookie

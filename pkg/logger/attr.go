package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the user identifier under the key "user_id".
// An empty id yields an empty Attr.
func UserID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("user_id", id)
}

// ViewID records the browser view identifier under the key "view_id".
func ViewID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("view_id", id)
}

// RequestID records the request identifier under the key "request_id".
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Action records an auth or billing action under the key "action".
func Action(name string) slog.Attr {
	return slog.String("action", name)
}

// Provider records an identity or billing provider under the key "provider".
func Provider(name string) slog.Attr {
	return slog.String("provider", name)
}

// Plan records a pricing plan name under the key "plan".
func Plan(name string) slog.Attr {
	return slog.String("plan", name)
}

// Status records an HTTP status code under the key "status".
func Status(code int) slog.Attr {
	return slog.Int("status", code)
}

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}

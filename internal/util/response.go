package util

// Envelope is the generic JSON response body. Every endpoint reports a
// top-level success flag alongside its payload.
type Envelope map[string]any

// Fail builds a failure body with a user-safe message.
func Fail(message string) Envelope {
	return Envelope{"success": false, "message": message}
}

// OK builds a success body from key/value pairs.
func OK(pairs ...any) Envelope {
	env := Envelope{"success": true}
	for i := 0; i+1 < len(pairs); i += 2 {
		if key, ok := pairs[i].(string); ok {
			env[key] = pairs[i+1]
		}
	}
	return env
}

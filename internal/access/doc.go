// Package access resolves the authorization context of dashboard callers.
//
// A Gate turns the bearer credential of a request into a Context. The
// context is stored on the request by middleware and handed to services
// as an explicit parameter, so no service reads ambient state to decide
// whether a caller may see data. TokenGate compares tokens against a
// bcrypt hash; OpenGate admits everyone when the gate is disabled.
package access

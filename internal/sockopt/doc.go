// Package sockopt holds the platform-specific socket setup shared by the
// listener and the wake sender.
package sockopt

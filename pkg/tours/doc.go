// Package tours holds the tour catalog: the public read model served to
// partner sites and the staff-side catalog management backing it.
package tours

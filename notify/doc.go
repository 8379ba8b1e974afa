// Package notify sends customer text messages about order payment outcomes.
package notify

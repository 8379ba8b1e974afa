// Package core holds the payhooks domain: orders, users, the payment event sum
// type, side-effect results and the collaborator contracts the dispatcher is
// wired with. Adapters depend on core; core depends on no adapter.
package core

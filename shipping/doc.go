// Package shipping requests carrier shipments for paid orders.
package shipping

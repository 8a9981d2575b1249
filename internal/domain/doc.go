// Package domain contains the core business concepts of the ordering service.
// Keep this package free of transport (HTTP) and infrastructure (Postgres/Redis/storage) concerns.
package domain

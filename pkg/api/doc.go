// Package api defines the core data types shared across the manager
//
// This package contains the durable entities (blueprints, deployments,
// nodes, node instances, executions), the typed error taxonomy surfaced by
// every operation, the parsed plan structure, and HTTP message shapes
package api

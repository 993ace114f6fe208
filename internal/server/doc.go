// Package server exposes the manager's REST API
//
// Handlers delegate to the upload pipeline, the lifecycle manager, the
// storage engine, and the event index, translating typed failures into HTTP
// responses with stable error codes
package server

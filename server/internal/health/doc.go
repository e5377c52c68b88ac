// Package health publishes the availability of the record source over the
// standard gRPC health checking protocol (grpc.health.v1.Health).
//
// A Monitor stats the source file on an interval and flips the
// "processdash.Data" service, and the overall "" service, between SERVING
// and NOT_SERVING. Register Monitor.Server() on a grpc.Server, optionally
// with LogInterceptor to log each health call.
package health

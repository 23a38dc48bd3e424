/*
Package observability provides tools for monitoring the TAGML import engine.

It includes Prometheus metrics fed from lifecycle hooks, structured-logging hooks,
and a helper to combine several hook sets into one.
*/
package observability

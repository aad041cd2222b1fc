/*
Package session serves many devices from one process.

A Manager serializes every operation on a device with a reference-counted lock (plus an
optional distributed lock when several replicas share a device store), and keeps recently
used sessions in memory so in-flight remote creates are not lost between requests.
*/
package session

// Package broker binds real-time transport lifecycle events to session
// store mutations and validates pairing requests.
//
// The broker sees each device move through a simple lifecycle: registered
// in the registry, connected (session row with a transport id), optionally
// paired to an interface, then disconnected either explicitly or by losing
// its transport. Every transition goes through the announcer, which fans
// domain events out to subscribed transports, an optional external relay,
// and optional telemetry.
package broker

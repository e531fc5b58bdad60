// Package device holds the authoritative state of every controllable entity
// in the home: room lights, the thermostat, the fan, doors, cameras,
// irrigation zones, the security mode, sensor readings and the device
// catalog.
//
// # Single mutation gate
//
// State is the only writer of this data. The sensor tick loop, operator
// intents and the broker bridge all call its mutators, which serialise on
// one mutex. A reader never observes a half-applied change: Snapshot copies
// everything under the same lock.
//
// # Side effects
//
// Every mutator records a line in the activity ledger describing the
// transition and may raise an alert when a policy threshold is crossed:
//
//   - SetThermostat rejects set-points outside [16, 30] and raises
//     "thermostat-high" above 28
//   - SetTemperatureReading raises "temp-high" above 26
//   - SetDoor raises "security-door-{id}" when a door opens while the
//     security system is armed
//
// Readings advanced by the simulation tick are the exception: they update
// silently (alerts still apply) so the bounded ledger keeps operator events.
//
// After a mutation, the optional change listener receives a Change carrying
// the channel and wire payload, which the session uses to mirror operator
// changes to the broker and push updates to dashboards.
package device

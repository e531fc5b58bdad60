// Package session ties the household core together.
//
// A Session owns one activity ledger, one alert registry, the device
// state, the WiFi manager, the broker bridge and the sensor simulator.
// It is created once by the host process and passed by reference to the
// HTTP layer; tests build their own and call Reset between scenarios.
//
// Three change sources feed the device state:
//
//   - Operator intents (ToggleLight, SetThermostat, ...), called from HTTP
//     handlers. Applied operator changes are mirrored to the broker while
//     the bridge is connected.
//   - The broker bridge, which applies inbound messages from its own
//     receive goroutine.
//   - Tick, which advances the simulated sensors. The host calls it on a
//     fixed interval (see Run); the session itself never sleeps.
//
// All three funnel through device.State, whose mutex is the single
// serialization point. Observers subscribe with OnEvent to receive
// state, activity, alert, network and broker events.
package session

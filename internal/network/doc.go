// Package network models the home's WiFi connection.
//
// Manager owns the list of visible networks and the single connection
// slot. Joining an open network connects immediately; joining a secured
// network is a two-phase flow:
//
//	outcome, _ := mgr.RequestConnect("GuestNetwork") // AwaitingCredentials
//	_ = mgr.SubmitCredentials("GuestNetwork", secret) // connects
//
// Secrets are passed to a CredentialVerifier and never stored or logged.
// The default verifier accepts any secret.
//
// At every transition at most one network is marked connected, and that
// network is the one named by ConnectionState.ConnectedSSID.
//
// Scanning perturbs signal strengths with the injected random source and
// occasionally adds or removes a network. It never removes the connected
// network or the one awaiting credentials. The manager never sleeps.
package network

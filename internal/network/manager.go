package network

import (
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-home/internal/activity"
	"github.com/nerrad567/gray-logic-home/internal/sensor"
)

// Scan tuning.
const (
	// DefaultHistorySize is the number of connection history lines kept.
	DefaultHistorySize = 10

	scanMaxDelta  = 5
	minSignal     = 5
	maxSignal     = 100
	subnetPrefix  = "192.168.1."
	firstHostByte = 100
	hostByteRange = 150
)

// synthesizedSSIDs are the names a scan may discover.
var synthesizedSSIDs = []string{
	"Linksys_2G", "NETGEAR42", "TP-Link_7A3F", "Upstairs_Mesh",
	"xfinitywifi", "Library_Public", "DIRECT-printer", "Garage_Extender",
}

var synthesizedSecurity = []Security{SecurityWPA2, SecurityWPA2, SecurityWPA, SecurityWEP, SecurityOpen}

// Options configures a Manager.
type Options struct {
	// Networks seeds the scan list. Nil selects DefaultNetworks.
	Networks []Network

	// HistorySize caps the connection history. Zero selects
	// DefaultHistorySize.
	HistorySize int

	// AddProbability and RemoveProbability are the per-scan chances of a
	// network appearing or disappearing.
	AddProbability    float64
	RemoveProbability float64

	// Source drives scans and address assignment (required).
	Source sensor.Source

	// Verifier checks submitted secrets. Nil selects AcceptAnySecret.
	Verifier CredentialVerifier

	// Ledger receives one network line per connect, disconnect, and
	// enable change. Optional.
	Ledger *activity.Ledger
}

// Manager is the WiFi discovery and connection state machine.
//
// All public methods are thread-safe.
type Manager struct {
	mu sync.Mutex

	seed     []Network
	networks []Network
	state    ConnectionState
	history  []HistoryEntry

	historySize int
	addProb     float64
	removeProb  float64
	src         sensor.Source
	verify      CredentialVerifier
	ledger      *activity.Ledger
	now         func() time.Time
	logger      Logger
}

// NewManager creates a manager with WiFi enabled. If a seeded network is
// marked connected it becomes the active connection and is assigned an
// address; any further connected flags are cleared.
func NewManager(opts Options) (*Manager, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("network: random source is required")
	}

	seed := opts.Networks
	if seed == nil {
		seed = DefaultNetworks()
	}
	seen := make(map[string]bool, len(seed))
	for _, n := range seed {
		if n.SSID == "" || seen[n.SSID] {
			return nil, fmt.Errorf("network: duplicate or empty ssid %q", n.SSID)
		}
		seen[n.SSID] = true
	}

	historySize := opts.HistorySize
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	verify := opts.Verifier
	if verify == nil {
		verify = AcceptAnySecret
	}

	m := &Manager{
		seed:        append([]Network(nil), seed...),
		historySize: historySize,
		addProb:     opts.AddProbability,
		removeProb:  opts.RemoveProbability,
		src:         opts.Source,
		verify:      verify,
		ledger:      opts.Ledger,
		now:         time.Now,
		logger:      noopLogger{},
	}
	m.load()
	return m, nil
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger = logger
}

// SetClock replaces the time source. Intended for tests.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Reset restores the seeded networks, re-enables WiFi and empties the
// history. It records nothing in the ledger.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.load()
}

// load rebuilds state from the seed. Caller holds mu or owns m.
func (m *Manager) load() {
	m.networks = append(m.networks[:0:0], m.seed...)
	m.state = ConnectionState{Enabled: true}
	m.history = nil

	for i := range m.networks {
		if m.networks[i].Connected && m.state.ConnectedSSID == "" {
			m.state.ConnectedSSID = m.networks[i].SSID
			m.state.AssignedIP = m.synthesizeIP()
			continue
		}
		m.networks[i].Connected = false
	}
}

// ============================================================================
// Intents
// ============================================================================

// Scan perturbs every network's signal strength by up to ±5, clamped to
// [5, 100], and may add a newly discovered network or drop one that is
// neither connected nor awaiting credentials.
func (m *Manager) Scan() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.Enabled {
		return ErrDisabled
	}

	for i := range m.networks {
		delta := m.src.Intn(2*scanMaxDelta+1) - scanMaxDelta
		m.networks[i].SignalStrength = clampSignal(m.networks[i].SignalStrength + delta)
	}

	if m.src.Float64() < m.addProb {
		m.discoverLocked()
	}
	if m.src.Float64() < m.removeProb {
		m.dropLocked()
	}

	m.logger.Debug("wifi scan complete", "networks", len(m.networks))
	return nil
}

// RequestConnect starts joining ssid. Open networks connect immediately.
// Secured networks become the pending request and the caller must follow
// up with SubmitCredentials; the current connection is left unchanged.
func (m *Manager) RequestConnect(ssid string) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.Enabled {
		return "", ErrDisabled
	}
	idx := m.indexLocked(ssid)
	if idx < 0 {
		return "", fmt.Errorf("%w: %q", ErrUnknownNetwork, ssid)
	}

	if !m.networks[idx].Security.RequiresCredentials() {
		m.connectLocked(idx)
		return OutcomeConnected, nil
	}

	m.state.PendingAuthSSID = ssid
	m.logger.Info("wifi awaiting credentials", "ssid", ssid)
	return OutcomeAwaitingCredentials, nil
}

// SubmitCredentials completes a pending request for ssid. It fails with
// ErrNoPendingRequest unless ssid is the pending network. The pending slot
// is cleared whether or not the verifier accepts the secret.
func (m *Manager) SubmitCredentials(ssid, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.PendingAuthSSID == "" || m.state.PendingAuthSSID != ssid {
		return fmt.Errorf("%w: %q", ErrNoPendingRequest, ssid)
	}
	m.state.PendingAuthSSID = ""

	idx := m.indexLocked(ssid)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownNetwork, ssid)
	}

	if err := m.verify(ssid, secret); err != nil {
		m.appendHistoryLocked(fmt.Sprintf("Authentication failed for %s", ssid))
		m.logger.Warn("wifi authentication failed", "ssid", ssid)
		return fmt.Errorf("%w: %q: %w", ErrAuthenticationFailed, ssid, err)
	}

	m.connectLocked(idx)
	return nil
}

// Disconnect leaves the current network. It returns false, and changes
// nothing, if no network is connected.
func (m *Manager) Disconnect() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disconnectLocked()
}

// SetEnabled switches WiFi on or off. Switching off disconnects first and
// drops any pending request. Switching on does not reconnect.
func (m *Manager) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Enabled == enabled {
		return
	}
	if !enabled {
		m.disconnectLocked()
		m.state.PendingAuthSSID = ""
	}
	m.state.Enabled = enabled

	msg := "WiFi disabled"
	if enabled {
		msg = "WiFi enabled"
	}
	m.record(msg)
	m.logger.Info("wifi radio switched", "enabled", enabled)
}

// ============================================================================
// Read surface
// ============================================================================

// Networks returns a copy of the scan list in discovery order.
func (m *Manager) Networks() []Network {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Network(nil), m.networks...)
}

// State returns the connection slot.
func (m *Manager) State() ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// History returns the connection history, oldest first.
func (m *Manager) History() []HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]HistoryEntry(nil), m.history...)
}

// Snapshot returns networks, state and history read under one lock.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		State:    m.state,
		Networks: append([]Network(nil), m.networks...),
		History:  append([]HistoryEntry(nil), m.history...),
	}
}

// Consistent reports whether at most one network is connected and, if
// one is, it is the network named by State.ConnectedSSID.
func (s Snapshot) Consistent() bool {
	connected := ""
	count := 0
	for _, n := range s.Networks {
		if n.Connected {
			count++
			connected = n.SSID
		}
	}
	switch count {
	case 0:
		return s.State.ConnectedSSID == ""
	case 1:
		return s.State.ConnectedSSID == connected
	default:
		return false
	}
}

// ============================================================================
// Transitions
// ============================================================================

// connectLocked makes networks[idx] the only connected network.
func (m *Manager) connectLocked(idx int) {
	for i := range m.networks {
		m.networks[i].Connected = i == idx
	}

	ssid := m.networks[idx].SSID
	m.state.ConnectedSSID = ssid
	m.state.AssignedIP = m.synthesizeIP()
	m.state.PendingAuthSSID = ""

	m.appendHistoryLocked(fmt.Sprintf("Connected to %s", ssid))
	m.appendHistoryLocked(fmt.Sprintf("Assigned IP address %s", m.state.AssignedIP))
	m.record(fmt.Sprintf("Connected to WiFi network %s", ssid))
	m.logger.Info("wifi connected", "ssid", ssid, "ip", m.state.AssignedIP)
}

func (m *Manager) disconnectLocked() bool {
	if m.state.ConnectedSSID == "" {
		return false
	}

	ssid := m.state.ConnectedSSID
	for i := range m.networks {
		m.networks[i].Connected = false
	}
	m.state.ConnectedSSID = ""
	m.state.AssignedIP = ""

	m.appendHistoryLocked(fmt.Sprintf("Disconnected from %s", ssid))
	m.record(fmt.Sprintf("Disconnected from WiFi network %s", ssid))
	m.logger.Info("wifi disconnected", "ssid", ssid)
	return true
}

func (m *Manager) discoverLocked() {
	ssid := synthesizedSSIDs[m.src.Intn(len(synthesizedSSIDs))]
	if m.indexLocked(ssid) >= 0 {
		return
	}
	n := Network{
		SSID:           ssid,
		SignalStrength: clampSignal(minSignal + m.src.Intn(maxSignal-minSignal+1)),
		Security:       synthesizedSecurity[m.src.Intn(len(synthesizedSecurity))],
	}
	m.networks = append(m.networks, n)
	m.logger.Debug("wifi network discovered", "ssid", ssid)
}

func (m *Manager) dropLocked() {
	candidates := make([]int, 0, len(m.networks))
	for i, n := range m.networks {
		if n.Connected || n.SSID == m.state.PendingAuthSSID {
			continue
		}
		candidates = append(candidates, i)
	}
	if len(candidates) == 0 {
		return
	}

	idx := candidates[m.src.Intn(len(candidates))]
	ssid := m.networks[idx].SSID
	m.networks = append(m.networks[:idx], m.networks[idx+1:]...)
	m.logger.Debug("wifi network out of range", "ssid", ssid)
}

func (m *Manager) indexLocked(ssid string) int {
	for i, n := range m.networks {
		if n.SSID == ssid {
			return i
		}
	}
	return -1
}

func (m *Manager) appendHistoryLocked(message string) {
	m.history = append(m.history, HistoryEntry{Message: message, Timestamp: m.now()})
	if over := len(m.history) - m.historySize; over > 0 {
		m.history = append(m.history[:0], m.history[over:]...)
	}
}

// record writes a ledger line. The ledger has its own lock.
func (m *Manager) record(message string) {
	if m.ledger != nil {
		m.ledger.Record(message, activity.CategoryNetwork)
	}
}

func (m *Manager) synthesizeIP() string {
	return fmt.Sprintf("%s%d", subnetPrefix, firstHostByte+m.src.Intn(hostByteRange))
}

func clampSignal(v int) int {
	if v < minSignal {
		return minSignal
	}
	if v > maxSignal {
		return maxSignal
	}
	return v
}

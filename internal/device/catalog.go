package device

// Policy thresholds.
const (
	ThermostatMinC        = 16
	ThermostatMaxC        = 30
	ThermostatAlertAbove  = 28
	TemperatureAlertAbove = 26.0

	IrrigationMinMinutes = 5
	IrrigationMaxMinutes = 60
)

// Alert keys.
const (
	AlertTempHigh       = "temp-high"
	AlertThermostatHigh = "thermostat-high"
	alertDoorPrefix     = "security-door-"
)

// DoorAlertKey returns the alert key raised when door id opens while armed.
func DoorAlertKey(id string) string {
	return alertDoorPrefix + id
}

// Reading names.
const (
	ReadingTemperature = "temperature"
	ReadingHumidity    = "humidity"
)

// IsEnergyReading reports whether name belongs on the energy channel.
// Temperature and humidity have channels of their own.
func IsEnergyReading(name string) bool {
	return name != "" && name != ReadingTemperature && name != ReadingHumidity
}

// Catalog is the initial configuration of the home.
type Catalog struct {
	Lights     []Light
	Thermostat int
	Fan        FanLevel
	Security   SecurityMode
	Doors      []Door
	Cameras    []Camera
	Irrigation []IrrigationZone
	Readings   []Reading
	Motion     bool
	Devices    []Device
}

func intPtr(v int) *int { return &v }

// DefaultCatalog returns the household as first installed.
func DefaultCatalog() Catalog {
	return Catalog{
		Lights: []Light{
			{Room: "living", On: false},
			{Room: "kitchen", On: true},
			{Room: "bedroom", On: false},
		},
		Thermostat: 22,
		Fan:        FanOff,
		Security:   Disarmed,
		Doors: []Door{
			{ID: "main", Status: DoorClosed},
			{ID: "garage", Status: DoorClosed},
			{ID: "back", Status: DoorClosed},
		},
		Cameras: []Camera{
			{ID: "front_door", Enabled: true},
			{ID: "backyard", Enabled: false},
			{ID: "garage", Enabled: false},
		},
		Irrigation: []IrrigationZone{
			{ID: "front_lawn", ScheduleTime: "06:00 AM", DurationMinutes: 15},
			{ID: "backyard", ScheduleTime: "07:00 AM", DurationMinutes: 20},
			{ID: "garden", ScheduleTime: "05:30 AM", DurationMinutes: 10},
		},
		Readings: []Reading{
			{Name: ReadingTemperature, Value: 21.5, Low: 15, High: 35, Unit: "°C"},
			{Name: ReadingHumidity, Value: 42, Low: 20, High: 80, Unit: "%"},
		},
		Devices: []Device{
			{
				ID: "hub", Name: "Home Hub", Connectivity: Connected, SignalStrength: 100,
				LastActiveLabel: "just now", Capabilities: []string{"bridge", "wifi"},
			},
			{
				ID: "thermostat", Name: "Living Room Thermostat", Connectivity: Connected, SignalStrength: 88,
				LastActiveLabel: "just now", Capabilities: []string{"temperature_read", "temperature_set", "humidity_read"},
			},
			{
				ID: "camera_front_door", Name: "Front Door Camera", Connectivity: Connected, SignalStrength: 76,
				LastActiveLabel: "1 min ago", Capabilities: []string{"video", "motion_detect"},
			},
			{
				ID: "camera_backyard", Name: "Backyard Camera", Connectivity: Connected, SignalStrength: 61,
				BatteryPercent: intPtr(73), LastActiveLabel: "5 min ago", Capabilities: []string{"video"},
			},
			{
				ID: "door_sensor_main", Name: "Main Door Sensor", Connectivity: Connected, SignalStrength: 82,
				BatteryPercent: intPtr(91), LastActiveLabel: "2 min ago", Capabilities: []string{"contact"},
			},
			{
				ID: "door_sensor_garage", Name: "Garage Door Sensor", Connectivity: Disconnected, SignalStrength: 0,
				BatteryPercent: intPtr(12), LastActiveLabel: "3 h ago", Capabilities: []string{"contact"},
			},
			{
				ID: "irrigation_controller", Name: "Irrigation Controller", Connectivity: Connected, SignalStrength: 57,
				LastActiveLabel: "10 min ago", Capabilities: []string{"valve", "schedule"},
			},
			{
				ID: "motion_hallway", Name: "Hallway Motion Sensor", Connectivity: Connected, SignalStrength: 70,
				BatteryPercent: intPtr(64), LastActiveLabel: "just now", Capabilities: []string{"motion_detect"},
			},
		},
	}
}

// Package ble provides the transport seam to the speaker: a small set of
// interfaces over the platform BLE stack plus the tinygo-org/bluetooth
// implementation used in production. Tests substitute an in-memory fake.
package ble

import "context"

// Z407 BLE UUIDs
const (
	ServiceUUID      = "0000fdc2-0000-1000-8000-00805f9b34fb"
	CommandCharUUID  = "c2e758b9-0e78-41e0-b0cb-98a593193fc5"
	ResponseCharUUID = "b84ac9c6-29c5-46d4-bba1-9d534784330f"
)

// Characteristic represents a BLE GATT characteristic.
type Characteristic interface {
	// Write sends data without requesting a write response.
	Write(data []byte) error
	// Subscribe registers a callback for notifications on this characteristic.
	Subscribe(callback func(data []byte)) error
	// Unsubscribe disables notifications.
	Unsubscribe() error
}

// Device represents a discovered BLE peripheral.
type Device struct {
	Name    string
	Address string
	RSSI    int
}

// Connection represents an active BLE connection to a peripheral.
type Connection interface {
	// DiscoverCharacteristic finds a characteristic by UUID within a service.
	DiscoverCharacteristic(serviceUUID, charUUID string) (Characteristic, error)
	// Disconnect terminates the connection.
	Disconnect() error
	// OnDisconnect registers a callback invoked when the link drops.
	OnDisconnect(callback func())
	// Connected reports whether the link is still up.
	Connected() bool
}

// Adapter abstracts the BLE hardware adapter for testing.
type Adapter interface {
	// Enable powers on the BLE adapter.
	Enable() error
	// Scan blocks, calling found for each advertisement that carries
	// serviceUUID, until StopScan is called. A StopScan that arrives
	// before Scan has started still ends the next Scan.
	Scan(serviceUUID string, found func(Device)) error
	// StopScan ends the running scan and releases the radio.
	StopScan() error
	// Connect establishes a connection to the device with the given address.
	Connect(ctx context.Context, address string) (Connection, error)
}

package mqtt

import (
	"github.com/jpalmerr/poolbridge"
)

const (
	// DeviceManufacturer is reported on every discovered device.
	DeviceManufacturer = "Pool Controller"

	// DeviceModel is reported on every discovered device.
	DeviceModel = "API Integration"

	availabilityModeAll = "all"
)

// SensorConfig is a Home Assistant MQTT sensor discovery document.
type SensorConfig struct {
	Name                string         `json:"name"`
	UniqueID            string         `json:"unique_id"`
	ObjectID            string         `json:"object_id,omitempty"`
	StateTopic          string         `json:"state_topic"`
	ValueTemplate       string         `json:"value_template"`
	UnitOfMeasurement   string         `json:"unit_of_measurement,omitempty"`
	DeviceClass         string         `json:"device_class,omitempty"`
	StateClass          string         `json:"state_class,omitempty"`
	Icon                string         `json:"icon,omitempty"`
	JSONAttributesTopic string         `json:"json_attributes_topic,omitempty"`
	Availability        []Availability `json:"availability"`
	AvailabilityMode    string         `json:"availability_mode"`
	Device              Device         `json:"device"`
}

// Availability is one availability topic of an entity.
type Availability struct {
	Topic string `json:"topic"`
}

// Device groups the entities of one target.
type Device struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	ConfigURL    string   `json:"configuration_url,omitempty"`
}

// sensorConfig builds the discovery document for one field of a target.
func (p *Publisher) sensorConfig(target poolbridge.TargetConfig, field poolbridge.Field) SensorConfig {
	node := poolbridge.NodeID(target)

	sc := SensorConfig{
		Name:              field.Name(),
		UniqueID:          node + "_" + field.Key(),
		ObjectID:          node + "_" + field.Key(),
		StateTopic:        p.stateTopic(node),
		ValueTemplate:     "{{ value_json." + field.Key() + " }}",
		UnitOfMeasurement: field.Unit(),
		DeviceClass:       field.DeviceClass(),
		StateClass:        field.StateClass(),
		Icon:              field.Icon(),
		Availability: []Availability{
			{Topic: p.bridgeStatusTopic()},
			{Topic: p.availabilityTopic(node)},
		},
		AvailabilityMode: availabilityModeAll,
		Device: Device{
			Identifiers:  []string{node},
			Name:         target.Name(),
			Manufacturer: DeviceManufacturer,
			Model:        DeviceModel,
			ConfigURL:    "http://" + target.Host(),
		},
	}
	if len(field.AttributeNames()) > 0 {
		sc.JSONAttributesTopic = p.attributesTopic(node, field.Key())
	}
	return sc
}

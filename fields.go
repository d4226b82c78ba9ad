package poolbridge

// PoolFields returns the standard reading table of a pool controller's
// /api/v1/pool/info document: pump, electrolyzer, spotlight, cover,
// remote, filtration and water quality metrics.
//
// A fresh slice is returned on every call.
func PoolFields() []Field {
	measurement := WithStateClass(StateClassMeasurement)

	return []Field{
		// pump
		MustField("pump_state", "Pump State", MustPath("state", "cards", "pumps", 0, "state"),
			WithIcon("mdi:pump")),
		MustField("pump_rpm", "Pump Speed", MustPath("state", "cards", "pumps", 0, "rpm"),
			WithIcon("mdi:pump"), WithUnit("RPM"), measurement),
		MustField("pump_power", "Pump Power", MustPath("state", "cards", "pumps", 0, "power"),
			WithDeviceClass("power"), WithUnit("W"), measurement),
		MustField("pump_power_total", "Pump Total Energy", MustPath("state", "cards", "pumps", 0, "powerTotal"),
			WithDeviceClass("energy"), WithUnit("Wh"), WithStateClass(StateClassTotalIncreasing)),
		MustField("pump_slab_close", "Pump Slab Closed", MustPath("state", "cards", "pumps", 0, "slabClose"),
			WithIcon("mdi:valve")),
		MustField("pump_water_present", "Pump Water Present", MustPath("state", "cards", "pumps", 0, "waterPresent"),
			WithIcon("mdi:water-check")),

		// electrolyzer
		MustField("electrolyzer_state", "Electrolyzer State", MustPath("state", "cards", "electrolyzer", "state"),
			WithIcon("mdi:water-plus")),

		// spotlight
		MustField("spotlight_state", "Spotlight State", MustPath("state", "spotlight", "state"),
			WithIcon("mdi:spotlight")),
		MustField("spotlight_mode", "Spotlight Mode", MustPath("state", "spotlight", "mode"),
			WithIcon("mdi:spotlight")),

		// cover
		MustField("roller_state", "Pool Cover State", MustPath("state", "roller", "state"),
			WithIcon("mdi:window-shutter")),
		MustField("roller_mode", "Pool Cover Mode", MustPath("state", "roller", "mode"),
			WithIcon("mdi:window-shutter")),
		MustField("roller_position", "Pool Cover Position", MustPath("state", "roller", "position"),
			WithIcon("mdi:window-shutter")),

		// remote
		MustField("remote_number", "Remote Number", MustPath("state", "remote", "number"),
			WithIcon("mdi:remote")),
		MustField("remote_state", "Remote State", MustPath("state", "remote", "state"),
			WithIcon("mdi:remote")),

		// filtration
		MustField("filtration_mode", "Filtration Mode", MustPath("state", "filtration", "mode"),
			WithIcon("mdi:filter")),
		MustField("filtration_actual_prog", "Filtration Program", MustPath("state", "filtration", "actualProg"),
			WithIcon("mdi:filter-settings")),
		MustField("filtration_state", "Filtration State", MustPath("state", "filtration", "state"),
			WithIcon("mdi:filter")),
		MustField("filtration_swimming_remain", "Swimming Mode Remaining Time",
			MustPath("state", "filtration", "swimming", "remainTime"),
			WithIcon("mdi:timer-sand"), WithUnit("min"), measurement),
		MustField("filtration_pause_remain", "Pause Remaining Time",
			MustPath("state", "filtration", "pause", "remainTime"),
			WithIcon("mdi:timer-pause"), WithUnit("min"), measurement),

		// metrics
		MustField("water_temperature", "Water Temperature", MustPath("state", "metrics", "waterTemperature"),
			WithDeviceClass("temperature"), WithUnit("°C"), measurement),
		MustField("air_temperature", "Air Temperature", MustPath("state", "metrics", "airTemperature"),
			WithDeviceClass("temperature"), WithUnit("°C"), measurement),
		MustField("ph", "pH Level", MustPath("state", "metrics", "ph"),
			WithIcon("mdi:ph"), measurement,
			WithAttribute("alarm_min", MustPath("state", "metrics", "phAlarmLimits", 0)),
			WithAttribute("alarm_max", MustPath("state", "metrics", "phAlarmLimits", 1))),
		MustField("orp", "ORP (Redox)", MustPath("state", "metrics", "orp"),
			WithIcon("mdi:water-check"), WithUnit("mV"), measurement,
			WithAttribute("alarm_min", MustPath("state", "metrics", "orpAlarmLimits", 0)),
			WithAttribute("alarm_max", MustPath("state", "metrics", "orpAlarmLimits", 1))),
		MustField("free_chlorine", "Free Chlorine", MustPath("state", "metrics", "freeChlorine"),
			WithIcon("mdi:flask"), WithUnit("mg/L"), measurement),
		MustField("salinity", "Salinity", MustPath("state", "metrics", "salinity"),
			WithIcon("mdi:shaker"), WithUnit("g/L"), measurement,
			WithAttribute("alarm_min", MustPath("state", "metrics", "salinityAlarmLimits", 0))),
		MustField("water_hardness", "Water Hardness", MustPath("state", "metrics", "waterHardness"),
			WithIcon("mdi:water-opacity"), WithUnit("°f"), measurement),
		MustField("filter_clogging", "Filter Clogging", MustPath("state", "metrics", "filterClogging"),
			WithIcon("mdi:air-filter"), WithUnit("%"), measurement),
	}
}

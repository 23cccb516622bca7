package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"kelvin unit", "Air temperature [K]", "air temperature kelvin"},
		{"newton meter unit", "Torque [Nm]", "torque newton meter"},
		{"rpm unit", "Rotational speed [rpm]", "rotational speed rpm"},
		{"minutes unit", "Tool wear [min]", "tool wear minutes"},
		{"parenthesized unit", "Temp (°C)", "temp celsius"},
		{"unknown unit kept", "Vibration [g]", "vibration g"},
		{"snake case", "air_temperature", "air temperature"},
		{"kebab and trailing", "machine-type_", "machine type"},
		{"punctuation collapsed", "  Product.ID / #  ", "product id"},
		{"camel stays joined", "ProductID", "productid"},
		{"empty", "", ""},
		{"only punctuation", "[]()_-", ""},
		{"unbalanced bracket", "speed [rpm", "speed rpm"},
		{"digits kept", "Sensor_1 Value", "sensor 1 value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Air temperature [K]", "Torque [Nm]", "Process temperature (K)",
		"__weird--Header__", "ÜBER Größe [%]", "a [b] (c) [d", "x]]y((z",
		"Temperature_Air", "  ", "İstanbul", "Rotational speed [rpm]",
	}
	for _, syns := range patternTable {
		inputs = append(inputs, syns...)
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

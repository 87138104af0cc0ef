package models

import (
	"errors"
	"strconv"
	"strings"
)

// Settings keys holding poll interval overrides in whole seconds.
const (
	SettingWeatherPollInterval = "weather_poll_interval"
	SettingSeismicPollInterval = "seismic_poll_interval"
)

var (
	ErrUnknownSetting = errors.New("unknown setting")
	ErrInvalidSetting = errors.New("value must be a positive number of seconds")
)

var knownSettings = map[string]bool{
	SettingWeatherPollInterval: true,
	SettingSeismicPollInterval: true,
}

func IsKnownSetting(key string) bool {
	return knownSettings[key]
}

// NormalizeSetting checks key and value and returns the value to store.
func NormalizeSetting(key, value string) (string, error) {
	if !knownSettings[key] {
		return "", ErrUnknownSetting
	}
	value = strings.TrimSpace(value)
	if n, err := strconv.Atoi(value); err != nil || n <= 0 {
		return "", ErrInvalidSetting
	}
	return value, nil
}

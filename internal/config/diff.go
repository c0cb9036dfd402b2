package config

import "reflect"

// ChangedSections names the top-level sections that differ between old and new.
// A nil old reports every section.
func ChangedSections(old, new *Config) []string {
	if new == nil {
		return nil
	}
	if old == nil {
		old = &Config{}
	}
	var out []string
	add := func(name string, a, b any) {
		if !reflect.DeepEqual(a, b) {
			out = append(out, name)
		}
	}
	add("practicum", old.Practicum, new.Practicum)
	add("telegram", old.Telegram, new.Telegram)
	add("relay", old.Relay, new.Relay)
	add("notifier", old.Notifier, new.Notifier)
	add("logging", old.Logging, new.Logging)
	add("storage", old.Storage, new.Storage)
	return out
}

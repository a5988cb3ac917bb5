// Package config loads the service configuration.
//
// Settings come from three layers, each overriding the last: built-in
// defaults, an optional YAML file, and RESPEAKER_* environment
// variables. The merged result is validated once at startup and then
// treated as immutable.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Broker passwords and InfluxDB tokens belong in the environment, not
// in the file.
package config

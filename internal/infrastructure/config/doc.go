// Package config handles loading and validating robotctl configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The upstream API key is read from ECO_API_KEY and should never be committed
//   - Other secrets (JWT secret, MQTT password, InfluxDB token) belong in the environment
//   - The config file should have restricted permissions (0600)
//
// A configuration file is optional. With no file, robotctl runs as a plain
// MCP stdio server against the default upstream using defaults plus environment.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Upstream.BaseURL)
package config

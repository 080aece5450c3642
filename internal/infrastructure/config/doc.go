// Package config handles loading and validating Inbotiq Core configuration.
//
// This package manages:
//   - Loading configuration from an optional YAML file
//   - Overriding with environment variables (PORT, DATABASE_URL, JWT_SECRET,
//     FRONTEND_URL, ...), each also accepted with an INBOTIQ_ prefix
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (JWT secret, admin password, broker credentials)
//     should be set via environment variables
//   - The config file should have restricted permissions (0600)
//   - There is no default JWT secret; startup fails without one
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.API.Port)
//
// Passing "" to Load skips the file and reads the environment only.
package config
